package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	models "github.com/crimeshield/crimeshield-api/models"
)

// AdminDatabase is a mock type for the AdminDatabase type
type AdminDatabase struct {
	mock.Mock
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *AdminDatabase) EnsureIndexes(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Find provides a mock function with given fields: ctx, filter
func (_m *AdminDatabase) Find(ctx context.Context, filter interface{}) ([]models.AdminUser, error) {
	ret := _m.Called(ctx, filter)

	var r0 []models.AdminUser
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.AdminUser)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter
func (_m *AdminDatabase) FindOne(ctx context.Context, filter interface{}) (*models.AdminUser, error) {
	ret := _m.Called(ctx, filter)

	var r0 *models.AdminUser
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.AdminUser)
	}
	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, admin
func (_m *AdminDatabase) InsertOne(ctx context.Context, admin models.AdminUser) (interface{}, error) {
	ret := _m.Called(ctx, admin)
	return ret.Get(0), ret.Error(1)
}
