package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
	mongo "go.mongodb.org/mongo-driver/mongo"
	options "go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/crimeshield/crimeshield-api/models"
)

// ReportDatabase is a mock type for the ReportDatabase type
type ReportDatabase struct {
	mock.Mock
}

// Aggregate provides a mock function with given fields: ctx, pipeline, results
func (_m *ReportDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	ret := _m.Called(ctx, pipeline, results)
	return ret.Error(0)
}

// CountDocuments provides a mock function with given fields: ctx, filter
func (_m *ReportDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	ret := _m.Called(ctx, filter)
	return ret.Get(0).(int64), ret.Error(1)
}

// DeleteOne provides a mock function with given fields: ctx, filter
func (_m *ReportDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	ret := _m.Called(ctx, filter)
	return ret.Error(0)
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *ReportDatabase) EnsureIndexes(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *ReportDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error) {
	ret := _m.Called(variadic([]interface{}{ctx, filter}, opts)...)

	var r0 []models.Report
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Report)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter, opts
func (_m *ReportDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Report, error) {
	ret := _m.Called(variadic([]interface{}{ctx, filter}, opts)...)

	var r0 *models.Report
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Report)
	}
	return r0, ret.Error(1)
}

// InsertOne provides a mock function with given fields: ctx, report
func (_m *ReportDatabase) InsertOne(ctx context.Context, report models.Report) (interface{}, error) {
	ret := _m.Called(ctx, report)
	return ret.Get(0), ret.Error(1)
}

// UpdateOne provides a mock function with given fields: ctx, filter, update, opts
func (_m *ReportDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	ret := _m.Called(variadic([]interface{}{ctx, filter, update}, opts)...)

	var r0 *mongo.UpdateResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*mongo.UpdateResult)
	}
	return r0, ret.Error(1)
}
