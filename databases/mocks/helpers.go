// Package mocks holds testify mocks of the databases interfaces.
package mocks

import (
	context "context"

	databases "github.com/crimeshield/crimeshield-api/databases"
	mock "github.com/stretchr/testify/mock"
	mongo "go.mongodb.org/mongo-driver/mongo"
	options "go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseHelper is a mock type for the DatabaseHelper type
type DatabaseHelper struct {
	mock.Mock
}

// Client provides a mock function with given fields:
func (_m *DatabaseHelper) Client() databases.ClientHelper {
	ret := _m.Called()

	var r0 databases.ClientHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.ClientHelper)
	}
	return r0
}

// Collection provides a mock function with given fields: name
func (_m *DatabaseHelper) Collection(name string) databases.CollectionHelper {
	ret := _m.Called(name)

	var r0 databases.CollectionHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.CollectionHelper)
	}
	return r0
}

// ClientHelper is a mock type for the ClientHelper type
type ClientHelper struct {
	mock.Mock
}

// Connect provides a mock function with given fields: _a0
func (_m *ClientHelper) Connect(_a0 context.Context) error {
	ret := _m.Called(_a0)
	return ret.Error(0)
}

// Disconnect provides a mock function with given fields: _a0
func (_m *ClientHelper) Disconnect(_a0 context.Context) error {
	ret := _m.Called(_a0)
	return ret.Error(0)
}

// Database provides a mock function with given fields: _a0
func (_m *ClientHelper) Database(_a0 string) databases.DatabaseHelper {
	ret := _m.Called(_a0)

	var r0 databases.DatabaseHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.DatabaseHelper)
	}
	return r0
}

// SingleResultHelper is a mock type for the SingleResultHelper type
type SingleResultHelper struct {
	mock.Mock
}

// Decode provides a mock function with given fields: v
func (_m *SingleResultHelper) Decode(v interface{}) error {
	ret := _m.Called(v)
	return ret.Error(0)
}

// CursorHelper is a mock type for the CursorHelper type
type CursorHelper struct {
	mock.Mock
}

// Decode provides a mock function with given fields: v
func (_m *CursorHelper) Decode(v interface{}) error {
	ret := _m.Called(v)
	return ret.Error(0)
}

// CollectionHelper is a mock type for the CollectionHelper type
type CollectionHelper struct {
	mock.Mock
}

// Aggregate provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) Aggregate(_a0 context.Context, _a1 interface{}, _a2 ...*options.AggregateOptions) (databases.CursorHelper, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)

	var r0 databases.CursorHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.CursorHelper)
	}
	return r0, ret.Error(1)
}

// CountDocuments provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) CountDocuments(_a0 context.Context, _a1 interface{}, _a2 ...*options.CountOptions) (int64, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)
	return ret.Get(0).(int64), ret.Error(1)
}

// CreateIndexes provides a mock function with given fields: _a0, _a1
func (_m *CollectionHelper) CreateIndexes(_a0 context.Context, _a1 []mongo.IndexModel) error {
	ret := _m.Called(_a0, _a1)
	return ret.Error(0)
}

// DeleteOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) DeleteOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.DeleteOptions) (int64, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)
	return ret.Get(0).(int64), ret.Error(1)
}

// Find provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) Find(_a0 context.Context, _a1 interface{}, _a2 ...*options.FindOptions) (databases.CursorHelper, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)

	var r0 databases.CursorHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.CursorHelper)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) FindOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.FindOneOptions) databases.SingleResultHelper {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)

	var r0 databases.SingleResultHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.SingleResultHelper)
	}
	return r0
}

// InsertOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *CollectionHelper) InsertOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.InsertOneOptions) (interface{}, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _a2)...)
	return ret.Get(0), ret.Error(1)
}

// UpdateOne provides a mock function with given fields: _a0, _a1, _a2, _a3
func (_m *CollectionHelper) UpdateOne(_a0 context.Context, _a1 interface{}, _a2 interface{}, _a3 ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	ret := _m.Called(variadic([]interface{}{_a0, _a1, _a2}, _a3)...)

	var r0 *mongo.UpdateResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*mongo.UpdateResult)
	}
	return r0, ret.Error(1)
}

func variadic[T any](fixed []interface{}, opts []T) []interface{} {
	for _, o := range opts {
		fixed = append(fixed, o)
	}
	return fixed
}
