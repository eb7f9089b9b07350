package mocks

import (
	domain "github.com/eleven-am/noderun/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockMetricsSink is an autogenerated mock type for the MetricsSink type
type MockMetricsSink struct {
	mock.Mock
}

type MockMetricsSink_Expecter struct {
	mock *mock.Mock
}

func (_m *MockMetricsSink) EXPECT() *MockMetricsSink_Expecter {
	return &MockMetricsSink_Expecter{mock: &_m.Mock}
}

// RecordAttempt provides a mock function with given fields: record
func (_m *MockMetricsSink) RecordAttempt(record domain.AttemptRecord) {
	_m.Called(record)
}

// MockMetricsSink_RecordAttempt_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'RecordAttempt'
type MockMetricsSink_RecordAttempt_Call struct {
	*mock.Call
}

// RecordAttempt is a helper method to define mock.On call
//   - record domain.AttemptRecord
func (_e *MockMetricsSink_Expecter) RecordAttempt(record interface{}) *MockMetricsSink_RecordAttempt_Call {
	return &MockMetricsSink_RecordAttempt_Call{Call: _e.mock.On("RecordAttempt", record)}
}

func (_c *MockMetricsSink_RecordAttempt_Call) Run(run func(record domain.AttemptRecord)) *MockMetricsSink_RecordAttempt_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(domain.AttemptRecord))
	})
	return _c
}

func (_c *MockMetricsSink_RecordAttempt_Call) Return() *MockMetricsSink_RecordAttempt_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockMetricsSink_RecordAttempt_Call) RunAndReturn(run func(domain.AttemptRecord)) *MockMetricsSink_RecordAttempt_Call {
	_c.Run(run)
	return _c
}

// RecordRetry provides a mock function with given fields: nodeName, attempt
func (_m *MockMetricsSink) RecordRetry(nodeName string, attempt int) {
	_m.Called(nodeName, attempt)
}

// MockMetricsSink_RecordRetry_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'RecordRetry'
type MockMetricsSink_RecordRetry_Call struct {
	*mock.Call
}

// RecordRetry is a helper method to define mock.On call
//   - nodeName string
//   - attempt int
func (_e *MockMetricsSink_Expecter) RecordRetry(nodeName interface{}, attempt interface{}) *MockMetricsSink_RecordRetry_Call {
	return &MockMetricsSink_RecordRetry_Call{Call: _e.mock.On("RecordRetry", nodeName, attempt)}
}

func (_c *MockMetricsSink_RecordRetry_Call) Run(run func(nodeName string, attempt int)) *MockMetricsSink_RecordRetry_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(string), args[1].(int))
	})
	return _c
}

func (_c *MockMetricsSink_RecordRetry_Call) Return() *MockMetricsSink_RecordRetry_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockMetricsSink_RecordRetry_Call) RunAndReturn(run func(string, int)) *MockMetricsSink_RecordRetry_Call {
	_c.Run(run)
	return _c
}

// NewMockMetricsSink creates a new instance of MockMetricsSink. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockMetricsSink(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMetricsSink {
	mock := &MockMetricsSink{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
