package mocks

import (
	domain "github.com/eleven-am/noderun/internal/domain"
	mock "github.com/stretchr/testify/mock"
	ports "github.com/eleven-am/noderun/internal/ports"
)

// MockCircuitBreaker is an autogenerated mock type for the CircuitBreaker type
type MockCircuitBreaker struct {
	mock.Mock
}

type MockCircuitBreaker_Expecter struct {
	mock *mock.Mock
}

func (_m *MockCircuitBreaker) EXPECT() *MockCircuitBreaker_Expecter {
	return &MockCircuitBreaker_Expecter{mock: &_m.Mock}
}

// CanExecute provides a mock function with given fields: 
func (_m *MockCircuitBreaker) CanExecute() bool {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for CanExecute")
	}

	var r0 bool
	if rf, ok := ret.Get(0).(func() bool); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(bool)
	}

	return r0
}

// MockCircuitBreaker_CanExecute_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'CanExecute'
type MockCircuitBreaker_CanExecute_Call struct {
	*mock.Call
}

// CanExecute is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) CanExecute() *MockCircuitBreaker_CanExecute_Call {
	return &MockCircuitBreaker_CanExecute_Call{Call: _e.mock.On("CanExecute")}
}

func (_c *MockCircuitBreaker_CanExecute_Call) Run(run func()) *MockCircuitBreaker_CanExecute_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_CanExecute_Call) Return(_a0 bool) *MockCircuitBreaker_CanExecute_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockCircuitBreaker_CanExecute_Call) RunAndReturn(run func() bool) *MockCircuitBreaker_CanExecute_Call {
	_c.Call.Return(run)
	return _c
}

// Name provides a mock function with given fields: 
func (_m *MockCircuitBreaker) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// MockCircuitBreaker_Name_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Name'
type MockCircuitBreaker_Name_Call struct {
	*mock.Call
}

// Name is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) Name() *MockCircuitBreaker_Name_Call {
	return &MockCircuitBreaker_Name_Call{Call: _e.mock.On("Name")}
}

func (_c *MockCircuitBreaker_Name_Call) Run(run func()) *MockCircuitBreaker_Name_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_Name_Call) Return(_a0 string) *MockCircuitBreaker_Name_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockCircuitBreaker_Name_Call) RunAndReturn(run func() string) *MockCircuitBreaker_Name_Call {
	_c.Call.Return(run)
	return _c
}

// RecordFailure provides a mock function with given fields: 
func (_m *MockCircuitBreaker) RecordFailure() {
	_m.Called()
}

// MockCircuitBreaker_RecordFailure_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'RecordFailure'
type MockCircuitBreaker_RecordFailure_Call struct {
	*mock.Call
}

// RecordFailure is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) RecordFailure() *MockCircuitBreaker_RecordFailure_Call {
	return &MockCircuitBreaker_RecordFailure_Call{Call: _e.mock.On("RecordFailure")}
}

func (_c *MockCircuitBreaker_RecordFailure_Call) Run(run func()) *MockCircuitBreaker_RecordFailure_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_RecordFailure_Call) Return() *MockCircuitBreaker_RecordFailure_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockCircuitBreaker_RecordFailure_Call) RunAndReturn(run func()) *MockCircuitBreaker_RecordFailure_Call {
	_c.Run(run)
	return _c
}

// RecordSuccess provides a mock function with given fields: 
func (_m *MockCircuitBreaker) RecordSuccess() {
	_m.Called()
}

// MockCircuitBreaker_RecordSuccess_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'RecordSuccess'
type MockCircuitBreaker_RecordSuccess_Call struct {
	*mock.Call
}

// RecordSuccess is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) RecordSuccess() *MockCircuitBreaker_RecordSuccess_Call {
	return &MockCircuitBreaker_RecordSuccess_Call{Call: _e.mock.On("RecordSuccess")}
}

func (_c *MockCircuitBreaker_RecordSuccess_Call) Run(run func()) *MockCircuitBreaker_RecordSuccess_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_RecordSuccess_Call) Return() *MockCircuitBreaker_RecordSuccess_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockCircuitBreaker_RecordSuccess_Call) RunAndReturn(run func()) *MockCircuitBreaker_RecordSuccess_Call {
	_c.Run(run)
	return _c
}

// Reset provides a mock function with given fields: 
func (_m *MockCircuitBreaker) Reset() {
	_m.Called()
}

// MockCircuitBreaker_Reset_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Reset'
type MockCircuitBreaker_Reset_Call struct {
	*mock.Call
}

// Reset is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) Reset() *MockCircuitBreaker_Reset_Call {
	return &MockCircuitBreaker_Reset_Call{Call: _e.mock.On("Reset")}
}

func (_c *MockCircuitBreaker_Reset_Call) Run(run func()) *MockCircuitBreaker_Reset_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_Reset_Call) Return() *MockCircuitBreaker_Reset_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockCircuitBreaker_Reset_Call) RunAndReturn(run func()) *MockCircuitBreaker_Reset_Call {
	_c.Run(run)
	return _c
}

// State provides a mock function with given fields: 
func (_m *MockCircuitBreaker) State() domain.CircuitState {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for State")
	}

	var r0 domain.CircuitState
	if rf, ok := ret.Get(0).(func() domain.CircuitState); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(domain.CircuitState)
	}

	return r0
}

// MockCircuitBreaker_State_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'State'
type MockCircuitBreaker_State_Call struct {
	*mock.Call
}

// State is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) State() *MockCircuitBreaker_State_Call {
	return &MockCircuitBreaker_State_Call{Call: _e.mock.On("State")}
}

func (_c *MockCircuitBreaker_State_Call) Run(run func()) *MockCircuitBreaker_State_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_State_Call) Return(_a0 domain.CircuitState) *MockCircuitBreaker_State_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockCircuitBreaker_State_Call) RunAndReturn(run func() domain.CircuitState) *MockCircuitBreaker_State_Call {
	_c.Call.Return(run)
	return _c
}

// Status provides a mock function with given fields: 
func (_m *MockCircuitBreaker) Status() ports.CircuitBreakerStatus {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Status")
	}

	var r0 ports.CircuitBreakerStatus
	if rf, ok := ret.Get(0).(func() ports.CircuitBreakerStatus); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(ports.CircuitBreakerStatus)
	}

	return r0
}

// MockCircuitBreaker_Status_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Status'
type MockCircuitBreaker_Status_Call struct {
	*mock.Call
}

// Status is a helper method to define mock.On call
func (_e *MockCircuitBreaker_Expecter) Status() *MockCircuitBreaker_Status_Call {
	return &MockCircuitBreaker_Status_Call{Call: _e.mock.On("Status")}
}

func (_c *MockCircuitBreaker_Status_Call) Run(run func()) *MockCircuitBreaker_Status_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run()
	})
	return _c
}

func (_c *MockCircuitBreaker_Status_Call) Return(_a0 ports.CircuitBreakerStatus) *MockCircuitBreaker_Status_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockCircuitBreaker_Status_Call) RunAndReturn(run func() ports.CircuitBreakerStatus) *MockCircuitBreaker_Status_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockCircuitBreaker creates a new instance of MockCircuitBreaker. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCircuitBreaker(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCircuitBreaker {
	mock := &MockCircuitBreaker{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
