package mocks

import (
	domain "github.com/eleven-am/noderun/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockStateChangeListener is an autogenerated mock type for the StateChangeListener type
type MockStateChangeListener struct {
	mock.Mock
}

type MockStateChangeListener_Expecter struct {
	mock *mock.Mock
}

func (_m *MockStateChangeListener) EXPECT() *MockStateChangeListener_Expecter {
	return &MockStateChangeListener_Expecter{mock: &_m.Mock}
}

// OnStateChange provides a mock function with given fields: name, from, to
func (_m *MockStateChangeListener) OnStateChange(name string, from domain.CircuitState, to domain.CircuitState) {
	_m.Called(name, from, to)
}

// MockStateChangeListener_OnStateChange_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'OnStateChange'
type MockStateChangeListener_OnStateChange_Call struct {
	*mock.Call
}

// OnStateChange is a helper method to define mock.On call
//   - name string
//   - from domain.CircuitState
//   - to domain.CircuitState
func (_e *MockStateChangeListener_Expecter) OnStateChange(name interface{}, from interface{}, to interface{}) *MockStateChangeListener_OnStateChange_Call {
	return &MockStateChangeListener_OnStateChange_Call{Call: _e.mock.On("OnStateChange", name, from, to)}
}

func (_c *MockStateChangeListener_OnStateChange_Call) Run(run func(name string, from domain.CircuitState, to domain.CircuitState)) *MockStateChangeListener_OnStateChange_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(string), args[1].(domain.CircuitState), args[2].(domain.CircuitState))
	})
	return _c
}

func (_c *MockStateChangeListener_OnStateChange_Call) Return() *MockStateChangeListener_OnStateChange_Call {
	_c.Call.Return()
	return _c
}

func (_c *MockStateChangeListener_OnStateChange_Call) RunAndReturn(run func(string, domain.CircuitState, domain.CircuitState)) *MockStateChangeListener_OnStateChange_Call {
	_c.Run(run)
	return _c
}

// NewMockStateChangeListener creates a new instance of MockStateChangeListener. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStateChangeListener(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStateChangeListener {
	mock := &MockStateChangeListener{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
