// Package mocks holds testify mocks of the ports interfaces, with typed
// expecters for use in adapter and core tests.
package mocks
