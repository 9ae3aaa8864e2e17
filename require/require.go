// Package require has fail-fast versions of github.com/alecthomas/assert
// functions. Only the functions used by tests in this repo.
package require

import (
	"errors"

	"github.com/alecthomas/assert"
)

// TestingT is satisfied by *testing.T
type TestingT = assert.TestingT

// assert.Fail already stops the test with t.FailNow()

func NoError(t TestingT, err error, msgAndArgs ...interface{}) {
	assert.NoError(t, err, msgAndArgs...)
}

func Error(t TestingT, err error, msgAndArgs ...interface{}) {
	assert.Error(t, err, msgAndArgs...)
}

func Equal(t TestingT, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	assert.Equal(t, expected, actual, msgAndArgs...)
}

func True(t TestingT, value bool, msgAndArgs ...interface{}) {
	assert.True(t, value, msgAndArgs...)
}

// ErrorIs fails unless errors.Is(err, target)
func ErrorIs(t TestingT, err error, target error) {
	assert.True(t, errors.Is(err, target), "expected error matching '%v', got '%v'", target, err)
}
