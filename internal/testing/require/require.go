// Package require includes test assertions that fail the test immediately. This is
// like testify, but without the dependency, matching the bulk of the engine's own
// unit tests.
package require

import (
	"fmt"
	"reflect"
	"runtime"
)

// TestingT is an interface wrapper of functions used in TestingT
type TestingT interface {
	Fatal(args ...interface{})
}

func fail(t TestingT, msg string, formatWithArgs ...interface{}) {
	if len(formatWithArgs) > 0 {
		if s, ok := formatWithArgs[0].(string); ok {
			msg = fmt.Sprintf("%s: %s", msg, fmt.Sprintf(s, formatWithArgs[1:]...))
		}
	}
	_, file, line, ok := runtime.Caller(2)
	if ok {
		msg = fmt.Sprintf("%s:%d: %s", file, line, msg)
	}
	t.Fatal(msg)
}

// Equal fails if the actual value is not equal to the expected.
func Equal(t TestingT, expected, actual interface{}, formatWithArgs ...interface{}) {
	if !reflect.DeepEqual(expected, actual) {
		fail(t, fmt.Sprintf("expected %#v, but was %#v", expected, actual), formatWithArgs...)
	}
}

// NotEqual fails if the actual value equals the expected one.
func NotEqual(t TestingT, expected, actual interface{}, formatWithArgs ...interface{}) {
	if reflect.DeepEqual(expected, actual) {
		fail(t, fmt.Sprintf("expected values to differ, both were %#v", expected), formatWithArgs...)
	}
}

// NoError fails if err is not nil.
func NoError(t TestingT, err error, formatWithArgs ...interface{}) {
	if err != nil {
		fail(t, fmt.Sprintf("expected no error, but had: %v", err), formatWithArgs...)
	}
}

// Error fails if err is nil.
func Error(t TestingT, err error, formatWithArgs ...interface{}) {
	if err == nil {
		fail(t, "expected an error, but had none", formatWithArgs...)
	}
}

// ErrorIs fails if err is not the same concrete error type as target.
func ErrorIs(t TestingT, err, target error, formatWithArgs ...interface{}) {
	if err == nil || reflect.TypeOf(err) != reflect.TypeOf(target) {
		fail(t, fmt.Sprintf("expected error of type %T, but had %v (%T)", target, err, err), formatWithArgs...)
	}
}

// True fails if the value is false.
func True(t TestingT, value bool, formatWithArgs ...interface{}) {
	if !value {
		fail(t, "expected true, but was false", formatWithArgs...)
	}
}

// False fails if the value is true.
func False(t TestingT, value bool, formatWithArgs ...interface{}) {
	if value {
		fail(t, "expected false, but was true", formatWithArgs...)
	}
}

// Nil fails if the value is not nil.
func Nil(t TestingT, value interface{}, formatWithArgs ...interface{}) {
	if value != nil && !reflect.ValueOf(value).IsZero() {
		fail(t, fmt.Sprintf("expected nil, but was %#v", value), formatWithArgs...)
	}
}

// Len fails if the slice/map/string's length doesn't match expected.
func Len(t TestingT, expected int, value interface{}, formatWithArgs ...interface{}) {
	l := reflect.ValueOf(value).Len()
	if l != expected {
		fail(t, fmt.Sprintf("expected length %d, but was %d", expected, l), formatWithArgs...)
	}
}
