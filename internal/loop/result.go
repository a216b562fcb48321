package loop

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks caller misuse detected before the loop starts:
// a nil driver, an empty module identifier, or a missing collaborator.
var ErrConfiguration = errors.New("loop: configuration error")

// PanicError is the driver failure recorded when the driver panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("driver panicked: %v", e.Value)
}

// Result is the outcome of one driver invocation: Resolved with a value or
// Rejected with an error.
type Result[T any] struct {
	Value T
	Err   error
}

// Resolved returns a successful result.
func Resolved[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Rejected returns a failed result.
func Rejected[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Rejected reports whether the driver failed.
func (r Result[T]) Rejected() bool {
	return r.Err != nil
}
