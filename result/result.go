// Package result models the outcome of a read against the drug API.
// A read either succeeds, degrades to fallback data when the API is
// unreachable, or fails.
package result

import "fmt"

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result carries a value together with how it was obtained. Value is the
// fallback data when degraded and the zero value when failed.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Cause   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

func Degraded[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeDegraded, Cause: cause}
}

func Failed[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeFailed, Cause: err}
}

// Err returns the cause of a failed result, nil otherwise
func (r Result[T]) Err() error {
	if r.Outcome == OutcomeFailed {
		return r.Cause
	}
	return nil
}

func (r Result[T]) IsDegraded() bool {
	return r.Outcome == OutcomeDegraded
}

// Map converts the value of r with f, keeping its outcome and cause
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.Outcome == OutcomeFailed {
		return Failed[U](r.Cause)
	}
	return Result[U]{Value: f(r.Value), Outcome: r.Outcome, Cause: r.Cause}
}
