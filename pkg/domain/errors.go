package domain

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded signals that the storage backend rejected a request
// because its provisioned throughput was exceeded. It is the only backend
// error the persistence layer retries.
var ErrCapacityExceeded = errors.New("backend capacity exceeded")

// ErrContextNotFound is returned when no persisted context exists for a
// conversation.
var ErrContextNotFound = errors.New("conversation context not found")

// ParseErrorKind classifies parse failures.
type ParseErrorKind int

const (
	// ErrSyntax is a positioned grammar mismatch.
	ErrSyntax ParseErrorKind = iota
	// ErrIncomplete means the source ended before a construct closed.
	// Incomplete errors carry no position.
	ErrIncomplete
	// ErrDuplicateStep means two top-level instructions share a type.
	ErrDuplicateStep
)

// ParseError is a positioned structural error surfaced before any
// execution. It is never retried.
type ParseError struct {
	Kind     ParseErrorKind
	Message  string
	Interval Interval
}

func (e *ParseError) Error() string {
	if e.Interval == (Interval{}) {
		return e.Message
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Interval.Line, e.Interval.Column)
}

// StepNotFoundError is fatal: the flow or step an execution references does
// not exist.
type StepNotFoundError struct {
	Flow string
	Step string
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("step [%s] does not exist in flow [%s]", e.Step, e.Flow)
}

// NotRememberedError is recoverable: an expression referenced a variable
// before it was saved in memory (or before it was re-populated on resume).
// The interpreter converts it into an error-content message and continues.
type NotRememberedError struct {
	Name string
	At   Interval
}

func (e *NotRememberedError) Error() string {
	return fmt.Sprintf("< %s > is used before it was saved in memory at line %d, column %d",
		e.Name, e.At.Line, e.At.Column)
}
