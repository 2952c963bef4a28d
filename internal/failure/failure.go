// Package failure classifies the ways a scenario step can go wrong.
//
// Every failed step and assertion in a report carries one Kind. A session
// acquisition failure aborts the run before any step executes.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the category of a step failure.
type Kind int

const (
	// None is the zero Kind, used for passing results.
	None Kind = iota
	ElementNotFound
	Timeout
	AssertionFailed
	PreconditionFailed
	SessionAcquisitionFailed
)

var kindNames = map[Kind]string{
	None:                     "none",
	ElementNotFound:          "element_not_found",
	Timeout:                  "timeout",
	AssertionFailed:          "assertion_failed",
	PreconditionFailed:       "precondition_failed",
	SessionAcquisitionFailed: "session_acquisition_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name so reports stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", string(text))
}

// Error is a classified failure. Op names the operation that failed, for
// example "click .admin-link".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error of the same kind, so callers can write
// errors.Is(err, &failure.Error{Kind: failure.Timeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New creates a classified error with a formatted cause.
func New(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
// Deadline errors map to Timeout; anything unclassified maps to
// PreconditionFailed.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return PreconditionFailed
}
