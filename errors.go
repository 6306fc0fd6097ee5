package loom

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindContract indicates a programming error in the component tree:
	// hooks called in a different order, duplicate sibling keys, malformed elements.
	KindContract
	// KindEnvironment indicates a failure of the terminal or output sink.
	KindEnvironment
	// KindTask indicates a failed or panicking async task.
	KindTask
)

func (k ErrorKind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindEnvironment:
		return "environment"
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// Sentinel errors wrapped by *Error.
var (
	ErrSlotMismatch    = errors.New("hook order changed between renders")
	ErrDuplicateKey    = errors.New("duplicate key among siblings")
	ErrInvalidElement  = errors.New("invalid element")
	ErrInvalidDeps     = errors.New("effect dependency is not comparable")
	ErrUnsupportedFile = errors.New("unsupported options file")
)

// Error is a structured loom error.
type Error struct {
	// Op is the operation that failed (e.g. "reconcile", "screen.flush").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("loom: %s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind when its Op and Err are empty, so
// errors.Is(err, &Error{Kind: KindContract}) tests the category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// contractf panics with a contract violation. The tree's invariants no
// longer hold, so nothing is recovered below Run.
func contractf(op string, sentinel error, format string, args ...any) {
	panic(&Error{Op: op, Kind: KindContract, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)})
}

func envError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: KindEnvironment, Err: err}
}

// PanicError carries a value recovered from a panic.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("loom: panic in %s: %v", e.Op, e.Value)
}
