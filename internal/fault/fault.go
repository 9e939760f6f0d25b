package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind string

const (
	// MissingDependency indicates a prerequisite tool or library was never configured.
	MissingDependency Kind = "MissingDependency"
	// VersionMismatch indicates two components that must share a version disagree.
	VersionMismatch Kind = "VersionMismatch"
	// UnsupportedBackend indicates the compiler backend lacks the required codegen target.
	UnsupportedBackend Kind = "UnsupportedBackend"
	// IncompatibleToolkit indicates the toolkit is newer than the driver.
	IncompatibleToolkit Kind = "IncompatibleToolkit"
	// NoCompatibleTarget indicates an empty device-target intersection.
	NoCompatibleTarget Kind = "NoCompatibleTarget"
	// NoCompatibleInstructionSet indicates an empty ISA intersection.
	NoCompatibleInstructionSet Kind = "NoCompatibleInstructionSet"
	// NoCompatibleArtifact indicates no artifact candidate could be materialized.
	NoCompatibleArtifact Kind = "NoCompatibleArtifact"
	// MissingRequiredBinary indicates a required toolkit binary is absent.
	MissingRequiredBinary Kind = "MissingRequiredBinary"
	// MissingRequiredArtifact indicates a required toolkit library or data file is absent.
	MissingRequiredArtifact Kind = "MissingRequiredArtifact"
)

// Error is a typed resolution failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// New creates a failure of the given kind.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a failure of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
