package core

import (
	"errors"
	"fmt"
)

// Pipeline error sentinels. Match with errors.Is; the typed errors below
// unwrap to one of these.
var (
	ErrLoad         = errors.New("invalid csv")
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyFile    = errors.New("empty file")

	ErrUnitNotFound  = errors.New("transform not found")
	ErrUnitMalformed = errors.New("transform is malformed")
	ErrUnitRuntime   = errors.New("transform failed")
	ErrUnitContract  = errors.New("transform returned an invalid table")

	ErrEncode = errors.New("export failed")

	ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")
	ErrNoInput     = errors.New("no input file loaded")
	ErrNoResult    = errors.New("no result available")
)

// ParseError reports why an upload could not be loaded as a table.
type ParseError struct {
	Line   int // 1-based line of the failure, 0 if unknown
	Column int // 1-based field, 0 if unknown
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("invalid csv: line %d, field %d: %v", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("invalid csv: line %d: %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("invalid csv: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() []error { return []error{ErrLoad, e.Err} }

// UnitErrorKind classifies transform failures.
type UnitErrorKind int

const (
	UnitNotFound UnitErrorKind = iota
	UnitMalformed
	UnitRuntime
	UnitContract
)

func (k UnitErrorKind) sentinel() error {
	switch k {
	case UnitNotFound:
		return ErrUnitNotFound
	case UnitMalformed:
		return ErrUnitMalformed
	case UnitRuntime:
		return ErrUnitRuntime
	default:
		return ErrUnitContract
	}
}

func (k UnitErrorKind) String() string {
	switch k {
	case UnitNotFound:
		return "not_found"
	case UnitMalformed:
		return "malformed"
	case UnitRuntime:
		return "runtime"
	default:
		return "contract"
	}
}

// UnitError is returned by Execute. Step is empty when the failure is not
// attributable to a single step.
type UnitError struct {
	Unit string
	Step string
	Kind UnitErrorKind
	Err  error
}

func (e *UnitError) Error() string {
	msg := fmt.Sprintf("%s %q", e.Kind.sentinel(), e.Unit)
	if e.Step != "" {
		msg += fmt.Sprintf(" (step %s)", e.Step)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// EncodeError reports a table that could not be serialized.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "export failed: " + e.Err.Error() }

func (e *EncodeError) Unwrap() []error { return []error{ErrEncode, e.Err} }
