// Package errs defines the failure kinds surfaced by the pipeline, loader and
// KPI engines. Callers match kinds with errors.Is against the sentinels.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema: a required column or table is absent.
	ErrSchema = errors.New("schema error")
	// ErrDataNotFound: an expected canonical or staged file is absent.
	ErrDataNotFound = errors.New("data not found")
	// ErrConnectivity: the relational store is unreachable.
	ErrConnectivity = errors.New("store unreachable")
	// ErrValidation: a row or parameter fails a required-field check.
	ErrValidation = errors.New("validation error")
	// ErrTransform: unexpected failure while cleaning a batch.
	ErrTransform = errors.New("transform error")
)

// Error is a classified failure with an optional remediation hint.
type Error struct {
	Kind   error
	Msg    string
	Remedy string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Remedy != "" {
		b.WriteString(" (")
		b.WriteString(e.Remedy)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Schema(remedy, format string, args ...any) error {
	return &Error{Kind: ErrSchema, Msg: fmt.Sprintf(format, args...), Remedy: remedy}
}

func DataNotFound(remedy, format string, args ...any) error {
	return &Error{Kind: ErrDataNotFound, Msg: fmt.Sprintf(format, args...), Remedy: remedy}
}

func Connectivity(err error, remedy string) error {
	return &Error{Kind: ErrConnectivity, Msg: "cannot connect to database", Remedy: remedy, Err: err}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func Transform(err error, format string, args ...any) error {
	return &Error{Kind: ErrTransform, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the sentinel err was classified with, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrSchema, ErrDataNotFound, ErrConnectivity, ErrValidation, ErrTransform} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
