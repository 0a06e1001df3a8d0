package sdk

import (
	"errors"
	"fmt"
)

// Code is a vendor SDK return code. Success is zero, failures are
// negative, matching the convention of the underlying C SDK.
type Code int32

const (
	CodeNone     Code = 0
	CodeInternal Code = -1
	CodeMemory   Code = -2
	CodeUnit     Code = -3
	CodeParam    Code = -4
	CodeEmpty    Code = -5
	CodeFull     Code = -6
	CodeNotFound Code = -7
	CodeExists   Code = -8
	CodeTimeout  Code = -9
	CodeBusy     Code = -10
	CodeFail     Code = -11
	CodeDisabled Code = -12
	CodeBadID    Code = -13
	CodeResource Code = -14
	CodeConfig   Code = -15
	CodeUnavail  Code = -16
	CodeInit     Code = -17
	CodePort     Code = -18
)

var codeNames = map[Code]string{
	CodeNone:     "Ok",
	CodeInternal: "Internal error",
	CodeMemory:   "Out of memory",
	CodeUnit:     "Invalid unit",
	CodeParam:    "Invalid parameter",
	CodeEmpty:    "Table empty",
	CodeFull:     "Table full",
	CodeNotFound: "Entry not found",
	CodeExists:   "Entry exists",
	CodeTimeout:  "Operation timed out",
	CodeBusy:     "Device busy",
	CodeFail:     "Operation failed",
	CodeDisabled: "Operation disabled",
	CodeBadID:    "Invalid identifier",
	CodeResource: "No resources",
	CodeConfig:   "Invalid configuration",
	CodeUnavail:  "Feature unavailable",
	CodeInit:     "Not initialized",
	CodePort:     "Invalid port",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown code %d", int32(c))
}

// StatusError is a failed SDK call.
type StatusError struct {
	Op   string
	Code Code
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v (%d)", e.Op, e.Code, int32(e.Code))
}

// Errorf builds a StatusError or returns nil when code is CodeNone.
func Errorf(code Code, format string, args ...any) error {
	if code >= CodeNone {
		return nil
	}
	return &StatusError{Op: fmt.Sprintf(format, args...), Code: code}
}

// CodeOf extracts the SDK code from an error chain. Errors that carry
// no StatusError report CodeFail.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeFail
}

// IsExists reports whether err is the duplicate-state code. Callers use
// it to treat "already in the requested state" as success.
func IsExists(err error) bool {
	return CodeOf(err) == CodeExists
}

func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

func IsUnavail(err error) bool {
	return CodeOf(err) == CodeUnavail
}
