package tool

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode identifies the lifecycle step that failed
type ErrorCode string

const (
	CodeMetadataParse ErrorCode = "METADATA_PARSE"
	CodeStore         ErrorCode = "STORE"
	CodeInstall       ErrorCode = "INSTALL"
	CodeCompile       ErrorCode = "COMPILE"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeMetadataLoad  ErrorCode = "METADATA_LOAD"
	CodeNotCompiled   ErrorCode = "NOT_COMPILED"
	CodeImport        ErrorCode = "IMPORT"
	CodeInvalidExport ErrorCode = "INVALID_EXPORT"
	CodeList          ErrorCode = "LIST"
	CodeLoadAll       ErrorCode = "LOAD_ALL"
)

// Sentinel errors for errors.Is checks. Matching is by code only.
var (
	ErrMetadataParse = &Error{Code: CodeMetadataParse}
	ErrStore         = &Error{Code: CodeStore}
	ErrInstall       = &Error{Code: CodeInstall}
	ErrCompile       = &Error{Code: CodeCompile}
	ErrNotFound      = &Error{Code: CodeNotFound}
	ErrMetadataLoad  = &Error{Code: CodeMetadataLoad}
	ErrNotCompiled   = &Error{Code: CodeNotCompiled}
	ErrImport        = &Error{Code: CodeImport}
	ErrInvalidExport = &Error{Code: CodeInvalidExport}
	ErrList          = &Error{Code: CodeList}
	ErrLoadAll       = &Error{Code: CodeLoadAll}
)

// Error is a structured failure of one tool lifecycle step.
// Format: "[CODE] tool=name message: cause".
type Error struct {
	Code    ErrorCode
	Tool    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s]", e.Code)
	if e.Tool != "" {
		msg += fmt.Sprintf(" tool=%s", e.Tool)
	}
	if e.Message != "" {
		msg += " " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, name, message string, cause error) *Error {
	return &Error{Code: code, Tool: name, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadAllError aggregates the per-tool failures of Manager.LoadAll
type LoadAllError struct {
	Failures map[string]error
}

func (e *LoadAllError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Failures[name].Error())
	}
	return fmt.Sprintf("[%s] %d of the tools failed to load: %s", CodeLoadAll, len(names), strings.Join(parts, "; "))
}

// Unwrap exposes every per-tool failure to errors.Is and errors.As
func (e *LoadAllError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		errs = append(errs, err)
	}
	return errs
}

// Is matches ErrLoadAll
func (e *LoadAllError) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Code == CodeLoadAll
}
