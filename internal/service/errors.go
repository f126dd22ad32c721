package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidationError reports a missing or malformed payload field. The field
// name always travels with the message so the submitter can correct it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NotFoundOrSkipError marks a benign no-op: the contribution was not in an
// applicable state, or a referenced handle does not exist. Not an alarm.
type NotFoundOrSkipError struct {
	Message string
}

func (e *NotFoundOrSkipError) Error() string {
	return fmt.Sprintf("not applicable: %s", e.Message)
}

// ReferentialIntegrityError blocks a person deletion while families still
// reference the handle. Blocking holds every linking family handle.
type ReferentialIntegrityError struct {
	PersonHandle string
	Blocking     []string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("person %s is referenced by %d families (%s)",
		e.PersonHandle, len(e.Blocking), strings.Join(e.Blocking, ", "))
}

// PermissionError is returned before any storage access when the caller
// lacks the required role. The message is deliberately a bare category.
type PermissionError struct {
	Role Role
}

func (e *PermissionError) Error() string {
	return "permission denied"
}

// PersistenceError wraps an underlying storage failure. The contribution
// stays unsealed when it surfaces from an apply, so a retry is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsSkip returns true if err marks a benign no-op.
func IsSkip(err error) bool {
	var e *NotFoundOrSkipError
	return errors.As(err, &e)
}

// IsPermission returns true if err is a permission error.
func IsPermission(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}

// IsIntegrity returns true if err is a referential integrity error.
func IsIntegrity(err error) bool {
	var e *ReferentialIntegrityError
	return errors.As(err, &e)
}

// collectViolations appends err to the accumulated multierror, used by the
// consistency scan to report every broken link at once.
func collectViolations(acc error, format string, args ...any) error {
	return multierror.Append(acc, fmt.Errorf(format, args...))
}
