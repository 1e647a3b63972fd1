// Package errdefs defines the error kinds surfaced by the omzet engine and
// helpers to classify wrapped errors. Callers wrap these sentinels with
// fmt.Errorf("...: %w", ...) so that transport layers can map any error in
// a chain to an HTTP status without knowing its origin.
package errdefs

import "errors"

var (
	// ErrValidation marks malformed input or a missing required field
	ErrValidation = errors.New("validation failed")

	// ErrPermission marks a caller lacking the role for an action
	ErrPermission = errors.New("permission denied")

	// ErrNotFound marks a reference to an entity that does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate reservation, a stale version, or any
	// other state collision the caller can resolve by changing the request
	ErrConflict = errors.New("conflict")

	// ErrExhausted marks a request that could not be fully satisfied, such
	// as too few available records
	ErrExhausted = errors.New("exhausted")

	// ErrDependency marks a persistence or downstream collaborator failure
	ErrDependency = errors.New("dependency failed")

	// ErrInternal marks a detected invariant violation; always a bug
	ErrInternal = errors.New("internal error")
)

// IsValidation reports whether err wraps ErrValidation
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsPermission reports whether err wraps ErrPermission
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err wraps ErrConflict
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsExhausted reports whether err wraps ErrExhausted
func IsExhausted(err error) bool { return errors.Is(err, ErrExhausted) }

// IsDependency reports whether err wraps ErrDependency
func IsDependency(err error) bool { return errors.Is(err, ErrDependency) }

// IsInternal reports whether err wraps ErrInternal
func IsInternal(err error) bool { return errors.Is(err, ErrInternal) }
