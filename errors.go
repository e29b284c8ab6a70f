package keel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeEntryNotFound indicates an identifier is not registered
	CodeEntryNotFound = "ENTRY_NOT_FOUND"

	// CodeFrozenEntry indicates an attempt to overwrite a resolved entry
	CodeFrozenEntry = "FROZEN_ENTRY"

	// CodeInvalidParameterKey indicates a malformed parameter key
	CodeInvalidParameterKey = "INVALID_PARAMETER_KEY"

	// CodeParameterNotFound indicates a parameter is not set
	CodeParameterNotFound = "PARAMETER_NOT_FOUND"

	// CodeMissingRequiredParameter indicates autowiring could not satisfy a
	// constructor parameter
	CodeMissingRequiredParameter = "MISSING_REQUIRED_PARAMETER"

	// CodeInvalidConstructor indicates a constructor cannot be analyzed
	CodeInvalidConstructor = "INVALID_CONSTRUCTOR"

	// CodeEntryError indicates a factory failed
	CodeEntryError = "ENTRY_ERROR"

	// CodeCircularDependency indicates a circular dependency was detected
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeTypeMismatch indicates a resolved value has an unexpected type
	CodeTypeMismatch = "TYPE_MISMATCH"

	// CodeAliasTargetMissing indicates an alias target does not exist
	CodeAliasTargetMissing = "ALIAS_TARGET_MISSING"

	// CodeAliasProtected indicates an alias is protected
	CodeAliasProtected = "ALIAS_PROTECTED"

	// CodeAliasInvalid indicates a malformed alias
	CodeAliasInvalid = "ALIAS_INVALID"

	// CodeAliasShadowed indicates an alias named like an existing entry
	CodeAliasShadowed = "ALIAS_SHADOWED"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrEntryNotFoundSentinel is the cause of every entry-not-found error.
	ErrEntryNotFoundSentinel = errs.NewError(CodeEntryNotFound, "entry not found", nil)

	// ErrFrozenEntrySentinel is the cause of every frozen-entry error.
	ErrFrozenEntrySentinel = errs.NewError(CodeFrozenEntry, "entry is frozen", nil)

	// ErrInvalidParameterKeySentinel is the cause of every invalid-key error.
	ErrInvalidParameterKeySentinel = errs.NewError(CodeInvalidParameterKey, "invalid parameter key", nil)

	// ErrParameterNotFoundSentinel is the cause of every parameter-not-found error.
	ErrParameterNotFoundSentinel = errs.NewError(CodeParameterNotFound, "parameter not found", nil)

	// ErrMissingRequiredParameterSentinel is the cause of every unresolved
	// constructor parameter error.
	ErrMissingRequiredParameterSentinel = errs.NewError(CodeMissingRequiredParameter, "missing required parameter", nil)

	// ErrCircularDependencySentinel is the cause of every cycle error.
	ErrCircularDependencySentinel = errs.NewError(CodeCircularDependency, "circular dependency", nil)

	// ErrTypeMismatchSentinel is the cause of every type mismatch error.
	ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

	// ErrInvalidConstructor is returned for values that are not usable constructors.
	ErrInvalidConstructor = errs.NewError(CodeInvalidConstructor, "invalid constructor", nil)

	// ErrAliasTargetMissing is reported when an alias target is unknown.
	ErrAliasTargetMissing = errs.NewError(CodeAliasTargetMissing, "alias target does not exist", nil)

	// ErrAliasProtected is reported when a protected alias would change.
	ErrAliasProtected = errs.NewError(CodeAliasProtected, "alias is protected", nil)

	// ErrAliasInvalid is reported for empty or self-referencing aliases.
	ErrAliasInvalid = errs.NewError(CodeAliasInvalid, "invalid alias", nil)

	// ErrAliasShadowed is reported when an entry already uses the alias name,
	// since entries take precedence over aliases during lookup.
	ErrAliasShadowed = errs.NewError(CodeAliasShadowed, "alias is shadowed by an entry", nil)
)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// ErrEntryNotFound creates an error for an unknown identifier.
func ErrEntryNotFound(id string) *errs.Error {
	return errs.NewError(
		CodeEntryNotFound,
		fmt.Sprintf("entry '%s' not found", id),
		ErrEntryNotFoundSentinel,
	).WithContext("entry", id).(*errs.Error)
}

// ErrFrozenEntry creates an error for an attempt to overwrite a resolved entry.
func ErrFrozenEntry(id string) *errs.Error {
	return errs.NewError(
		CodeFrozenEntry,
		fmt.Sprintf("entry '%s' is frozen and cannot be overwritten", id),
		ErrFrozenEntrySentinel,
	).WithContext("entry", id).(*errs.Error)
}

// ErrInvalidParameterKey creates an error for a malformed parameter key.
func ErrInvalidParameterKey(key string) *errs.Error {
	return errs.NewError(
		CodeInvalidParameterKey,
		fmt.Sprintf("invalid parameter key %q", key),
		ErrInvalidParameterKeySentinel,
	).WithContext("parameter", key).(*errs.Error)
}

// ErrParameterNotFound creates an error for an unset parameter.
func ErrParameterNotFound(key string) *errs.Error {
	return errs.NewError(
		CodeParameterNotFound,
		fmt.Sprintf("parameter '%s' not found", key),
		ErrParameterNotFoundSentinel,
	).WithContext("parameter", key).(*errs.Error)
}

// ErrMissingRequiredParameter creates an error for a constructor parameter
// autowiring could not satisfy.
func ErrMissingRequiredParameter(typeName, param string) *errs.Error {
	return errs.NewError(
		CodeMissingRequiredParameter,
		fmt.Sprintf("cannot resolve required parameter '%s' of %s", param, typeName),
		ErrMissingRequiredParameterSentinel,
	).WithContext("type", typeName).
		WithContext("parameter", param).(*errs.Error)
}

// NewEntryError creates an error for a failed entry operation.
func NewEntryError(id, operation string, cause error) *errs.Error {
	return errs.NewError(
		CodeEntryError,
		fmt.Sprintf("entry '%s' error during %s", id, operation),
		cause,
	).WithContext("entry", id).
		WithContext("operation", operation).(*errs.Error)
}

// ErrCircularDependency creates an error for a dependency cycle.
func ErrCircularDependency(cycle []string) *errs.Error {
	return errs.NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
		ErrCircularDependencySentinel,
	).WithContext("cycle", cycle).(*errs.Error)
}

// ErrTypeMismatch creates an error for a value of an unexpected type.
func ErrTypeMismatch(id string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("entry '%s' type mismatch: got %T", id, actual),
		ErrTypeMismatchSentinel,
	).WithContext("entry", id).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

// =============================================================================
// PREDICATES
// =============================================================================

// IsEntryNotFound reports whether err was caused by an unknown identifier.
func IsEntryNotFound(err error) bool {
	return HasCause(err, ErrEntryNotFoundSentinel)
}

// IsFrozenEntry reports whether err was caused by overwriting a frozen entry.
func IsFrozenEntry(err error) bool {
	return HasCause(err, ErrFrozenEntrySentinel)
}

// IsInvalidParameterKey reports whether err was caused by a malformed key.
func IsInvalidParameterKey(err error) bool {
	return HasCause(err, ErrInvalidParameterKeySentinel)
}

// IsParameterNotFound reports whether err was caused by an unset parameter.
func IsParameterNotFound(err error) bool {
	return HasCause(err, ErrParameterNotFoundSentinel)
}

// IsMissingRequiredParameter reports whether err was caused by an
// unresolvable constructor parameter.
func IsMissingRequiredParameter(err error) bool {
	return HasCause(err, ErrMissingRequiredParameterSentinel)
}

// IsCircularDependency reports whether err was caused by a dependency cycle.
func IsCircularDependency(err error) bool {
	return HasCause(err, ErrCircularDependencySentinel)
}

// IsTypeMismatch reports whether err was caused by a type mismatch.
func IsTypeMismatch(err error) bool {
	return HasCause(err, ErrTypeMismatchSentinel)
}

// HasCause reports whether sentinel appears in err's Unwrap chain or in the
// Cause chain of any errs.Error along it.
func HasCause(err error, sentinel error) bool {
	for err != nil {
		if errors.Is(err, sentinel) {
			return true
		}

		var e *errs.Error
		if !errors.As(err, &e) {
			return false
		}

		if e == sentinel {
			return true
		}

		err = e.Cause()
	}

	return false
}
