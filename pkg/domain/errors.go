package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports a missing target or parent entity. Parent existence
// is always checked before any uniqueness constraint, so a create against a
// missing parent yields this condition, never a generic constraint failure.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DuplicateError reports a unique-constraint violation on an id or name,
// surfaced from the backing store.
type DuplicateError struct {
	Entity EntityType
	Field  string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("%s with duplicate %s", e.Entity, e.Field)
}

// InvalidEnumError reports a value outside a fixed enumeration, surfaced
// from the store's type checks.
type InvalidEnumError struct {
	Field string
	Value string
}

func (e InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid %s value %q", e.Field, e.Value)
}

// KeyConflictError reports a fileset claim over keys that are absent from the
// import's namespace or already claimed. It is distinct from DuplicateError:
// the conflict is an application-level exclusivity violation, not a store
// uniqueness failure.
type KeyConflictError struct {
	ImportID string
	Keys     []string
}

func (e KeyConflictError) Error() string {
	return fmt.Sprintf("keys [%s] of import %s absent or already claimed",
		strings.Join(e.Keys, ", "), e.ImportID)
}

// InvalidStateError reports a request that violates a cross-field invariant,
// such as attaching images to a fileset without completing it.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string { return e.Reason }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var d DuplicateError
	return errors.As(err, &d)
}

// IsInvalidEnum reports whether err is an InvalidEnumError.
func IsInvalidEnum(err error) bool {
	var ie InvalidEnumError
	return errors.As(err, &ie)
}

// IsKeyConflict reports whether err is a KeyConflictError.
func IsKeyConflict(err error) bool {
	var kc KeyConflictError
	return errors.As(err, &kc)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var is InvalidStateError
	return errors.As(err, &is)
}
