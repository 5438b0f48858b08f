package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input caught before any
// write reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity EntityType
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ConflictError reports a uniqueness or state-precondition violation, such
// as reassigning an already-assigned receipt or reusing a lot number.
type ConflictError struct {
	Entity EntityType
	Key    string
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %q conflict: %s", e.Entity, e.Key, e.Reason)
}

// ReferentialIntegrityError reports a deletion that would orphan dependent
// records and break traceability.
type ReferentialIntegrityError struct {
	Entity       EntityType
	Key          string
	ReferencedBy EntityType
	ReferenceKey string
}

func (e ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %q still referenced by %s %q", e.Entity, e.Key, e.ReferencedBy, e.ReferenceKey)
}

// SchemaVersionError reports a store opened at an incompatible (future)
// schema version. The only recovery path is a destructive reset.
type SchemaVersionError struct {
	Found     int
	Supported int
}

func (e SchemaVersionError) Error() string {
	return fmt.Sprintf("store schema version %d is newer than supported version %d", e.Found, e.Supported)
}

// StorageError wraps an underlying persistence failure so callers can decide
// on retry without parsing driver errors.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsReferentialIntegrity reports whether err is (or wraps) a ReferentialIntegrityError.
func IsReferentialIntegrity(err error) bool {
	var re ReferentialIntegrityError
	return errors.As(err, &re)
}

// IsSchemaVersion reports whether err is (or wraps) a SchemaVersionError.
func IsSchemaVersion(err error) bool {
	var sv SchemaVersionError
	return errors.As(err, &sv)
}
