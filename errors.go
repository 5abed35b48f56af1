package hanagate

import (
	"errors"
	"fmt"
)

// Stable error codes attached to failed QueryResults and used by typed
// errors.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeBackend    = "BACKEND_ERROR"
	CodeStorage    = "STORAGE_ERROR"
)

// ValidationError reports missing or malformed caller input: an empty
// SQL string, a profile without required fields, an empty export set.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Kind string // "connection", "history entry"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// BackendError reports that the execution backend failed: network,
// auth, or SQL rejected by the real engine.
type BackendError struct {
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BackendError) Unwrap() error { return e.Err }

// StorageError reports a persistence-layer failure. It is surfaced only
// where the contract demands a confirmed write (registry mutations);
// history appends swallow it into a boolean return instead.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// errorCode maps a typed error to its stable code. Unclassified errors
// count as backend failures.
func errorCode(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var se *StorageError
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &nf):
		return CodeNotFound
	case errors.As(err, &se):
		return CodeStorage
	default:
		return CodeBackend
	}
}
