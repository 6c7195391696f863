package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrServerOffline indicates the CRM server is unreachable
	ErrServerOffline = errors.New("crm server is unreachable")

	// ErrAuthFailed indicates the token was rejected; session handling is up to the caller
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrUnknownUser indicates the current agent's id could not be determined
	ErrUnknownUser = errors.New("current user is unknown")

	// ErrDuplicateNote indicates a note id is already present in the cache
	ErrDuplicateNote = errors.New("note id already cached")

	// ErrEmptyNote indicates a note with no text was submitted
	ErrEmptyNote = errors.New("note text is empty")

	// ErrEditInProgress indicates another field of the entity is being edited
	ErrEditInProgress = errors.New("another field is being edited")

	// ErrNotEditing indicates an edit operation was attempted with no field open
	ErrNotEditing = errors.New("no field is being edited")

	// ErrUnknownField indicates the field key is not editable on this entity
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidValue indicates a field value does not match the field type
	ErrInvalidValue = errors.New("invalid field value")

	// ErrHandleReleased indicates a handle was used after release
	ErrHandleReleased = errors.New("resource handle released")

	// ErrSuperseded indicates a newer request replaced this one before it finished
	ErrSuperseded = errors.New("request superseded")

	// ErrClosed indicates the owning view was closed
	ErrClosed = errors.New("view closed")
)
