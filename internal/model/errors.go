package model

import "errors"

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Error is a domain error with a client-facing message and a kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrInventoryItemNotFound  = &Error{Kind: ErrNotFound, Message: "Inventory item not found"}
	ErrUserNotFound           = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrPreferencesNotFound    = &Error{Kind: ErrNotFound, Message: "User preferences not found"}
	ErrUsernameAlreadyExists  = &Error{Kind: ErrConflict, Message: "Username already exists"}
	ErrEmptyInventoryUpdate   = &Error{Kind: ErrValidation, Message: "no fields to update"}
	ErrPreferencesNotAnObject = &Error{Kind: ErrValidation, Message: "preferences must be a JSON object"}
)
