package uid

import "github.com/google/uuid"

// New generates a new request identifier.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether id is a well-formed UUID. Incoming X-Request-ID
// values that fail this are replaced rather than echoed back.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
