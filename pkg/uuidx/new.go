package uuidx

import "github.com/google/uuid"

// New generates a new UUID using the version 7 format and returns it.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new version 7 UUID and returns it as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a new version 7 UUID string with the given kind prefix,
// e.g. "msg_0192f3c4-...". Version 7 keeps ids of the same kind sortable by
// creation time, which the stores rely on for stable listings.
func Prefixed(kind string) string {
	if kind == "" {
		return NewString()
	}
	return kind + "_" + NewString()
}
