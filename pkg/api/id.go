package api

import (
	"strconv"

	"github.com/google/uuid"
)

// NewUserID generates a new random user identifier.
func NewUserID() uuid.UUID {
	return uuid.New()
}

// ParseUserID parses a user identifier from a path segment.
func ParseUserID(s string) (uuid.UUID, *APIError) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, NewInvalidRequestError("id", "malformed user ID")
	}
	return id, nil
}

// ParseProductID parses a product identifier from a path segment.
// Product IDs are positive integers assigned by the store.
func ParseProductID(s string) (int64, *APIError) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, NewInvalidRequestError("id", "malformed product ID")
	}
	return id, nil
}
