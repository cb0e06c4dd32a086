package state

import "github.com/google/uuid"

// NewID returns a fresh element, group or site id.
func NewID() string {
	return uuid.NewString()
}
