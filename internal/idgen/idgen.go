// Package idgen provides the unique-identifier collaborator injected into
// session controllers.
package idgen

import "github.com/google/uuid"

// UUID generates random UUIDv4 identifiers.
type UUID struct{}

// NewID returns a globally-unique opaque string.
func (UUID) NewID() string {
	return uuid.NewString()
}
