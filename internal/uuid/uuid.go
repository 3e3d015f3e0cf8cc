// Package uuid wraps UUID generation so the dependency is pinned in one place.
package uuid

import "github.com/google/uuid"

// New returns a random (v4) UUID string.
func New() string {
	return uuid.NewString()
}
