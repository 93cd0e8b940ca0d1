package util

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a random (v4) UUID string used for order, event and
// outbox message ids.
func GenerateUUID() string {
	return uuid.NewString()
}
