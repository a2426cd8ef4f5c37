package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix, used for events.
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// NewOrderNumber generates a human-readable order number like KL-482913.
// Uniqueness is enforced by the primary key; the creation path retries a
// colliding insert with a fresh number.
func NewOrderNumber() string {
	return fmt.Sprintf("KL-%06d", rand.Intn(1000000))
}

// GetCurrentTime returns the current time in UTC.
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
