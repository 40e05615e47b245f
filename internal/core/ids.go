package core

import (
	"time"

	"github.com/google/uuid"
)

// Ports for ambient time and identity, injected so that stores and codecs
// stay deterministic under test.
type (
	Clock interface {
		Now() time.Time
	}

	IDGenerator interface {
		NewID() string
	}
)

// SystemClock reads the wall clock in the local time zone.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Timestamp returns the clock's current instant in UTC, without the
// monotonic reading, as stored in createdAt and updatedAt.
func Timestamp(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Millisecond)
}
