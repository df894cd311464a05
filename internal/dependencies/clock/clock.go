// Package clock abstracts the wall clock so services can be tested with a fixed time.
package clock

import "time"

// Clock provides the current time to services
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC without a monotonic reading, so a
// timestamp compares equal to itself after a round trip through any storage
// backend.
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Round(0)
}
