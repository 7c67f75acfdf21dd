// Package clock provides the injected time source. Domain and token logic never
// read system time directly so expiry behavior stays testable.
package clock

import "time"

// Clock returns the current UTC time.
type Clock interface {
	Now() time.Time
}

// System is the production clock.
type System struct{}

// Now returns the current time in UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a clock pinned to a settable instant. Intended for tests.
type Fixed struct {
	T time.Time
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the pinned instant forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
