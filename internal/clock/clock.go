// Package clock abstracts time for the engines so tests can pin
// timestamps and snapshot ids deterministically.
package clock

import "time"

// Clock supplies the current time. Engines never read the wall clock
// directly; they always go through an injected Clock.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// ISO renders a time as the second-resolution UTC timestamp format used
// by every record in the store, e.g. "2026-08-23T14:03:07Z".
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
