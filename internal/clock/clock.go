// Package clock supplies the wall clock that voting windows are checked
// against. Journal ordering does not depend on it: seqs are assigned by the
// store.
package clock

import "time"

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// System is the process wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts a function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}
