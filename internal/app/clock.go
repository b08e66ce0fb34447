package app

import "github.com/jonboulle/clockwork"

// Clock is the time source for the debounce window, lookup durations and
// feed timestamps. Tests drive it with clockwork.NewFakeClock.
type Clock = clockwork.Clock

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return clockwork.NewRealClock()
}
