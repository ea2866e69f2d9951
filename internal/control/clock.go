package control

import "time"

// Clock abstracts wall time and timer creation so evaluator timing
// (afterruns, preruns, grace windows) is testable without sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run after d on an arbitrary goroutine.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

// RealClock returns a Clock backed by time.Now and time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
