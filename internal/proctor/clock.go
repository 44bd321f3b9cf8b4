package proctor

import "time"

// Timer is a pending callback scheduled on a Clock.
type Timer interface {
	Stop() bool
}

// Clock is the controller's source of time and of scheduled callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Remaining returns the time left until end, never negative.
// It is recomputed from the authoritative end timestamp on every call so a
// missed tick cannot make the countdown drift.
func Remaining(now, end time.Time) time.Duration {
	d := end.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// secondsLeft rounds the remaining time up so the display reaches 0 only
// when the session has actually expired.
func secondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
