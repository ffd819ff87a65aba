package protocol

import "time"

// Clock abstracts time for delay steps and scheduled trigger matching so
// tests can run deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
