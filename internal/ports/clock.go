package ports

import "time"

// Clock abstracts time so the worker can be driven by simulated time in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d. It is not cancellable.
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
