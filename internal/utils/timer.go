package utils

import "time"

// Timer measures the wall-clock time of one operation, e.g. a runner call.
// It starts when created.
type Timer struct {
	start    time.Time
	duration time.Duration
	stopped  bool
}

// NewTimer returns a started Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop freezes the elapsed time and returns it. Later calls return the
// frozen value.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Elapsed returns the frozen duration once stopped, or the time since start.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.start)
}

// Milliseconds returns Elapsed as fractional milliseconds, the unit used by
// duration histograms.
func (t *Timer) Milliseconds() float64 {
	return float64(t.Elapsed()) / float64(time.Millisecond)
}
