package clock

import "time"

// Clock supplies the external monotonic time auction open/closed checks are
// evaluated against. No timers fire anywhere; closure is computed lazily.
type Clock interface {
	Now() time.Time
}

type system struct{}

func System() Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now()
}

// Fixed is a manually advanced clock for tests.
type Fixed struct {
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
