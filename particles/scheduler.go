package particles

import "time"

// DefaultTickInterval is the 30 Hz simulation cadence.
const DefaultTickInterval = time.Second / 30

// Scheduler runs a task at a fixed delay after each request, with at most
// one request pending. It has no goroutines: the owner calls Poll from its
// main loop, which keeps every buffer operation on the thread that owns the
// GL context.
type Scheduler struct {
	interval time.Duration
	task     func() error

	pending bool
	due     time.Time
}

// NewScheduler creates a scheduler. A non-positive interval selects
// DefaultTickInterval.
func NewScheduler(interval time.Duration, task func() error) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{interval: interval, task: task}
}

// Interval returns the delay between a request and its tick.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// RequestStep arms a tick due at now+interval. It does nothing and returns
// false while a tick is already pending.
func (s *Scheduler) RequestStep(now time.Time) bool {
	if s.pending {
		return false
	}
	s.pending = true
	s.due = now.Add(s.interval)
	return true
}

// Poll runs the pending task if it is due. The pending flag stays set while
// the task runs, so requests made from inside the task are ignored.
func (s *Scheduler) Poll(now time.Time) (bool, error) {
	if !s.pending || now.Before(s.due) {
		return false, nil
	}
	err := s.task()
	s.pending = false
	return true, err
}

// Cancel drops the pending tick, if any.
func (s *Scheduler) Cancel() {
	s.pending = false
	s.due = time.Time{}
}

// Pending reports whether a tick is armed.
func (s *Scheduler) Pending() bool { return s.pending }
