package particles

import (
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(0, func() error { return nil })
	if s.Interval() != DefaultTickInterval {
		t.Errorf("Interval = %v, want %v", s.Interval(), DefaultTickInterval)
	}
	if DefaultTickInterval < 33*time.Millisecond || DefaultTickInterval > 34*time.Millisecond {
		t.Errorf("DefaultTickInterval = %v, want ~33.3ms", DefaultTickInterval)
	}
}

func TestScheduler_RunsWhenDue(t *testing.T) {
	runs := 0
	s := NewScheduler(10*time.Millisecond, func() error { runs++; return nil })

	if !s.RequestStep(epoch) {
		t.Fatal("first request should arm")
	}
	if ran, _ := s.Poll(epoch.Add(9 * time.Millisecond)); ran {
		t.Error("ran before due")
	}
	ran, err := s.Poll(epoch.Add(10 * time.Millisecond))
	if !ran || err != nil {
		t.Errorf("Poll at due = (%v, %v), want (true, nil)", ran, err)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if s.Pending() {
		t.Error("still pending after running")
	}
	if ran, _ := s.Poll(epoch.Add(time.Second)); ran {
		t.Error("ran again without a request")
	}
}

func TestScheduler_InFlightGuard(t *testing.T) {
	runs := 0
	s := NewScheduler(10*time.Millisecond, func() error { runs++; return nil })

	s.RequestStep(epoch)
	if s.RequestStep(epoch.Add(5 * time.Millisecond)) {
		t.Error("second request should be ignored while pending")
	}
	// The original due time stands
	if ran, _ := s.Poll(epoch.Add(10 * time.Millisecond)); !ran {
		t.Error("pending tick did not run at its original due time")
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if !s.RequestStep(epoch.Add(10 * time.Millisecond)) {
		t.Error("request after the tick ran should arm")
	}
}

func TestScheduler_RequestFromTaskIgnored(t *testing.T) {
	var s *Scheduler
	armed := true
	s = NewScheduler(time.Millisecond, func() error {
		armed = s.RequestStep(epoch)
		return nil
	})

	s.RequestStep(epoch)
	s.Poll(epoch.Add(time.Millisecond))
	if armed {
		t.Error("request made while the task ran should not arm")
	}
	if s.Pending() {
		t.Error("pending after task completed")
	}
}

func TestScheduler_Cancel(t *testing.T) {
	runs := 0
	s := NewScheduler(10*time.Millisecond, func() error { runs++; return nil })

	s.RequestStep(epoch)
	s.Cancel()
	if s.Pending() {
		t.Error("pending after Cancel")
	}
	if ran, _ := s.Poll(epoch.Add(time.Second)); ran || runs != 0 {
		t.Error("cancelled tick ran")
	}
	s.Cancel()
}

func TestScheduler_TaskError(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(time.Millisecond, func() error { return boom })

	s.RequestStep(epoch)
	ran, err := s.Poll(epoch.Add(time.Millisecond))
	if !ran || !errors.Is(err, boom) {
		t.Errorf("Poll = (%v, %v), want (true, boom)", ran, err)
	}
	if s.Pending() {
		t.Error("failed task left the scheduler pending")
	}
}
