// Package reboot schedules the controller's own restart.
package reboot

import "time"

// Rebooter restarts the device. A successful Reboot never returns.
type Rebooter interface {
	Reboot() error
}

// Scheduler holds at most one pending reboot request and fires it once its
// delay has elapsed. A request made while one is pending is rejected, never
// merged or rescheduled. Once fired the reboot cannot be cancelled.
type Scheduler struct {
	rebooter Rebooter
	before   func()

	pending bool
	fireAt  time.Time
	delay   time.Duration
}

// NewScheduler creates a scheduler. before runs immediately ahead of the
// reboot and must force every control line idle. A nil rebooter makes the
// scheduler unavailable.
func NewScheduler(r Rebooter, before func()) *Scheduler {
	return &Scheduler{rebooter: r, before: before}
}

// Available reports whether this platform can reboot at all.
func (s *Scheduler) Available() bool {
	return s.rebooter != nil
}

// Schedule requests a reboot delay after now. Returns false, changing
// nothing, if a request is already pending or rebooting is unavailable.
func (s *Scheduler) Schedule(delay time.Duration, now time.Time) bool {
	if s.pending || !s.Available() {
		return false
	}
	if delay < 0 {
		delay = 0
	}
	s.pending = true
	s.delay = delay
	s.fireAt = now.Add(delay)
	return true
}

// Poll fires the pending reboot if it is due at now. On real hardware a fired
// reboot does not return. fired is true if a reboot was attempted; err is the
// reason it came back.
func (s *Scheduler) Poll(now time.Time) (fired bool, err error) {
	if !s.pending || now.Before(s.fireAt) {
		return false, nil
	}
	s.pending = false
	if s.before != nil {
		s.before()
	}
	return true, s.rebooter.Reboot()
}

// Pending reports whether a reboot is scheduled and has not fired.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Remaining returns the time left before the pending reboot fires, or 0.
func (s *Scheduler) Remaining(now time.Time) time.Duration {
	if !s.pending {
		return 0
	}
	if d := s.fireAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Delay returns the delay originally requested for the current or last request.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// FakeRebooter counts reboot attempts instead of restarting.
type FakeRebooter struct {
	Calls int
	Err   error
}

// Reboot records the call and returns Err.
func (f *FakeRebooter) Reboot() error {
	f.Calls++
	return f.Err
}
