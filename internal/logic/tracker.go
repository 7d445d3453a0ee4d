package logic

import "time"

// Tracker debounces the power LED input into a stable logical level.
//
// A new level is only trusted after it has been read continuously for the
// threshold duration. Once a stable level exists, any reading that agrees
// with it restarts the candidate window, so short spikes are discarded.
type Tracker struct {
	threshold time.Duration

	started        bool
	candidate      bool
	candidateSince time.Time

	stable     bool
	hasStable  bool
	lastChange time.Time

	observed bool
}

// NewTracker creates a tracker that promotes a level after threshold.
func NewTracker(threshold time.Duration) *Tracker {
	return &Tracker{threshold: threshold}
}

// Seed treats level as already stable at now. Used at boot so the power
// status can be derived before the first full threshold window elapses.
func (t *Tracker) Seed(level bool, now time.Time) {
	t.started = true
	t.candidate = level
	t.candidateSince = now
	t.stable = level
	t.hasStable = true
	t.lastChange = now
}

// Sample feeds one raw reading taken at now. It must be called once per loop
// tick. Returns true when the stable level was assigned or changed.
func (t *Tracker) Sample(level bool, now time.Time) bool {
	if !t.started {
		t.started = true
		t.candidate = level
		t.candidateSince = now
	}

	if level != t.candidate {
		t.candidate = level
		t.candidateSince = now
	}

	if !t.hasStable {
		if now.Sub(t.candidateSince) >= t.threshold {
			t.stable = t.candidate
			t.hasStable = true
			t.lastChange = now
			return true
		}
		return false
	}

	if level == t.stable {
		t.candidate = level
		t.candidateSince = now
		return false
	}

	if level == t.candidate {
		if now.Sub(t.candidateSince) >= t.threshold {
			t.stable = level
			t.lastChange = now
			return true
		}
		return false
	}

	// Fresh spike: restart the candidate window without promoting the old one.
	t.candidate = level
	t.candidateSince = now
	return false
}

// HasStable reports whether a stable level has been established.
func (t *Tracker) HasStable() bool {
	return t.hasStable
}

// Stable returns the stable level. Meaningless until HasStable is true.
func (t *Tracker) Stable() bool {
	return t.stable
}

// MarkObserved records that the LED status has been reported at least once.
// Returns true the first time it takes effect.
func (t *Tracker) MarkObserved() bool {
	if t.observed || !t.hasStable {
		return false
	}
	t.observed = true
	return true
}

// Snapshot returns the tracker's reportable state.
func (t *Tracker) Snapshot() LEDSnapshot {
	return LEDSnapshot{
		HasStable:  t.hasStable,
		Stable:     t.stable,
		LastChange: t.lastChange,
		Observed:   t.observed,
	}
}
