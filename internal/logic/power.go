package logic

import "time"

// PowerMachine tracks the inferred power state of the host.
//
// The state is derived once from the first stable LED level and afterwards
// only moves when an action completes. Later LED changes never move it.
type PowerMachine struct {
	status  PowerStatus
	derived bool
}

// NewPowerMachine returns a machine in the Unknown state.
func NewPowerMachine() *PowerMachine {
	return &PowerMachine{status: PowerStatus{State: PowerUnknown}}
}

// Derive sets the initial state from the LED tracker. It takes effect at most
// once, on the first call where led.HasStable is true, and only if no action
// has already decided the state. Returns true if the state was set.
func (m *PowerMachine) Derive(led LEDSnapshot, now time.Time) bool {
	if m.derived || !led.HasStable {
		return false
	}
	m.derived = true
	if m.status.State != PowerUnknown {
		return false
	}
	m.status.State = PowerOff
	if led.Stable {
		m.status.State = PowerOn
	}
	m.status.Since = now
	return true
}

// Complete records a finished action at now. The state's Since is refreshed
// only when the resulting state differs. Returns true if the state changed.
func (m *PowerMachine) Complete(a Action, now time.Time) bool {
	m.status.LastAction = a.Label()
	m.status.LastActionAt = now

	next := a.Result()
	if next == m.status.State {
		return false
	}
	m.status.State = next
	m.status.Since = now
	return true
}

// Status returns the current power status.
func (m *PowerMachine) Status() PowerStatus {
	return m.status
}
