// Package logic contains the pure decision logic of the controller: the LED
// debounce tracker and the power state machine.
// This package has NO external dependencies (no GPIO, network, OS, or sleeping).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// PowerState is the software-inferred power status of the host machine.
type PowerState string

const (
	PowerUnknown PowerState = "unknown"
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
)

// Action is a front-panel action the controller can emulate.
type Action int

const (
	ActionOn Action = iota
	ActionOff
	ActionReset
)

// Label returns the human-readable action name reported to clients.
func (a Action) Label() string {
	switch a {
	case ActionOn:
		return "Power On"
	case ActionOff:
		return "Power Off"
	case ActionReset:
		return "Power Reset"
	default:
		return "Unknown Action"
	}
}

// Result returns the power state an action leaves the machine in.
// A reset implies the machine was on and stays on.
func (a Action) Result() PowerState {
	if a == ActionOff {
		return PowerOff
	}
	return PowerOn
}

// EventName is the event identifier used when an action is published.
func (a Action) EventName() string {
	switch a {
	case ActionOn:
		return "POWER_ON"
	case ActionOff:
		return "POWER_OFF"
	case ActionReset:
		return "POWER_RESET"
	default:
		return "UNKNOWN"
	}
}

func (a Action) String() string {
	switch a {
	case ActionOn:
		return "on"
	case ActionOff:
		return "off"
	case ActionReset:
		return "reset"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction maps "on", "off" or "reset" (any case) to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return ActionOn, nil
	case "off":
		return ActionOff, nil
	case "reset":
		return ActionReset, nil
	}
	return 0, fmt.Errorf("unknown action %q (expected on, off or reset)", s)
}

// PowerStatus is a point-in-time view of the power state machine.
type PowerStatus struct {
	State PowerState
	// Since is when State last changed. Zero while Unknown.
	Since time.Time
	// LastAction is the label of the most recent completed action, empty if none.
	LastAction   string
	LastActionAt time.Time
}

// LEDSnapshot is a point-in-time view of the debounce tracker.
type LEDSnapshot struct {
	HasStable  bool
	Stable     bool // true = LED lit
	LastChange time.Time
	Observed   bool
}

// LEDStateText maps a logical LED level to "on"/"off".
func LEDStateText(lit bool) string {
	if lit {
		return "on"
	}
	return "off"
}
