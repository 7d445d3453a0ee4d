package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/atx-controller/internal/clock"
)

// Actuator emulates momentary button presses on the control lines.
//
// Every pulse starts by forcing all control lines idle, drives only the
// target line active for the requested duration, then returns it to idle.
// Pulse blocks for the whole duration.
type Actuator struct {
	strategy Strategy
	clock    clock.Clock
	pins     map[Line]Pin
	distinct []Pin
}

// NewActuator creates an actuator over pins, which must name every line in
// ControlLines. Roles may share one physical line (single power line boards).
func NewActuator(strategy Strategy, pins map[Line]Pin, clk clock.Clock) (*Actuator, error) {
	a := &Actuator{
		strategy: strategy,
		clock:    clk,
		pins:     make(map[Line]Pin, len(pins)),
	}
	seen := make(map[int]bool)
	for _, line := range ControlLines {
		p, ok := pins[line]
		if !ok || p == nil {
			return nil, fmt.Errorf("no pin for control line %s", line)
		}
		a.pins[line] = p
		if !seen[p.Offset()] {
			seen[p.Offset()] = true
			a.distinct = append(a.distinct, p)
		}
	}
	return a, nil
}

// Strategy returns the selected drive strategy.
func (a *Actuator) Strategy() Strategy {
	return a.strategy
}

// Configure prepares every distinct control line and leaves them idle.
func (a *Actuator) Configure() error {
	var errs []error
	for _, p := range a.distinct {
		if err := a.strategy.Configure(p); err != nil {
			errs = append(errs, fmt.Errorf("configure line %d: %w", p.Offset(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return a.Idle()
}

// Idle forces every control line to its idle configuration.
func (a *Actuator) Idle() error {
	var errs []error
	for _, p := range a.distinct {
		if err := a.strategy.Idle(p); err != nil {
			errs = append(errs, fmt.Errorf("idle line %d: %w", p.Offset(), err))
		}
	}
	return errors.Join(errs...)
}

// Pulse holds line active for d.
func (a *Actuator) Pulse(line Line, d time.Duration) error {
	p, ok := a.pins[line]
	if !ok {
		return fmt.Errorf("unknown control line %s", line)
	}

	if err := a.Idle(); err != nil {
		return fmt.Errorf("idle before pulse: %w", err)
	}

	if err := a.strategy.Active(p); err != nil {
		// Never leave a half-driven line behind.
		_ = a.strategy.Idle(p)
		return fmt.Errorf("drive %s active: %w", line, err)
	}

	a.clock.Sleep(d)

	if err := a.strategy.Idle(p); err != nil {
		return fmt.Errorf("release %s: %w", line, err)
	}
	return nil
}
