//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "atx-controller"

// Chip owns the LED input line and the control lines on one GPIO chip.
type Chip struct {
	chip      *gpiocdev.Chip
	led       *gpiocdev.Line
	activeLow bool
	lines     map[int]*linePin
	pins      map[Line]Pin
}

// Open requests the LED line and the control lines from chipName.
// Control lines start as floating inputs so nothing is driven until a
// strategy configures them. Roles with equal offsets share one line.
func Open(chipName string, ledOffset int, activeLow bool, controls map[Line]int) (*Chip, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	c := &Chip{
		chip:      chip,
		activeLow: activeLow,
		lines:     make(map[int]*linePin),
		pins:      make(map[Line]Pin),
	}

	// Pull-down keeps an unconnected LED header reading as off.
	c.led, err = chip.RequestLine(ledOffset, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", ledOffset, err)
	}

	for _, role := range ControlLines {
		offset, ok := controls[role]
		if !ok {
			c.Close()
			return nil, fmt.Errorf("no offset for control line %s", role)
		}
		if lp, ok := c.lines[offset]; ok {
			c.pins[role] = lp
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", role, offset, err)
		}
		lp := &linePin{line: line, offset: offset}
		c.lines[offset] = lp
		c.pins[role] = lp
	}

	return c, nil
}

// Read returns the logical LED level.
func (c *Chip) Read() (bool, error) {
	v, err := c.led.Value()
	if err != nil {
		return false, fmt.Errorf("read LED pin: %w", err)
	}
	lit := v == 1
	if c.activeLow {
		lit = !lit
	}
	return lit, nil
}

// Pins returns the control lines keyed by role.
func (c *Chip) Pins() map[Line]Pin {
	return c.pins
}

// Close returns every line to a floating input and releases the chip.
func (c *Chip) Close() error {
	var errs []error

	for offset, lp := range c.lines {
		if err := lp.AsInput(); err != nil {
			errs = append(errs, fmt.Errorf("release pin %d: %w", offset, err))
		}
		if err := lp.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	c.lines = map[int]*linePin{}

	if c.led != nil {
		if err := c.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
		c.led = nil
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}

	return errors.Join(errs...)
}

// linePin adapts a requested gpiocdev line to Pin.
type linePin struct {
	line   *gpiocdev.Line
	offset int
}

func (p *linePin) Offset() int { return p.offset }

func (p *linePin) SetValue(v int) error {
	return p.line.SetValue(v)
}

func (p *linePin) AsInput() error {
	return p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
}

func (p *linePin) AsOutput(v int) error {
	return p.line.Reconfigure(gpiocdev.AsOutput(v), gpiocdev.AsPushPull)
}

func (p *linePin) AsOpenDrain(v int) error {
	return p.line.Reconfigure(gpiocdev.AsOutput(v), gpiocdev.AsOpenDrain)
}
