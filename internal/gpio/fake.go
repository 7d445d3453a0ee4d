package gpio

import (
	"errors"
	"fmt"
)

// FakeReader is a test double that returns scripted LED levels.
type FakeReader struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Set replaces the script with a single level returned from now on.
func (f *FakeReader) Set(level bool) {
	f.Samples = []bool{level}
	f.index = 0
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Pin modes recorded by FakePin.
const (
	ModeUnset     = ""
	ModeInput     = "input"
	ModeOutput    = "output"
	ModeOpenDrain = "open-drain"
)

// FakePin records every operation applied to a control line.
type FakePin struct {
	offset int

	Mode  string
	Value int

	// Ops is the operation history, e.g. "input", "output=0", "set=1".
	Ops []string

	// NoOpenDrain makes AsOpenDrain fail, as on hardware without support.
	NoOpenDrain bool

	// Err, if set, is returned by every operation.
	Err error

	// SourcedHigh is set if the pin was ever a push-pull output at 1.
	SourcedHigh bool
}

// NewFakePin creates an unconfigured fake line at offset.
func NewFakePin(offset int) *FakePin {
	return &FakePin{offset: offset}
}

func (p *FakePin) Offset() int { return p.offset }

func (p *FakePin) SetValue(v int) error {
	if p.Err != nil {
		return p.Err
	}
	if p.Mode != ModeOutput && p.Mode != ModeOpenDrain {
		return fmt.Errorf("pin %d: set value on %q line", p.offset, p.Mode)
	}
	p.Ops = append(p.Ops, fmt.Sprintf("set=%d", v))
	p.Value = v
	p.checkSource()
	return nil
}

func (p *FakePin) AsInput() error {
	if p.Err != nil {
		return p.Err
	}
	p.Ops = append(p.Ops, "input")
	p.Mode = ModeInput
	p.Value = 0
	return nil
}

func (p *FakePin) AsOutput(v int) error {
	if p.Err != nil {
		return p.Err
	}
	p.Ops = append(p.Ops, fmt.Sprintf("output=%d", v))
	p.Mode = ModeOutput
	p.Value = v
	p.checkSource()
	return nil
}

func (p *FakePin) AsOpenDrain(v int) error {
	if p.Err != nil {
		return p.Err
	}
	if p.NoOpenDrain {
		return errors.New("open drain not supported")
	}
	p.Ops = append(p.Ops, fmt.Sprintf("open-drain=%d", v))
	p.Mode = ModeOpenDrain
	p.Value = v
	return nil
}

// PullingLow reports whether the line is currently shorted to ground.
func (p *FakePin) PullingLow() bool {
	return (p.Mode == ModeOutput || p.Mode == ModeOpenDrain) && p.Value == 0
}

// IsIdle reports whether the line is in either strategy's idle configuration.
func (p *FakePin) IsIdle() bool {
	return p.Mode == ModeInput || (p.Mode == ModeOpenDrain && p.Value == 1)
}

// ResetOps clears the operation history.
func (p *FakePin) ResetOps() {
	p.Ops = nil
}

func (p *FakePin) checkSource() {
	if p.Mode == ModeOutput && p.Value == 1 {
		p.SourcedHigh = true
	}
}

// FakePins returns distinct fake pins for every control line, keyed by role,
// at offsets 21 (short), 19 (long) and 18 (reset).
func FakePins() (map[Line]Pin, map[Line]*FakePin) {
	fakes := map[Line]*FakePin{
		LinePowerShort: NewFakePin(21),
		LinePowerLong:  NewFakePin(19),
		LineReset:      NewFakePin(18),
	}
	pins := make(map[Line]Pin, len(fakes))
	for l, p := range fakes {
		pins[l] = p
	}
	return pins, fakes
}
