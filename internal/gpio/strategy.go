package gpio

// Strategy defines what "idle" and "active" mean for a control line.
// Neither strategy ever drives a line high: the header expects a short to ground.
type Strategy interface {
	Name() string
	// Configure prepares a line once at startup, leaving it idle.
	Configure(p Pin) error
	Idle(p Pin) error
	Active(p Pin) error
}

// OpenDrain releases the line for idle (external pull-up holds it high) and
// pulls it low for active.
type OpenDrain struct{}

func (OpenDrain) Name() string { return string(DriveOpenDrain) }

func (OpenDrain) Configure(p Pin) error { return p.AsOpenDrain(1) }

func (OpenDrain) Idle(p Pin) error { return p.SetValue(1) }

func (OpenDrain) Active(p Pin) error { return p.SetValue(0) }

// Floating is used where the hardware cannot do open drain. Idle is a
// high-impedance input; active switches to an output driving low only for
// the length of the pulse.
type Floating struct{}

func (Floating) Name() string { return string(DriveFloating) }

func (Floating) Configure(p Pin) error { return p.AsInput() }

func (Floating) Idle(p Pin) error { return p.AsInput() }

func (Floating) Active(p Pin) error { return p.AsOutput(0) }

// ProbeOpenDrain reports whether p accepts open-drain configuration.
// The line is left as a floating input either way.
func ProbeOpenDrain(p Pin) bool {
	err := p.AsOpenDrain(1)
	_ = p.AsInput()
	return err == nil
}

// SelectStrategy picks the strategy for mode. In auto mode the probe pin
// decides. The choice is made once at startup.
func SelectStrategy(mode DriveMode, probe Pin) Strategy {
	switch mode {
	case DriveOpenDrain:
		return OpenDrain{}
	case DriveFloating:
		return Floating{}
	}
	if probe != nil && ProbeOpenDrain(probe) {
		return OpenDrain{}
	}
	return Floating{}
}
