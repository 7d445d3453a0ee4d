// Package gpio drives the front-panel header lines and reads the power LED.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import "fmt"

// Reader reads the power LED input.
type Reader interface {
	// Read returns the logical LED level (true = lit).
	// Active-low wiring is already inverted by the implementation.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin is a single control line wired to the host's front-panel header.
// Implementations must be able to switch direction at runtime.
type Pin interface {
	// Offset is the line offset on its chip. Lines sharing an offset are the same line.
	Offset() int

	// SetValue sets the output value of a line already configured as output.
	SetValue(v int) error

	// AsInput configures the line as a floating input (bias disabled).
	AsInput() error

	// AsOutput configures the line as a push-pull output driving v.
	AsOutput(v int) error

	// AsOpenDrain configures the line as an open-drain output at v.
	// 1 releases the line, 0 pulls it to ground.
	AsOpenDrain(v int) error
}

// Line names a control line role.
type Line string

const (
	LinePowerShort Line = "power_short"
	LinePowerLong  Line = "power_long"
	LineReset      Line = "reset"
)

// ControlLines lists every control line role in idle order.
var ControlLines = []Line{LinePowerShort, LinePowerLong, LineReset}

// DriveMode selects how control lines are driven.
type DriveMode string

const (
	DriveAuto      DriveMode = "auto"
	DriveOpenDrain DriveMode = "open-drain"
	DriveFloating  DriveMode = "floating"
)

// ParseDriveMode validates a drive mode string.
func ParseDriveMode(s string) (DriveMode, error) {
	switch m := DriveMode(s); m {
	case DriveAuto, DriveOpenDrain, DriveFloating:
		return m, nil
	case "":
		return DriveAuto, nil
	}
	return "", fmt.Errorf("unknown drive mode %q (expected auto, open-drain or floating)", s)
}
