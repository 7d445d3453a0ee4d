//go:build !linux

package gpio

import "errors"

// Chip is not available on non-Linux platforms.
type Chip struct{}

// Open returns an error on non-Linux platforms.
func Open(chipName string, ledOffset int, activeLow bool, controls map[Line]int) (*Chip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (c *Chip) Read() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Pins is empty on non-Linux platforms.
func (c *Chip) Pins() map[Line]Pin {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}
