//go:build !linux

package reboot

import "log"

// Platform returns nil on non-Linux platforms: rebooting is unavailable.
func Platform(logger *log.Logger) Rebooter {
	return nil
}
