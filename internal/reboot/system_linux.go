//go:build linux

package reboot

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/unix"
)

// System restarts the Linux host via the reboot syscall.
// The process needs CAP_SYS_BOOT.
type System struct {
	Log *log.Logger
}

// Platform returns the reboot implementation for this OS.
func Platform(logger *log.Logger) Rebooter {
	return &System{Log: logger}
}

// Reboot flushes filesystems and restarts. It only returns on failure.
func (s *System) Reboot() error {
	if s.Log != nil {
		s.Log.Printf("controller rebooting now")
	}
	unix.Sync()
	time.Sleep(50 * time.Millisecond)

	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot syscall: %w", err)
	}
	for {
		time.Sleep(10 * time.Millisecond)
	}
}
