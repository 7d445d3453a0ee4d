package main

import (
	"fmt"
	"log"
	"os"
	"syscall"
	"time"
)

// loopController is the part of the device controller the loop drives.
type loopController interface {
	Tick() error
	Shutdown(reason string) error
}

// runLoop is the single control loop. Each tick samples the LED, fires a
// due reboot, then serves at most one HTTP connection. Nothing else touches
// the controller, so no locking is needed.
//
// A signal idles the control lines and returns nil. An accept failure other
// than a timeout ends the loop with an error.
func runLoop(ctrl loopController, serve func() error, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := ctrl.Shutdown(signalName(s)); err != nil {
				log.Printf("shutdown: %v", err)
			}
			return nil

		case <-tick:
			// Read errors are logged by the controller; keep polling.
			_ = ctrl.Tick()

			if serve == nil {
				continue
			}
			if err := serve(); err != nil {
				return fmt.Errorf("accept: %w", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return fmt.Sprint(s)
}
