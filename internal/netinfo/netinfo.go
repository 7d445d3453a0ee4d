// Package netinfo reports the controller's network identity and waits for
// the uplink before the HTTP listener is opened.
package netinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/atx-controller/internal/clock"
)

// SSIDEnv names the environment variable carrying the WiFi network name.
// The link layer does not expose it, so the provisioning unit sets it.
const SSIDEnv = "NETWORK_WIFI_SSID"

// ErrNotReady is returned by Wait when the interface never came up.
var ErrNotReady = errors.New("network not ready")

// Info describes one network interface.
type Info struct {
	Interface string
	Up        bool
	IP        string
	MAC       string
	SSID      string
}

// Ready reports whether the interface is up with an IPv4 address.
func (i Info) Ready() bool {
	return i.Up && i.IP != ""
}

// Prober looks up an interface by name.
type Prober interface {
	Lookup(iface string) (Info, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(iface string) (Info, error)

func (f ProberFunc) Lookup(iface string) (Info, error) { return f(iface) }

// Wait polls p until iface is ready, ctx is done or timeout elapses.
func Wait(ctx context.Context, p Prober, iface string, timeout, interval time.Duration, clk clock.Clock) (Info, error) {
	deadline := clk.Now().Add(timeout)
	var (
		last    Info
		lastErr error
	)
	for {
		last, lastErr = p.Lookup(iface)
		if lastErr == nil && last.Ready() {
			return last, nil
		}
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if !clk.Now().Before(deadline) {
			if lastErr != nil {
				return last, fmt.Errorf("%w: %s: %v", ErrNotReady, iface, lastErr)
			}
			return last, fmt.Errorf("%w: %s", ErrNotReady, iface)
		}
		clk.Sleep(interval)
	}
}

func ssid() string {
	return os.Getenv(SSIDEnv)
}
