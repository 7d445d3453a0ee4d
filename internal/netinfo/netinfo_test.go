package netinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/atx-controller/internal/clock"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// scripted returns the given results in order, repeating the last one.
func scripted(results ...Info) (ProberFunc, *int) {
	calls := 0
	return func(iface string) (Info, error) {
		i := calls
		if i >= len(results) {
			i = len(results) - 1
		}
		calls++
		r := results[i]
		r.Interface = iface
		return r, nil
	}, &calls
}

func TestWaitReadyImmediately(t *testing.T) {
	p, calls := scripted(Info{Up: true, IP: "10.0.0.5"})
	clk := clock.NewMock(t0)

	info, err := Wait(context.Background(), p, "wlan0", 30*time.Second, time.Second, clk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.IP != "10.0.0.5" || info.Interface != "wlan0" {
		t.Errorf("got %+v", info)
	}
	if *calls != 1 {
		t.Errorf("calls: got %d, want 1", *calls)
	}
	if len(clk.Slept()) != 0 {
		t.Errorf("expected no sleeps, got %v", clk.Slept())
	}
}

func TestWaitPollsUntilAddress(t *testing.T) {
	p, calls := scripted(
		Info{Up: false},
		Info{Up: true},
		Info{Up: true, IP: "192.168.1.20"},
	)
	clk := clock.NewMock(t0)

	info, err := Wait(context.Background(), p, "wlan0", 30*time.Second, time.Second, clk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.IP != "192.168.1.20" {
		t.Errorf("IP: got %q", info.IP)
	}
	if *calls != 3 {
		t.Errorf("calls: got %d, want 3", *calls)
	}
}

func TestWaitTimesOut(t *testing.T) {
	p, _ := scripted(Info{Up: true})
	clk := clock.NewMock(t0)

	_, err := Wait(context.Background(), p, "wlan0", 5*time.Second, time.Second, clk)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if got := clk.Now().Sub(t0); got != 5*time.Second {
		t.Errorf("waited %v, want 5s", got)
	}
}

func TestWaitReportsLookupError(t *testing.T) {
	p := ProberFunc(func(string) (Info, error) { return Info{}, errors.New("no such device") })
	clk := clock.NewMock(t0)

	_, err := Wait(context.Background(), p, "wlan9", time.Second, time.Second, clk)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestWaitCancelled(t *testing.T) {
	p, _ := scripted(Info{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Wait(ctx, p, "wlan0", time.Minute, time.Second, clock.NewMock(t0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSSIDFromEnvironment(t *testing.T) {
	t.Setenv(SSIDEnv, "workshop")
	if got := ssid(); got != "workshop" {
		t.Errorf("got %q", got)
	}
}
