package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

type fakeController struct {
	ticks     int
	tickErr   error
	shutdowns []string
}

func (f *fakeController) Tick() error {
	f.ticks++
	return f.tickErr
}

func (f *fakeController) Shutdown(reason string) error {
	f.shutdowns = append(f.shutdowns, reason)
	return nil
}

// runTicks feeds n ticks then the signal, and returns runLoop's result.
func runTicks(t *testing.T, ctrl loopController, serve func() error, n int, s os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- runLoop(ctrl, serve, tick, sig) }()

	for i := 0; i < n; i++ {
		select {
		case tick <- time.Now():
		case err := <-done:
			return err
		}
	}
	sig <- s
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return after signal")
		return nil
	}
}

func TestRunLoopTicksAndServes(t *testing.T) {
	ctrl := &fakeController{}
	served := 0
	serve := func() error {
		served++
		return nil
	}

	if err := runTicks(t, ctrl, serve, 5, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if ctrl.ticks != 5 {
		t.Errorf("ticks: got %d, want 5", ctrl.ticks)
	}
	if served != 5 {
		t.Errorf("serve calls: got %d, want 5", served)
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	ctrl := &fakeController{}
	if err := runTicks(t, ctrl, nil, 0, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if len(ctrl.shutdowns) != 1 || ctrl.shutdowns[0] != "SIGINT" {
		t.Errorf("shutdowns: got %v", ctrl.shutdowns)
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	ctrl := &fakeController{}
	if err := runTicks(t, ctrl, nil, 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if len(ctrl.shutdowns) != 1 || ctrl.shutdowns[0] != "SIGTERM" {
		t.Errorf("shutdowns: got %v", ctrl.shutdowns)
	}
}

func TestRunLoopReadErrorKeepsRunning(t *testing.T) {
	ctrl := &fakeController{tickErr: errors.New("EIO")}
	if err := runTicks(t, ctrl, nil, 3, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if ctrl.ticks != 3 {
		t.Errorf("ticks: got %d, want 3", ctrl.ticks)
	}
}

func TestRunLoopAcceptErrorStops(t *testing.T) {
	ctrl := &fakeController{}
	serve := func() error { return errors.New("use of closed network connection") }

	err := runTicks(t, ctrl, serve, 3, syscall.SIGTERM)
	if err == nil || !strings.Contains(err.Error(), "accept") {
		t.Fatalf("expected accept error, got %v", err)
	}
	if ctrl.ticks != 1 {
		t.Errorf("ticks: got %d, want 1", ctrl.ticks)
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("got %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != syscall.SIGHUP.String() {
		t.Errorf("got %q", got)
	}
}

func TestFormatState(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := formatState(true, now); got != "LED: on, power: on" {
		t.Errorf("got %q", got)
	}
	if got := formatState(false, now); got != "LED: off, power: off" {
		t.Errorf("got %q", got)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atx.yaml")
	if err := os.WriteFile(path, []byte("http:\n  listen: \":8080\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := serveCmd
	t.Cleanup(func() {
		cmd.Flags().Set("config", "")
		cmd.Flags().Set("listen", "")
		cmd.Flags().Set("drive", "")
		for _, name := range []string{"config", "listen", "drive"} {
			cmd.Flags().Lookup(name).Changed = false
		}
	})
	cmd.Flags().Set("config", path)
	cmd.Flags().Set("drive", "floating")

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("listen: got %q", cfg.HTTP.Listen)
	}
	if cfg.GPIO.Drive != "floating" {
		t.Errorf("drive: got %q", cfg.GPIO.Drive)
	}
}

func TestLoadConfigRejectsBadDrive(t *testing.T) {
	cmd := serveCmd
	t.Cleanup(func() {
		cmd.Flags().Set("drive", "")
		cmd.Flags().Lookup("drive").Changed = false
	})
	cmd.Flags().Set("drive", "push-pull")

	if _, err := loadConfig(cmd); err == nil {
		t.Error("expected validation error")
	}
}

func TestSetupLoggingUnderSystemd(t *testing.T) {
	orig := log.Flags()
	origOut := log.Writer()
	t.Cleanup(func() {
		log.SetFlags(orig)
		log.SetOutput(origOut)
	})

	var buf bytes.Buffer
	t.Setenv("INVOCATION_ID", "abc123")
	setupLogging(&buf)
	log.Printf("hello")
	if buf.String() != "hello\n" {
		t.Errorf("got %q, want bare line", buf.String())
	}

	buf.Reset()
	componentLogger("http: ").Printf("GET / 200")
	if buf.String() != "http: GET / 200\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestSetupLoggingInteractive(t *testing.T) {
	orig := log.Flags()
	origOut := log.Writer()
	t.Cleanup(func() {
		log.SetFlags(orig)
		log.SetOutput(origOut)
	})

	t.Setenv("INVOCATION_ID", "")
	setupLogging(&bytes.Buffer{})
	if log.Flags()&log.Lmicroseconds == 0 {
		t.Error("expected timestamps interactively")
	}
}
