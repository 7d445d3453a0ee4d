package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sweeney/atx-controller/internal/clock"
	"github.com/sweeney/atx-controller/internal/device"
	"github.com/sweeney/atx-controller/internal/gpio"
	"github.com/sweeney/atx-controller/internal/metrics"
	"github.com/sweeney/atx-controller/internal/mqtt"
	"github.com/sweeney/atx-controller/internal/reboot"
	"github.com/sweeney/atx-controller/internal/status"
	"github.com/sweeney/atx-controller/internal/web"
)

const pollInterval = 5 * time.Millisecond

type rig struct {
	t        *testing.T
	ctrl     *device.Controller
	srv      *web.Server
	reader   *gpio.FakeReader
	pins     map[gpio.Line]*gpio.FakePin
	clock    *clock.Mock
	pub      *mqtt.FakePublisher
	rebooter *reboot.FakeRebooter
}

func newRig(t *testing.T, led bool, rebooter reboot.Rebooter) *rig {
	t.Helper()
	pins, fakes := gpio.FakePins()
	clk := clock.NewMock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	strategy := gpio.SelectStrategy(gpio.DriveAuto, pins[gpio.LinePowerShort])
	act, err := gpio.NewActuator(strategy, pins, clk)
	if err != nil {
		t.Fatalf("NewActuator: %v", err)
	}
	if err := act.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	r := &rig{
		t:      t,
		reader: gpio.NewFakeReader(led),
		pins:   fakes,
		clock:  clk,
		pub:    mqtt.NewFakePublisher(),
	}
	if fr, ok := rebooter.(*reboot.FakeRebooter); ok {
		r.rebooter = fr
	}
	discard := log.New(io.Discard, "", 0)
	m := metrics.New()
	r.ctrl = device.New(device.Options{
		Reader:      r.reader,
		Actuator:    act,
		Clock:       clk,
		LEDStable:   100 * time.Millisecond,
		Rebooter:    rebooter,
		RebootDelay: time.Second,
		Publisher:   r.pub,
		Metrics:     m,
		Logger:      discard,
	})
	r.srv = web.New(r.ctrl, web.Options{
		Board:       "Test Board",
		ReadTimeout: time.Second,
		Metrics:     m,
		Logger:      discard,
	})
	return r
}

// run ticks the controller for d of mock time.
func (r *rig) run(d time.Duration) {
	end := r.clock.Now().Add(d)
	for r.clock.Now().Before(end) {
		r.ctrl.Tick()
		r.clock.Advance(pollInterval)
	}
}

// request serves one raw HTTP request the way the loop does and decodes
// the JSON body into v.
func (r *rig) request(method, path string, v any) int {
	r.t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		r.srv.ServeConn(server)
		close(done)
	}()
	go client.Write([]byte(method + " " + path + " HTTP/1.1\r\nHost: atx\r\n\r\n"))

	out, _ := io.ReadAll(client)
	client.Close()
	<-done

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(out)), nil)
	if err != nil {
		r.t.Fatalf("%s %s: parse response: %v", method, path, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			r.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestIntegrationPowerCycle(t *testing.T) {
	r := newRig(t, false, &reboot.FakeRebooter{})

	var led status.LEDJSON
	r.request("GET", "/api/power/led", &led)
	if led.Status != "unknown" || led.Power.State != "unknown" {
		t.Fatalf("before stable: %+v", led)
	}

	r.run(200 * time.Millisecond)
	r.request("GET", "/api/power/led", &led)
	if led.Status != "ok" || led.State != "off" || led.Power.State != "off" {
		t.Fatalf("after stable: %+v", led)
	}

	var action status.ActionJSON
	if code := r.request("POST", "/api/power/on", &action); code != 200 {
		t.Fatalf("power on: %d", code)
	}
	if action.Status != "ok" || action.Action != "Power On" || action.PowerState.State != "on" {
		t.Errorf("power on: %+v", action)
	}
	if r.pins[gpio.LinePowerShort].SourcedHigh {
		t.Error("power line was driven high")
	}

	// Host boots; the LED follows but the state was already set by the action.
	r.reader.Set(true)
	r.run(200 * time.Millisecond)
	r.request("GET", "/api/power/led", &led)
	if led.State != "on" || led.Power.State != "on" || led.Power.LastAction != "Power On" {
		t.Errorf("after boot: %+v", led)
	}

	r.request("POST", "/api/power/off", &action)
	if action.PowerState.State != "off" {
		t.Errorf("power off: %+v", action)
	}

	want := []string{mqtt.EventLEDOff, "POWER_ON", mqtt.EventLEDOn, "POWER_OFF"}
	got := r.pub.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}

	for l, p := range r.pins {
		if !p.IsIdle() {
			t.Errorf("%s left active", l)
		}
	}
}

func TestIntegrationSpikeRejected(t *testing.T) {
	r := newRig(t, false, nil)
	if err := r.ctrl.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	r.reader.Set(true)
	r.run(50 * time.Millisecond)
	r.reader.Set(false)
	r.run(200 * time.Millisecond)

	var led status.LEDJSON
	r.request("GET", "/api/power/led", &led)
	if led.State != "off" {
		t.Errorf("spike changed LED: %+v", led)
	}
	for _, typ := range r.pub.EventTypes() {
		if typ == mqtt.EventLEDOn {
			t.Error("LED_ON published for a spike")
		}
	}
}

func TestIntegrationRebootRoundTrip(t *testing.T) {
	fake := &reboot.FakeRebooter{}
	r := newRig(t, true, fake)
	r.ctrl.Seed()

	var resp status.RebootJSON
	if code := r.request("POST", "/api/system/reboot", &resp); code != 202 {
		t.Fatalf("first request: %d", code)
	}
	if !resp.Reboot.Scheduled || resp.Reboot.DelayMs == nil || *resp.Reboot.DelayMs != 1000 {
		t.Errorf("first: %+v", resp.Reboot)
	}

	r.run(300 * time.Millisecond)
	if code := r.request("POST", "/api/system/reboot", &resp); code != 200 {
		t.Fatalf("second request: %d", code)
	}
	if resp.Status != "pending" || resp.Reboot.RemainingMs == nil {
		t.Fatalf("second: %+v", resp)
	}
	if rem := *resp.Reboot.RemainingMs; rem <= 0 || rem > 1000 {
		t.Errorf("remaining_ms: %d", rem)
	}
	if *resp.Reboot.OriginalDelayMs != 1000 {
		t.Errorf("original_delay_ms: %d", *resp.Reboot.OriginalDelayMs)
	}
	if fake.Calls != 0 {
		t.Fatal("rebooted early")
	}

	r.run(time.Second)
	if fake.Calls != 1 {
		t.Errorf("reboot calls: got %d, want 1", fake.Calls)
	}
	for l, p := range r.pins {
		if !p.IsIdle() {
			t.Errorf("%s not idle at reboot", l)
		}
	}
}

func TestIntegrationRebootUnavailable(t *testing.T) {
	r := newRig(t, true, nil)

	var resp status.RebootJSON
	if code := r.request("POST", "/api/system/reboot", &resp); code != 503 {
		t.Errorf("code: got %d, want 503", code)
	}
	if resp.Status != "error" || resp.Reboot.Scheduled {
		t.Errorf("got %+v", resp)
	}
}

func TestIntegrationOpenDrainSelected(t *testing.T) {
	r := newRig(t, true, nil)
	r.request("POST", "/api/power/reset", nil)

	p := r.pins[gpio.LineReset]
	if p.Mode != gpio.ModeOpenDrain || p.Value != 1 {
		t.Errorf("reset line: mode=%s value=%d", p.Mode, p.Value)
	}
}
