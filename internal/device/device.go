// Package device owns every piece of mutable controller state: the LED
// tracker, the power machine, the reboot request and the actuator. The
// control loop and the HTTP dispatcher share one Controller; nothing else
// holds references to its parts.
package device

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/atx-controller/internal/clock"
	"github.com/sweeney/atx-controller/internal/gpio"
	"github.com/sweeney/atx-controller/internal/logic"
	"github.com/sweeney/atx-controller/internal/metrics"
	"github.com/sweeney/atx-controller/internal/mqtt"
	"github.com/sweeney/atx-controller/internal/netinfo"
	"github.com/sweeney/atx-controller/internal/reboot"
	"github.com/sweeney/atx-controller/internal/status"
)

// Press binds an action to the line it pulses and for how long.
type Press struct {
	Line     gpio.Line
	Duration time.Duration
}

// Options configures a Controller. Reader, Actuator and Clock are required.
type Options struct {
	Reader   gpio.Reader
	Actuator *gpio.Actuator
	Clock    clock.Clock

	// Presses maps each action to its pulse. Missing entries fall back to
	// DefaultPresses.
	Presses map[logic.Action]Press

	LEDStable time.Duration

	// Rebooter restarts the controller. Nil disables /api/system/reboot.
	Rebooter    reboot.Rebooter
	RebootDelay time.Duration

	// Network reports the uplink for health responses. May be nil.
	Network   netinfo.Prober
	Interface string

	Publisher mqtt.Publisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// DefaultPresses is the standard ATX press table.
func DefaultPresses() map[logic.Action]Press {
	return map[logic.Action]Press{
		logic.ActionOn:    {Line: gpio.LinePowerShort, Duration: 300 * time.Millisecond},
		logic.ActionOff:   {Line: gpio.LinePowerLong, Duration: 6 * time.Second},
		logic.ActionReset: {Line: gpio.LineReset, Duration: 300 * time.Millisecond},
	}
}

// Controller is the device state machine driven by the control loop.
type Controller struct {
	reader    gpio.Reader
	actuator  *gpio.Actuator
	clock     clock.Clock
	presses   map[logic.Action]Press
	tracker   *logic.Tracker
	power     *logic.PowerMachine
	scheduler *reboot.Scheduler
	delay     time.Duration
	network   netinfo.Prober
	iface     string
	publisher mqtt.Publisher
	metrics   *metrics.Metrics
	log       *log.Logger
	started   time.Time

	readFailing bool
}

// New builds a Controller. No hardware is touched until Seed or Tick.
func New(opts Options) *Controller {
	c := &Controller{
		reader:    opts.Reader,
		actuator:  opts.Actuator,
		clock:     opts.Clock,
		presses:   DefaultPresses(),
		tracker:   logic.NewTracker(opts.LEDStable),
		power:     logic.NewPowerMachine(),
		delay:     opts.RebootDelay,
		network:   opts.Network,
		iface:     opts.Interface,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
	}
	for a, p := range opts.Presses {
		c.presses[a] = p
	}
	if c.publisher == nil {
		c.publisher = mqtt.Discard{}
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	if c.log == nil {
		c.log = log.Default()
	}
	c.scheduler = reboot.NewScheduler(opts.Rebooter, c.beforeReboot)
	c.started = c.clock.Now()
	c.updatePowerMetrics()
	return c
}

// Seed reads the LED once and trusts it as stable, deriving the initial
// power state immediately.
func (c *Controller) Seed() error {
	level, err := c.reader.Read()
	if err != nil {
		return fmt.Errorf("read power LED: %w", err)
	}
	now := c.clock.Now()
	c.tracker.Seed(level, now)
	c.log.Printf("led: seeded %s", logic.LEDStateText(level))
	c.derive(now)
	c.ledChanged(level, now)
	return nil
}

// Tick runs one control loop iteration: sample the LED, derive the power
// state if it is still unknown, then fire a due reboot. A read error skips
// the sample but still polls the reboot.
func (c *Controller) Tick() error {
	var readErr error
	level, err := c.reader.Read()
	now := c.clock.Now()
	if err != nil {
		if !c.readFailing {
			c.log.Printf("led: read failed: %v", err)
		}
		c.readFailing = true
		readErr = fmt.Errorf("read power LED: %w", err)
	} else {
		if c.readFailing {
			c.log.Printf("led: read recovered")
			c.readFailing = false
		}
		changed := c.tracker.Sample(level, now)
		c.derive(now)
		if changed {
			c.log.Printf("led: stable %s", logic.LEDStateText(level))
			c.ledChanged(level, now)
		}
	}

	fired, err := c.scheduler.Poll(now)
	if fired {
		metrics.SetBool(c.metrics.RebootPending, false)
	}
	if fired && err != nil {
		// Only reached when the platform reboot failed.
		c.log.Printf("reboot: failed: %v", err)
		if pubErr := c.publisher.PublishSystem(mqtt.SystemEvent{
			Timestamp: now,
			Event:     mqtt.SystemRebootFailed,
			Reason:    err.Error(),
		}); pubErr != nil {
			c.log.Printf("mqtt: publish failed: %v", pubErr)
		}
	}
	return readErr
}

func (c *Controller) derive(now time.Time) {
	if c.power.Derive(c.tracker.Snapshot(), now) {
		c.log.Printf("power: initial state %s", c.power.Status().State)
		c.updatePowerMetrics()
	}
}

func (c *Controller) ledChanged(level bool, now time.Time) {
	c.metrics.LEDTransitions.Inc()
	metrics.SetBool(c.metrics.LEDLit, level)

	typ := mqtt.EventLEDOff
	if level {
		typ = mqtt.EventLEDOn
	}
	c.publish(mqtt.Event{
		Timestamp: now,
		Type:      typ,
		Power:     string(c.power.Status().State),
		LED:       logic.LEDStateText(level),
	})
}

// ActionResult is the outcome of Perform.
type ActionResult struct {
	Action logic.Action
	Err    error
	Power  status.PowerJSON
}

// OK reports whether the pulse completed.
func (r ActionResult) OK() bool {
	return r.Err == nil
}

// Perform pulses the line bound to a and records its completion. It blocks
// for the full press duration. A hardware failure leaves the power state
// untouched.
func (c *Controller) Perform(a logic.Action) ActionResult {
	press, ok := c.presses[a]
	if !ok {
		return ActionResult{Action: a, Err: fmt.Errorf("no press bound to %s", a), Power: c.Power()}
	}

	c.log.Printf("action: %s (%s for %v)", a.Label(), press.Line, press.Duration)
	err := c.actuator.Pulse(press.Line, press.Duration)
	now := c.clock.Now()

	result := "success"
	if err != nil {
		result = "error"
		c.log.Printf("action: %s failed: %v", a.Label(), err)
	} else {
		c.metrics.Pulses.WithLabelValues(string(press.Line)).Inc()
		if c.power.Complete(a, now) {
			c.log.Printf("power: %s", c.power.Status().State)
			c.updatePowerMetrics()
		}
	}
	c.metrics.Actions.WithLabelValues(a.String(), result).Inc()

	ev := mqtt.Event{
		Timestamp: now,
		Type:      a.EventName(),
		Result:    result,
		Power:     string(c.power.Status().State),
		LED:       c.ledText(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.publish(ev)

	return ActionResult{Action: a, Err: err, Power: c.Power()}
}

// RebootOutcome classifies a reboot request.
type RebootOutcome int

const (
	RebootScheduled RebootOutcome = iota
	RebootPending
	RebootUnavailable
)

// RebootResult is the outcome of ScheduleReboot.
type RebootResult struct {
	Outcome       RebootOutcome
	Delay         time.Duration // requested by this call
	OriginalDelay time.Duration // of the pending request
	Remaining     time.Duration
	Power         status.PowerJSON
}

// ScheduleReboot requests a controller reboot after the configured delay.
// A second request while one is pending reports the pending one instead.
func (c *Controller) ScheduleReboot() RebootResult {
	now := c.clock.Now()
	res := RebootResult{Delay: c.delay}

	switch {
	case c.scheduler.Schedule(c.delay, now):
		res.Outcome = RebootScheduled
		c.log.Printf("reboot: scheduled in %v", c.delay)
		metrics.SetBool(c.metrics.RebootPending, true)
	case c.scheduler.Pending():
		res.Outcome = RebootPending
	default:
		res.Outcome = RebootUnavailable
		c.log.Printf("reboot: unavailable")
	}

	if c.scheduler.Pending() {
		res.OriginalDelay = c.scheduler.Delay()
		res.Remaining = c.scheduler.Remaining(now)
	}
	res.Power = c.Power()
	return res
}

func (c *Controller) beforeReboot() {
	if err := c.actuator.Idle(); err != nil {
		c.log.Printf("reboot: idle lines: %v", err)
	}
	if err := c.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: c.clock.Now(),
		Event:     mqtt.SystemReboot,
	}); err != nil {
		c.log.Printf("mqtt: publish failed: %v", err)
	}
}

// Power returns the power_state document.
func (c *Controller) Power() status.PowerJSON {
	return status.Power(c.power.Status(), c.clock.Now())
}

// PowerStatus returns the raw power status.
func (c *Controller) PowerStatus() logic.PowerStatus {
	return c.power.Status()
}

// LED returns the LED status document. When observe is set the tracker's
// observed flag is raised the first time a stable level is reported.
func (c *Controller) LED(observe bool) status.LEDJSON {
	if observe && c.tracker.MarkObserved() {
		c.log.Printf("led: first report (%s)", c.ledText())
	}
	return status.LED(c.tracker.Snapshot(), c.power.Status(), c.clock.Now())
}

// LEDSnapshot returns the tracker's reportable state.
func (c *Controller) LEDSnapshot() logic.LEDSnapshot {
	return c.tracker.Snapshot()
}

// Health returns the network identity and uptime.
func (c *Controller) Health() status.HealthJSON {
	h := status.HealthJSON{
		Interface: c.iface,
		Uptime:    status.FormatElapsed(c.clock.Now().Sub(c.started)),
	}
	if c.network == nil {
		return h
	}
	info, err := c.network.Lookup(c.iface)
	if err != nil {
		c.log.Printf("health: %v", err)
	}
	h.WiFi = status.WiFiJSON{SSID: info.SSID, IP: info.IP}
	h.MAC = info.MAC
	return h
}

// Metrics returns the controller's collectors.
func (c *Controller) Metrics() *metrics.Metrics {
	return c.metrics
}

// Shutdown forces every control line idle and announces the shutdown.
func (c *Controller) Shutdown(reason string) error {
	err := c.actuator.Idle()
	if err != nil {
		c.log.Printf("shutdown: idle lines: %v", err)
	}
	if pubErr := c.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: c.clock.Now(),
		Event:     mqtt.SystemShutdown,
		Reason:    reason,
	}); pubErr != nil {
		c.log.Printf("mqtt: publish failed: %v", pubErr)
	}
	return err
}

func (c *Controller) ledText() string {
	if !c.tracker.HasStable() {
		return "unknown"
	}
	return logic.LEDStateText(c.tracker.Stable())
}

func (c *Controller) publish(ev mqtt.Event) {
	if err := c.publisher.Publish(ev); err != nil {
		c.log.Printf("mqtt: publish failed: %v", err)
	}
}

func (c *Controller) updatePowerMetrics() {
	c.metrics.SetPowerState(string(c.power.Status().State), []string{
		string(logic.PowerUnknown), string(logic.PowerOn), string(logic.PowerOff),
	})
}
