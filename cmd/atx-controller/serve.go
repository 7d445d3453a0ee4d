package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/atx-controller/internal/clock"
	"github.com/sweeney/atx-controller/internal/config"
	"github.com/sweeney/atx-controller/internal/device"
	"github.com/sweeney/atx-controller/internal/gpio"
	"github.com/sweeney/atx-controller/internal/logic"
	"github.com/sweeney/atx-controller/internal/metrics"
	"github.com/sweeney/atx-controller/internal/mqtt"
	"github.com/sweeney/atx-controller/internal/netinfo"
	"github.com/sweeney/atx-controller/internal/reboot"
	"github.com/sweeney/atx-controller/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller",
	Long: `Run the controller loop: sample the power LED, fire a scheduled
controller reboot when due, and serve at most one HTTP request per
iteration.

Startup waits for the network interface to come up with an address.
If it never does, the control lines are left idle and the process waits
for a signal without serving anything.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("config", "c", "", "path to YAML config file (defaults built in)")
	f.String("listen", "", "HTTP listen address, overrides http.listen")
	f.String("broker", "", "MQTT broker URL, overrides mqtt.broker")
	f.String("drive", "", "control line drive mode: auto, open-drain or floating")
	f.Bool("no-seed", false, "start with unknown power state instead of trusting the first LED reading")
}

type serveOptions struct {
	noSeed bool
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noSeed, _ := cmd.Flags().GetBool("no-seed")
	return run(cfg, serveOptions{noSeed: noSeed})
}

// loadConfig reads --config and applies the override flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"listen", &cfg.HTTP.Listen},
		{"broker", &cfg.MQTT.Broker},
		{"drive", &cfg.GPIO.Drive},
	}
	changed := false
	for _, o := range overrides {
		if cmd.Flags().Lookup(o.flag) == nil || !cmd.Flags().Changed(o.flag) {
			continue
		}
		*o.dst, _ = cmd.Flags().GetString(o.flag)
		changed = true
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cfg *config.Config, opts serveOptions) error {
	chip, err := gpio.Open(cfg.GPIO.Chip, cfg.GPIO.PowerLED, cfg.GPIO.LEDActiveLow, cfg.ControlOffsets())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	mode, err := gpio.ParseDriveMode(cfg.GPIO.Drive)
	if err != nil {
		return err
	}
	pins := chip.Pins()
	strategy := gpio.SelectStrategy(mode, pins[gpio.LinePowerShort])
	actuator, err := gpio.NewActuator(strategy, pins, clock.Real{})
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	if err := actuator.Configure(); err != nil {
		return fmt.Errorf("configure control lines: %w", err)
	}
	log.Printf("gpio: %s led=%d short=%d long=%d reset=%d drive=%s",
		cfg.GPIO.Chip, cfg.GPIO.PowerLED, cfg.GPIO.PowerShort, cfg.GPIO.PowerLong, cfg.GPIO.Reset, strategy.Name())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	waitCtx, stopWait := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	info, err := netinfo.Wait(waitCtx, netinfo.System{}, cfg.Network.Interface, cfg.Network.Wait.Duration(), 500*time.Millisecond, clock.Real{})
	stopWait()
	if errors.Is(err, context.Canceled) {
		log.Printf("interrupted while waiting for network")
		return actuator.Idle()
	}
	if err != nil {
		log.Printf("network: %v", err)
		return halt(actuator, sigCh)
	}
	log.Printf("network: %s up, ip=%s mac=%s", info.Interface, info.IP, info.MAC)

	publisher := newPublisher(cfg)
	defer publisher.Close()

	var rebooter reboot.Rebooter
	if cfg.RebootEnabled() {
		rebooter = reboot.Platform(componentLogger("reboot: "))
	}

	m := metrics.New()
	ctrl := device.New(device.Options{
		Reader:   chip,
		Actuator: actuator,
		Clock:    clock.Real{},
		Presses: map[logic.Action]device.Press{
			logic.ActionOn:    {Line: gpio.LinePowerShort, Duration: cfg.Timing.ShortPress.Duration()},
			logic.ActionOff:   {Line: gpio.LinePowerLong, Duration: cfg.Timing.LongPress.Duration()},
			logic.ActionReset: {Line: gpio.LineReset, Duration: cfg.Timing.ResetPress.Duration()},
		},
		LEDStable:   cfg.Timing.LEDStable.Duration(),
		Rebooter:    rebooter,
		RebootDelay: cfg.Reboot.Delay.Duration(),
		Network:     netinfo.System{},
		Interface:   cfg.Network.Interface,
		Publisher:   publisher,
		Metrics:     m,
		Logger:      log.Default(),
	})
	if !opts.noSeed {
		if err := ctrl.Seed(); err != nil {
			log.Printf("led: seed failed, starting unknown: %v", err)
		}
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.HTTP.Listen)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.HTTP.Listen, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	srv := web.New(ctrl, web.Options{
		Board:          cfg.Board,
		ReadTimeout:    cfg.HTTP.ReadTimeout.Duration(),
		MaxHeaderLines: cfg.HTTP.MaxHeaderLines,
		Metrics:        m,
		Logger:         componentLogger("http: "),
	})

	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     mqtt.SystemStartup,
		Retained:  true,
	}); err != nil {
		log.Printf("mqtt: publish startup: %v", err)
	}

	poll := cfg.Timing.Poll.Duration()
	log.Printf("started: listen=%s poll=%v led_stable=%v power=%s",
		ln.Addr(), poll, cfg.Timing.LEDStable.Duration(), ctrl.PowerStatus().State)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	serve := func() error {
		_, err := srv.ServeOne(ln, poll)
		return err
	}
	return runLoop(ctrl, serve, ticker.C, sigCh)
}

func newPublisher(cfg *config.Config) mqtt.Publisher {
	if cfg.MQTT.Broker == "" {
		return mqtt.Discard{}
	}
	clientID := cfg.MQTT.ClientID + "-" + uuid.NewString()[:8]
	p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, clientID)
	if err != nil {
		log.Printf("mqtt: %v; events will not be published", err)
		return mqtt.Discard{}
	}
	log.Printf("mqtt: connected to %s as %s", cfg.MQTT.Broker, clientID)
	return p
}

// halt leaves every control line idle and waits for a signal. Used when the
// network never came up: the controller is useless without it but must not
// leave a line driven.
func halt(actuator *gpio.Actuator, sig <-chan os.Signal) error {
	if err := actuator.Idle(); err != nil {
		log.Printf("gpio: idle: %v", err)
	}
	log.Printf("halted: control lines idle, waiting for signal")
	s := <-sig
	log.Printf("received %v while halted", s)
	return fmt.Errorf("network not available")
}
