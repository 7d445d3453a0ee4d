// Package config loads the controller configuration from YAML.
//
// Every field has a default, so an empty file (or no file) yields a working
// configuration for the reference wiring:
//
//	board: Raspberry Pi
//	gpio:
//	  chip: gpiochip0
//	  power_short: 21
//	  power_long: 19
//	  reset: 18
//	  power_led: 5
//	  drive: auto
//	timing:
//	  short_press: 300ms
//	  long_press: 6s
//	  reset_press: 300ms
//	  led_stable: 100ms
//	http:
//	  listen: ":80"
//	reboot:
//	  delay: 1s
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/atx-controller/internal/gpio"
)

// Config is the root configuration structure.
type Config struct {
	// Board is the display name of the controller hardware.
	Board   string        `yaml:"board"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Timing  TimingConfig  `yaml:"timing"`
	HTTP    HTTPConfig    `yaml:"http"`
	Reboot  RebootConfig  `yaml:"reboot"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Network NetworkConfig `yaml:"network"`
}

// GPIOConfig assigns line offsets on the GPIO chip.
type GPIOConfig struct {
	Chip string `yaml:"chip"`

	// PowerShort and PowerLong may be equal on boards with a single power line.
	PowerShort int `yaml:"power_short"`
	PowerLong  int `yaml:"power_long"`
	Reset      int `yaml:"reset"`
	PowerLED   int `yaml:"power_led"`

	// LEDActiveLow inverts the LED reading.
	LEDActiveLow bool `yaml:"led_active_low"`

	// Drive is "auto", "open-drain" or "floating".
	Drive string `yaml:"drive"`
}

// TimingConfig holds press durations and loop timing.
type TimingConfig struct {
	ShortPress Duration `yaml:"short_press"`
	// LongPress must exceed the host's forced-off threshold (usually >1.5s).
	LongPress  Duration `yaml:"long_press"`
	ResetPress Duration `yaml:"reset_press"`
	LEDStable  Duration `yaml:"led_stable"`
	Poll       Duration `yaml:"poll"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Listen         string   `yaml:"listen"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	MaxHeaderLines int      `yaml:"max_header_lines"`
}

// RebootConfig controls the controller self-reboot endpoint.
type RebootConfig struct {
	Enabled *bool    `yaml:"enabled"`
	Delay   Duration `yaml:"delay"`
}

// MQTTConfig configures event publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// NetworkConfig names the interface that must be up before serving.
type NetworkConfig struct {
	Interface string   `yaml:"interface"`
	Wait      Duration `yaml:"wait"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration for the reference wiring.
func Default() Config {
	enabled := true
	return Config{
		Board: "Raspberry Pi",
		GPIO: GPIOConfig{
			Chip:       "gpiochip0",
			PowerShort: 21,
			PowerLong:  19,
			Reset:      18,
			PowerLED:   5,
			Drive:      string(gpio.DriveAuto),
		},
		Timing: TimingConfig{
			ShortPress: Duration(300 * time.Millisecond),
			LongPress:  Duration(6 * time.Second),
			ResetPress: Duration(300 * time.Millisecond),
			LEDStable:  Duration(100 * time.Millisecond),
			Poll:       Duration(5 * time.Millisecond),
		},
		HTTP: HTTPConfig{
			Listen:         ":80",
			ReadTimeout:    Duration(2 * time.Second),
			MaxHeaderLines: 64,
		},
		Reboot: RebootConfig{
			Enabled: &enabled,
			Delay:   Duration(time.Second),
		},
		MQTT: MQTTConfig{
			TopicPrefix: "atx/controller",
			ClientID:    "atx-controller",
		},
		Network: NetworkConfig{
			Interface: "wlan0",
			Wait:      Duration(30 * time.Second),
		},
	}
}

// Load reads and parses a YAML configuration file.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Reboot.Enabled == nil {
		enabled := true
		cfg.Reboot.Enabled = &enabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RebootEnabled reports whether the self-reboot endpoint may schedule reboots.
func (c *Config) RebootEnabled() bool {
	return c.Reboot.Enabled == nil || *c.Reboot.Enabled
}

// ControlOffsets returns the control line offsets keyed by role.
func (c *Config) ControlOffsets() map[gpio.Line]int {
	return map[gpio.Line]int{
		gpio.LinePowerShort: c.GPIO.PowerShort,
		gpio.LinePowerLong:  c.GPIO.PowerLong,
		gpio.LineReset:      c.GPIO.Reset,
	}
}

// Validate checks pin assignments and timings.
func (c *Config) Validate() error {
	var errs []error

	g := c.GPIO
	if g.Chip == "" {
		errs = append(errs, errors.New("gpio.chip is required"))
	}
	for name, v := range map[string]int{
		"gpio.power_short": g.PowerShort,
		"gpio.power_long":  g.PowerLong,
		"gpio.reset":       g.Reset,
		"gpio.power_led":   g.PowerLED,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if g.Reset == g.PowerShort || g.Reset == g.PowerLong {
		errs = append(errs, fmt.Errorf("gpio.reset (%d) must be distinct from the power lines", g.Reset))
	}
	if g.PowerLED == g.PowerShort || g.PowerLED == g.PowerLong || g.PowerLED == g.Reset {
		errs = append(errs, fmt.Errorf("gpio.power_led (%d) must be distinct from every control line", g.PowerLED))
	}
	if _, err := gpio.ParseDriveMode(g.Drive); err != nil {
		errs = append(errs, fmt.Errorf("gpio.drive: %w", err))
	}

	t := c.Timing
	for name, d := range map[string]Duration{
		"timing.short_press": t.ShortPress,
		"timing.long_press":  t.LongPress,
		"timing.reset_press": t.ResetPress,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d.Duration()))
		}
	}
	if t.LEDStable < 0 {
		errs = append(errs, fmt.Errorf("timing.led_stable must not be negative, got %s", t.LEDStable.Duration()))
	}
	if t.Poll <= 0 {
		errs = append(errs, fmt.Errorf("timing.poll must be positive, got %s", t.Poll.Duration()))
	}

	if c.HTTP.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read_timeout must be positive, got %s", c.HTTP.ReadTimeout.Duration()))
	}
	if c.HTTP.MaxHeaderLines <= 0 {
		errs = append(errs, fmt.Errorf("http.max_header_lines must be positive, got %d", c.HTTP.MaxHeaderLines))
	}
	if c.Reboot.Delay < 0 {
		errs = append(errs, fmt.Errorf("reboot.delay must not be negative, got %s", c.Reboot.Delay.Duration()))
	}

	return errors.Join(errs...)
}
