// Package mqtt publishes controller events to a broker, with a fake and a
// no-op publisher for tests and broker-less deployments.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic suffixes appended to the configured prefix.
const (
	TopicEvents = "events"
	TopicSystem = "system"
)

// Event types published on the events topic besides the power actions.
const (
	EventLEDOn  = "LED_ON"
	EventLEDOff = "LED_OFF"
)

// System event names.
const (
	SystemStartup      = "STARTUP"
	SystemShutdown     = "SHUTDOWN"
	SystemReboot       = "REBOOT"
	SystemOffline      = "OFFLINE"
	SystemReconnected  = "RECONNECTED"
	SystemRebootFailed = "REBOOT_FAILED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event. Failures are reported but must not
	// stop the control loop.
	Publish(event Event) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Event is a power action or an LED transition.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      string // POWER_ON, POWER_OFF, POWER_RESET, LED_ON, LED_OFF
	Result    string // success or error; empty for LED events
	Power     string
	LED       string
	Error     string
}

// SystemEvent is a lifecycle event (startup, shutdown, reboot).
type SystemEvent struct {
	ID        string
	Timestamp time.Time
	Event     string
	Reason    string
	Retained  bool
}

// Payload is the JSON body published on the events topic.
type Payload struct {
	Controller ControllerPayload `json:"controller"`
}

// ControllerPayload carries the event details.
type ControllerPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Result    string `json:"result,omitempty"`
	Power     string `json:"power"`
	LED       string `json:"led"`
	Error     string `json:"error,omitempty"`
}

// SystemPayload is the JSON body published on the system topic.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a controller event. A missing
// ID is filled with a fresh UUID.
func FormatPayload(event Event) ([]byte, error) {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	return json.Marshal(Payload{
		Controller: ControllerPayload{
			ID:        id,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Type,
			Result:    event.Result,
			Power:     event.Power,
			LED:       event.LED,
			Error:     event.Error,
		},
	})
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			ID:        id,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// Topic joins prefix and suffix.
func Topic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(Event) error             { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
