// Package status defines the JSON documents reported over HTTP and MQTT and
// builds them from logic snapshots.
package status

import (
	"fmt"
	"time"

	"github.com/sweeney/atx-controller/internal/logic"
)

// PowerJSON is the power_state object shared by every response.
type PowerJSON struct {
	State         string `json:"state"`
	Since         string `json:"since,omitempty"`
	LastAction    string `json:"last_action,omitempty"`
	LastActionAge string `json:"last_action_age,omitempty"`
}

// ActionJSON is the response to a power action.
type ActionJSON struct {
	Status     string    `json:"status"`
	Action     string    `json:"action"`
	PowerState PowerJSON `json:"power_state"`
}

// LEDJSON is the LED status document.
type LEDJSON struct {
	Status     string    `json:"status"`
	State      string    `json:"state"`
	LastChange string    `json:"last_change,omitempty"`
	Power      PowerJSON `json:"power"`
}

// RebootJSON is the response to a controller reboot request.
type RebootJSON struct {
	Status     string     `json:"status"`
	Action     string     `json:"action"`
	Message    string     `json:"message"`
	PowerState PowerJSON  `json:"power_state"`
	Reboot     RebootInfo `json:"reboot"`
}

// RebootInfo describes the reboot request. Millisecond fields are pointers
// so that a legitimate zero is still reported.
type RebootInfo struct {
	Scheduled       bool   `json:"scheduled"`
	DelayMs         *int64 `json:"delay_ms,omitempty"`
	RemainingMs     *int64 `json:"remaining_ms,omitempty"`
	OriginalDelayMs *int64 `json:"original_delay_ms,omitempty"`
}

// HealthJSON is the liveness and network summary.
type HealthJSON struct {
	WiFi      WiFiJSON `json:"wifi"`
	Interface string   `json:"interface,omitempty"`
	MAC       string   `json:"mac,omitempty"`
	Uptime    string   `json:"uptime"`
}

// WiFiJSON carries the network identity.
type WiFiJSON struct {
	SSID string `json:"ssid"`
	IP   string `json:"ip"`
}

// ErrorJSON is the body of protocol error responses.
type ErrorJSON struct {
	Error string `json:"error"`
}

// Power builds the power_state object as seen at now.
func Power(st logic.PowerStatus, now time.Time) PowerJSON {
	p := PowerJSON{State: string(st.State)}
	if p.State == "" {
		p.State = string(logic.PowerUnknown)
	}
	if st.State != logic.PowerUnknown && !st.Since.IsZero() {
		p.Since = FormatElapsed(now.Sub(st.Since))
	}
	if st.LastAction != "" && !st.LastActionAt.IsZero() {
		p.LastAction = st.LastAction
		p.LastActionAge = FormatElapsed(now.Sub(st.LastActionAt))
	}
	return p
}

// LED builds the LED status document as seen at now.
func LED(led logic.LEDSnapshot, power logic.PowerStatus, now time.Time) LEDJSON {
	doc := LEDJSON{
		Status: "unknown",
		State:  "unknown",
		Power:  Power(power, now),
	}
	if led.HasStable {
		doc.Status = "ok"
		doc.State = logic.LEDStateText(led.Stable)
		doc.LastChange = FormatElapsed(now.Sub(led.LastChange))
	}
	return doc
}

// FormatElapsed renders d as HH:MM:SS. Hours are not wrapped at 24.
// Negative durations render as 00:00:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// RoundSeconds rounds d to whole seconds, never below 1.
func RoundSeconds(d time.Duration) int64 {
	s := (d.Milliseconds() + 500) / 1000
	if s < 1 {
		s = 1
	}
	return s
}

// Millis returns a pointer to d in milliseconds, for optional JSON fields.
func Millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
