// Package metrics holds the controller's Prometheus collectors on a private
// registry and renders them in the text exposition format.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics is the set of collectors updated by the control loop.
type Metrics struct {
	registry *prometheus.Registry

	Actions        *prometheus.CounterVec
	Pulses         *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	LEDTransitions prometheus.Counter
	LEDLit         prometheus.Gauge
	PowerState     *prometheus.GaugeVec
	RebootPending  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atx_actions_total",
			Help: "Power actions requested, by action and result.",
		}, []string{"action", "result"}),
		Pulses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atx_pulses_total",
			Help: "Pulses driven onto a header line.",
		}, []string{"line"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atx_http_requests_total",
			Help: "HTTP requests answered, by route and status code.",
		}, []string{"route", "code"}),
		LEDTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atx_led_transitions_total",
			Help: "Debounced power LED changes.",
		}),
		LEDLit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atx_led_lit",
			Help: "1 while the debounced power LED is lit.",
		}),
		PowerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "atx_power_state",
			Help: "1 for the current power state.",
		}, []string{"state"}),
		RebootPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atx_reboot_pending",
			Help: "1 while a controller reboot is scheduled.",
		}),
	}
	m.registry.MustRegister(
		m.Actions, m.Pulses, m.Requests, m.LEDTransitions,
		m.LEDLit, m.PowerState, m.RebootPending,
	)
	return m
}

// SetPowerState marks state as current and clears the others.
func (m *Metrics) SetPowerState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.PowerState.WithLabelValues(s).Set(v)
	}
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// Write renders every metric family in the Prometheus text format.
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
