package feedback

import (
	"github.com/prometheus/client_golang/prometheus"

	"wifictl/internal/supervisor"
)

const namespace = "wifictl"

// Prometheus exposes the current phase as a one-hot gauge and counts
// transitions.
type Prometheus struct {
	phase       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

var _ supervisor.Feedback = (*Prometheus)(nil)

// NewPrometheus registers the collectors on reg and reports PhaseIdle until
// the first change.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase",
				Help:      "Current connectivity supervisor phase (1 for the active phase)",
			},
			[]string{"phase"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of connectivity supervisor phase transitions",
			},
			[]string{"from", "to"},
		),
	}
	for _, c := range []prometheus.Collector{p.phase, p.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	p.setPhase(supervisor.PhaseIdle)
	return p, nil
}

func (p *Prometheus) PhaseChanged(c supervisor.Change) {
	p.setPhase(c.To)
	p.transitions.WithLabelValues(c.From.String(), c.To.String()).Inc()
}

func (p *Prometheus) setPhase(active supervisor.Phase) {
	for _, ph := range supervisor.Phases() {
		v := 0.0
		if ph == active {
			v = 1
		}
		p.phase.WithLabelValues(ph.String()).Set(v)
	}
}
