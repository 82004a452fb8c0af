// Package feedback holds the sinks that report supervisor phase changes to
// the outside world.
package feedback

import (
	"go.uber.org/zap"

	"wifictl/internal/supervisor"
)

// Log writes one structured line per phase change.
type Log struct{}

func (Log) PhaseChanged(c supervisor.Change) {
	fields := []any{"from", c.From, "to", c.To, "event", c.Event}
	if c.Network != "" {
		fields = append(fields, "network", c.Network)
	}
	zap.S().Infow("wifi phase changed", fields...)
}

// Multi fans a change out to every sink in order. A panicking sink is
// logged and skipped so the rest still run.
type Multi []supervisor.Feedback

func (m Multi) PhaseChanged(c supervisor.Change) {
	for _, f := range m {
		if f == nil {
			continue
		}
		deliver(f, c)
	}
}

func deliver(f supervisor.Feedback, c supervisor.Change) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("feedback sink panicked", "sink", sinkName(f), "panic", r)
		}
	}()
	f.PhaseChanged(c)
}

func sinkName(f supervisor.Feedback) string {
	switch f.(type) {
	case Log, *Log:
		return "log"
	case *LED:
		return "led"
	case *MQTT:
		return "mqtt"
	case *Prometheus:
		return "prometheus"
	}
	return "custom"
}
