package metrics

import (
	"math"
	"sort"
	"time"

	"wifictl/internal/supervisor"
)

// Summary is a basic statistics snapshot over a transition history.
type Summary struct {
	Count            int
	From             time.Time
	To               time.Time
	Connects         int
	LinkLosses       int
	ConnectTimeouts  int
	ScanFailures     int
	InternetFailures int
	Refreshes        int
	ConnectedTime    time.Duration
	Availability     float64
	AvgTimeToConnect time.Duration
	P95TimeToConnect time.Duration
	Networks         map[string]int
}

// Summarize computes summary statistics for transitions at or after since.
// Time spent in a phase is counted until the next transition, so the phase
// of the final row contributes nothing.
func Summarize(items []Transition, since time.Time) Summary {
	filtered := make([]Transition, 0, len(items))
	for _, t := range items {
		if t.Timestamp.After(since) || t.Timestamp.Equal(since) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		return Summary{Count: 0}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	s := Summary{
		Count:    len(filtered),
		From:     filtered[0].Timestamp,
		To:       filtered[len(filtered)-1].Timestamp,
		Networks: map[string]int{},
	}

	var (
		attempts     []float64
		attemptStart time.Time
		pending      bool
	)
	for i, t := range filtered {
		switch t.To {
		case supervisor.PhaseConnected:
			if t.From != supervisor.PhaseConnected {
				s.Connects++
				if t.Network != "" {
					s.Networks[t.Network]++
				}
			}
			if pending {
				attempts = append(attempts, float64(t.Timestamp.Sub(attemptStart)))
				pending = false
			}
		case supervisor.PhaseDisconnected:
			if t.From == supervisor.PhaseConnected {
				s.LinkLosses++
			} else {
				s.ConnectTimeouts++
			}
		case supervisor.PhaseInternetCheckFailed:
			s.InternetFailures++
		case supervisor.PhaseIdle:
			switch t.From {
			case supervisor.PhaseScanning:
				s.ScanFailures++
			case supervisor.PhaseConnected:
				s.Refreshes++
			}
		}
		if !pending && leavesRest(t) {
			attemptStart, pending = t.Timestamp, true
		}
		if t.To == supervisor.PhaseConnected && i+1 < len(filtered) {
			s.ConnectedTime += filtered[i+1].Timestamp.Sub(t.Timestamp)
		}
	}

	if span := s.To.Sub(s.From); span > 0 {
		s.Availability = 100 * float64(s.ConnectedTime) / float64(span)
	}
	if len(attempts) > 0 {
		var sum float64
		for _, a := range attempts {
			sum += a
		}
		sort.Float64s(attempts)
		s.AvgTimeToConnect = time.Duration(sum / float64(len(attempts)))
		s.P95TimeToConnect = time.Duration(percentile(attempts, 0.95))
	}
	return s
}

// leavesRest reports whether t starts a new connection attempt.
func leavesRest(t Transition) bool {
	switch t.From {
	case supervisor.PhaseIdle, supervisor.PhaseDisconnected, supervisor.PhaseInternetCheckFailed:
		return t.To == supervisor.PhaseScanning || t.To == supervisor.PhaseConnecting
	}
	return false
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
