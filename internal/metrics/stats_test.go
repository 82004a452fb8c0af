package metrics

import (
	"testing"
	"time"

	sv "wifictl/internal/supervisor"
)

func history(base time.Time) []Transition {
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }
	return []Transition{
		{Timestamp: at(0), From: sv.PhaseIdle, To: sv.PhaseScanning, Event: "retry_due"},
		{Timestamp: at(4), From: sv.PhaseScanning, To: sv.PhaseScanComplete, Event: "scan_done"},
		{Timestamp: at(4), From: sv.PhaseScanComplete, To: sv.PhaseConnecting, Event: "match", Network: "Home"},
		{Timestamp: at(8), From: sv.PhaseConnecting, To: sv.PhaseCheckingInternet, Event: "associated", Network: "Home"},
		{Timestamp: at(10), From: sv.PhaseCheckingInternet, To: sv.PhaseConnected, Event: "reachable", Network: "Home"},
		{Timestamp: at(70), From: sv.PhaseConnected, To: sv.PhaseDisconnected, Event: "link_lost", Network: "Home"},
		{Timestamp: at(100), From: sv.PhaseDisconnected, To: sv.PhaseConnecting, Event: "retry_known", Network: "Home"},
		{Timestamp: at(120), From: sv.PhaseConnecting, To: sv.PhaseConnected, Event: "associated_unchecked", Network: "Home"},
		{Timestamp: at(200), From: sv.PhaseConnected, To: sv.PhaseInternetCheckFailed, Event: "unreachable", Network: "Home"},
	}
}

func TestSummarize_Basic(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0).UTC()
	s := Summarize(history(base), base.Add(-time.Minute))
	if s.Count != 9 {
		t.Fatalf("count=%d", s.Count)
	}
	if s.Connects != 2 || s.LinkLosses != 1 || s.InternetFailures != 1 {
		t.Fatalf("connects=%d losses=%d internet=%d", s.Connects, s.LinkLosses, s.InternetFailures)
	}
	if s.ConnectedTime != 140*time.Second {
		t.Fatalf("connected=%s", s.ConnectedTime)
	}
	if s.Availability != 70 {
		t.Fatalf("availability=%.2f", s.Availability)
	}
	// Attempts took 10s and 20s.
	if s.AvgTimeToConnect != 15*time.Second {
		t.Fatalf("avg=%s", s.AvgTimeToConnect)
	}
	if s.P95TimeToConnect != 20*time.Second {
		t.Fatalf("p95=%s", s.P95TimeToConnect)
	}
	if s.Networks["Home"] != 2 {
		t.Fatalf("networks=%v", s.Networks)
	}
}

func TestSummarize_SinceFilters(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0).UTC()
	s := Summarize(history(base), base.Add(100*time.Second))
	if s.Count != 3 {
		t.Fatalf("count=%d", s.Count)
	}
	if !s.From.Equal(base.Add(100 * time.Second)) {
		t.Fatalf("from=%s", s.From)
	}
	if s.Connects != 1 || s.LinkLosses != 0 {
		t.Fatalf("connects=%d losses=%d", s.Connects, s.LinkLosses)
	}
}

func TestSummarize_CountsFailures(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0).UTC()
	items := []Transition{
		{Timestamp: base, From: sv.PhaseIdle, To: sv.PhaseScanning},
		{Timestamp: base.Add(time.Second), From: sv.PhaseScanning, To: sv.PhaseIdle},
		{Timestamp: base.Add(40 * time.Second), From: sv.PhaseConnecting, To: sv.PhaseDisconnected},
		{Timestamp: base.Add(50 * time.Second), From: sv.PhaseConnected, To: sv.PhaseIdle},
	}
	s := Summarize(items, time.Time{})
	if s.ScanFailures != 1 || s.ConnectTimeouts != 1 || s.Refreshes != 1 {
		t.Fatalf("scan=%d timeouts=%d refreshes=%d", s.ScanFailures, s.ConnectTimeouts, s.Refreshes)
	}
	if s.AvgTimeToConnect != 0 || s.Availability != 0 {
		t.Fatalf("avg=%s availability=%.2f", s.AvgTimeToConnect, s.Availability)
	}
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	if s := Summarize(nil, time.Time{}); s.Count != 0 {
		t.Fatalf("count=%d", s.Count)
	}
}

func TestPercentile_Edges(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}
	if got := percentile(values, 0); got != 1 {
		t.Fatalf("p0=%v", got)
	}
	if got := percentile(values, 1); got != 4 {
		t.Fatalf("p100=%v", got)
	}
}
