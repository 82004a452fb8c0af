package supervisor

import (
	"context"
	"time"
)

// ScanStatus is the coarse state of an asynchronous scan.
type ScanStatus uint8

const (
	ScanRunning ScanStatus = iota
	ScanFailed
	ScanDone
)

func (s ScanStatus) String() string {
	switch s {
	case ScanRunning:
		return "running"
	case ScanFailed:
		return "failed"
	case ScanDone:
		return "done"
	default:
		return "unknown"
	}
}

// AccessPoint is one scanned network. Signal is in dBm; higher is stronger.
type AccessPoint struct {
	Name   string
	Signal int
}

// ScanOutcome is the result of polling a scan. Results is only meaningful
// when Status is ScanDone.
type ScanOutcome struct {
	Status  ScanStatus
	Results []AccessPoint
}

// Driver is the radio capability. Commands are asynchronous and return
// without waiting for the radio; progress is observed through PollScan and
// IsAssociated on later polls.
type Driver interface {
	BeginScan(aggressive bool)
	PollScan() ScanOutcome
	Connect(name, secret string)
	IsAssociated() bool
	Disconnect()
	// CurrentNetworkName is only valid while associated.
	CurrentNetworkName() (string, bool)
	SignalStrength() (int, bool)
}

// Probe checks that host:port is reachable within timeout.
type Probe interface {
	Check(ctx context.Context, host string, port uint16, timeout time.Duration) bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, host string, port uint16, timeout time.Duration) bool

func (f ProbeFunc) Check(ctx context.Context, host string, port uint16, timeout time.Duration) bool {
	return f(ctx, host, port, timeout)
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Change describes one phase transition.
type Change struct {
	From    Phase
	To      Phase
	Event   Event
	At      time.Time
	Network string // target while connecting, current otherwise
}

// Feedback observes phase transitions. Implementations must return quickly
// and must not call back into the supervisor.
type Feedback interface {
	PhaseChanged(Change)
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func(Change)

func (f FeedbackFunc) PhaseChanged(c Change) { f(c) }
