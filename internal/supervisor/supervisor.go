package supervisor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wifictl/internal/registry"
)

const (
	DefaultConnectTimeout       = 15 * time.Second
	DefaultReconnectBackoff     = 30 * time.Second
	DefaultRefreshInterval      = time.Hour
	DefaultInternetCheckHost    = "8.8.8.8"
	DefaultInternetCheckPort    = 53
	DefaultInternetCheckTimeout = 5 * time.Second

	// InternetCheckInterval is how often a stable connection is re-probed.
	InternetCheckInterval = 60 * time.Second
)

// ErrNoNetworks is returned by Begin when the registry is empty.
var ErrNoNetworks = errors.New("no networks registered")

// Supervisor keeps one radio connected. It is driven entirely by Poll and
// is not safe for concurrent use; a single goroutine must own it.
type Supervisor struct {
	reg      *registry.Registry
	driver   Driver
	probe    Probe
	clock    Clock
	feedback Feedback

	phase        Phase
	current      int
	target       int
	selected     int
	scanInFlight bool
	kick         bool

	lastConnectAttempt    time.Time
	lastSuccessfulConnect time.Time
	connectStartedAt      time.Time
	lastInternetCheck     time.Time

	connectTimeout   time.Duration
	reconnectBackoff time.Duration
	refreshInterval  time.Duration
	checkEnabled     bool
	checkHost        string
	checkPort        uint16
	checkTimeout     time.Duration
	aggressiveScan   bool
}

// New builds a supervisor in PhaseIdle with default timing. A nil clock uses
// SystemClock. A nil probe disables the internet check.
func New(reg *registry.Registry, driver Driver, probe Probe, clock Clock) *Supervisor {
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	return &Supervisor{
		reg:                   reg,
		driver:                driver,
		probe:                 probe,
		clock:                 clock,
		phase:                 PhaseIdle,
		current:               -1,
		target:                -1,
		selected:              -1,
		lastConnectAttempt:    now,
		lastSuccessfulConnect: now,
		connectStartedAt:      now,
		lastInternetCheck:     now,
		connectTimeout:        DefaultConnectTimeout,
		reconnectBackoff:      DefaultReconnectBackoff,
		refreshInterval:       DefaultRefreshInterval,
		checkEnabled:          probe != nil,
		checkHost:             DefaultInternetCheckHost,
		checkPort:             DefaultInternetCheckPort,
		checkTimeout:          DefaultInternetCheckTimeout,
	}
}

func (s *Supervisor) SetConnectTimeout(d time.Duration)       { s.connectTimeout = d }
func (s *Supervisor) SetReconnectBackoff(d time.Duration)     { s.reconnectBackoff = d }
func (s *Supervisor) SetRefreshInterval(d time.Duration)      { s.refreshInterval = d }
func (s *Supervisor) SetInternetCheckHost(host string)        { s.checkHost = host }
func (s *Supervisor) SetInternetCheckPort(port uint16)        { s.checkPort = port }
func (s *Supervisor) SetInternetCheckTimeout(d time.Duration) { s.checkTimeout = d }
func (s *Supervisor) SetAggressiveScan(aggressive bool)       { s.aggressiveScan = aggressive }
func (s *Supervisor) SetFeedback(f Feedback)                  { s.feedback = f }

// SetInternetCheckEnabled toggles the internet check. Without a probe the
// check stays off.
func (s *Supervisor) SetInternetCheckEnabled(enabled bool) {
	if enabled && s.probe == nil {
		zap.S().Warnw("internet check needs a probe, leaving it disabled")
		enabled = false
	}
	s.checkEnabled = enabled
}

// Begin arms an immediate scan on the next Idle poll, skipping the backoff
// wait that otherwise gates leaving Idle.
func (s *Supervisor) Begin() error {
	if s.reg.Len() == 0 {
		return ErrNoNetworks
	}
	s.kick = true
	return nil
}

// Reconnect drops the current link and restarts from Idle with an immediate
// scan.
func (s *Supervisor) Reconnect() {
	zap.S().Infow("forcing wifi reconnection", "phase", s.phase)
	s.fire(EventReset, s.clock.Now())
}

// Poll advances the state machine by at most one transition. It never
// sleeps; the only potentially slow step is an internet probe, bounded by
// the internet check timeout.
func (s *Supervisor) Poll(ctx context.Context) {
	now := s.clock.Now()
	ev := s.observe(ctx, now)
	if ev == EventNone {
		return
	}
	s.fire(ev, now)
}

func (s *Supervisor) Phase() Phase { return s.phase }

// IsConnected reports whether the supervisor considers the link up and the
// driver still reports association.
func (s *Supervisor) IsConnected() bool {
	return s.phase == PhaseConnected && s.driver.IsAssociated()
}

// CurrentNetworkName returns the driver's network name while connected.
func (s *Supervisor) CurrentNetworkName() string {
	if !s.IsConnected() {
		return ""
	}
	name, ok := s.driver.CurrentNetworkName()
	if !ok {
		return ""
	}
	return name
}

func (s *Supervisor) observe(ctx context.Context, now time.Time) Event {
	switch s.phase {
	case PhaseIdle:
		if s.kick || s.backoffElapsed(now) {
			return EventRetryDue
		}
	case PhaseScanning:
		out := s.driver.PollScan()
		switch out.Status {
		case ScanRunning:
			return EventNone
		case ScanFailed:
			zap.S().Warnw("wifi scan failed")
			return EventScanFailed
		}
		if len(out.Results) == 0 {
			zap.S().Infow("wifi scan found no networks")
			return EventScanFailed
		}
		s.selected = SelectBest(s.reg, out.Results)
		s.logScan(out.Results)
		return EventScanDone
	case PhaseScanComplete:
		if s.selected >= 0 {
			return EventMatch
		}
		return EventNoMatch
	case PhaseConnecting:
		if s.driver.IsAssociated() {
			if s.checkEnabled {
				return EventAssociated
			}
			return EventAssociatedUnchecked
		}
		if now.Sub(s.connectStartedAt) > s.connectTimeout {
			return EventConnectTimeout
		}
	case PhaseCheckingInternet:
		return s.checkInternet(ctx)
	case PhaseConnected:
		if !s.driver.IsAssociated() {
			return EventLinkLost
		}
		if now.Sub(s.lastSuccessfulConnect) > s.refreshInterval {
			return EventRefreshDue
		}
		if s.checkEnabled && now.Sub(s.lastInternetCheck) > InternetCheckInterval {
			return s.checkInternet(ctx)
		}
	case PhaseDisconnected:
		if s.backoffElapsed(now) {
			if s.current >= 0 {
				return EventRetryKnown
			}
			return EventRetryDue
		}
	case PhaseInternetCheckFailed:
		if s.backoffElapsed(now) {
			return EventRetryDue
		}
	}
	return EventNone
}

func (s *Supervisor) fire(ev Event, now time.Time) {
	from := s.phase
	next, ok := Next(from, ev)
	if !ok {
		zap.S().Errorw("ignoring event not valid in phase", "phase", from, "event", ev)
		return
	}
	s.apply(ev, now)
	s.phase = next
	if next == from {
		return
	}
	s.enter(next, now)
	s.notify(Change{From: from, To: next, Event: ev, At: now, Network: s.networkFor(next)})
}

// apply runs the side effects attached to an event, before the phase moves.
func (s *Supervisor) apply(ev Event, now time.Time) {
	switch ev {
	case EventRetryDue:
		s.kick = false
	case EventRetryKnown:
		s.target = s.current
	case EventScanFailed, EventScanDone:
		s.scanInFlight = false
	case EventMatch:
		s.target = s.selected
		s.selected = -1
	case EventNoMatch:
		zap.S().Infow("no registered network found in scan")
		s.selected = -1
	case EventAssociated, EventAssociatedUnchecked:
		s.current = s.target
		s.target = -1
		s.lastSuccessfulConnect = now
		s.logAssociated()
	case EventConnectTimeout:
		zap.S().Warnw("wifi connect timed out", "network", s.nameOf(s.target), "timeout", s.connectTimeout)
		s.driver.Disconnect()
		if s.target == s.current {
			// The known network failed its direct retry; scan next time.
			s.current = -1
		}
		s.target = -1
	case EventReachable:
		s.lastInternetCheck = now
	case EventUnreachable:
		zap.S().Warnw("internet unreachable, dropping link", "network", s.nameOf(s.current))
		s.driver.Disconnect()
	case EventRefreshDue:
		zap.S().Infow("refreshing wifi connection", "network", s.nameOf(s.current), "interval", s.refreshInterval)
		s.driver.Disconnect()
	case EventLinkLost:
		zap.S().Warnw("wifi link lost", "network", s.nameOf(s.current))
	case EventReset:
		s.driver.Disconnect()
		s.scanInFlight = false
		s.target = -1
		s.selected = -1
		s.kick = true
	}
}

// enter runs the entry action of a newly entered phase.
func (s *Supervisor) enter(p Phase, now time.Time) {
	switch p {
	case PhaseScanning:
		if s.scanInFlight {
			return
		}
		s.lastConnectAttempt = now
		s.driver.BeginScan(s.aggressiveScan)
		s.scanInFlight = true
	case PhaseConnecting:
		cred := s.reg.Get(s.target)
		s.connectStartedAt = now
		s.lastConnectAttempt = now
		zap.S().Infow("connecting to wifi", "network", cred.Name)
		s.driver.Connect(cred.Name, cred.Secret)
	}
}

func (s *Supervisor) checkInternet(ctx context.Context) Event {
	if ctx.Err() != nil {
		return EventNone
	}
	if s.probe == nil {
		return EventUnreachable
	}
	if s.probe.Check(ctx, s.checkHost, s.checkPort, s.checkTimeout) {
		return EventReachable
	}
	if ctx.Err() != nil {
		// Shutting down; a cancelled probe says nothing about the link.
		return EventNone
	}
	return EventUnreachable
}

func (s *Supervisor) backoffElapsed(now time.Time) bool {
	return now.Sub(s.lastConnectAttempt) > s.reconnectBackoff
}

func (s *Supervisor) notify(c Change) {
	if s.feedback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("feedback sink panicked", "from", c.From, "to", c.To, "panic", r)
		}
	}()
	s.feedback.PhaseChanged(c)
}

func (s *Supervisor) networkFor(p Phase) string {
	if p == PhaseConnecting {
		return s.nameOf(s.target)
	}
	return s.nameOf(s.current)
}

func (s *Supervisor) nameOf(idx int) string {
	if idx < 0 || idx >= s.reg.Len() {
		return ""
	}
	return s.reg.Get(idx).Name
}

func (s *Supervisor) logScan(results []AccessPoint) {
	log := zap.S()
	for _, ap := range results {
		log.Debugw("scanned network", "name", ap.Name, "signal", ap.Signal)
	}
	if s.selected >= 0 {
		log.Infow("best network selected", "network", s.nameOf(s.selected), "scanned", len(results))
	}
}

func (s *Supervisor) logAssociated() {
	fields := []any{"network", s.nameOf(s.current)}
	if rssi, ok := s.driver.SignalStrength(); ok {
		fields = append(fields, "rssi", rssi)
	}
	zap.S().Infow("wifi associated", fields...)
}
