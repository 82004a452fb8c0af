package wifi

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"wifictl/internal/execx"
	"wifictl/internal/supervisor"
)

const (
	KindWpaCli = "wpa_cli"
	KindNmcli  = "nmcli"

	DefaultScanSettle = 3 * time.Second
	DefaultStatusTTL  = time.Second
)

// Options tune a driver adapter. Zero values fall back to defaults.
type Options struct {
	Interface  string
	ScanSettle time.Duration
	StatusTTL  time.Duration
	Now        func() time.Time
}

// New builds the adapter named by kind. A nil runner executes commands on
// the host.
func New(kind string, r execx.Runner, opts Options) (supervisor.Driver, error) {
	if opts.Interface == "" {
		return nil, fmt.Errorf("interface is required")
	}
	if r == nil {
		r = execx.NewOSRunner(os.Stdout, os.Stderr)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindWpaCli, "wpa", "wpa_supplicant":
		return NewWpaCli(r, opts), nil
	case KindNmcli, "networkmanager":
		return NewNmcli(r, opts), nil
	default:
		return nil, fmt.Errorf("unknown wifi driver %q", kind)
	}
}

func (o Options) withDefaults() Options {
	if o.ScanSettle <= 0 {
		o.ScanSettle = DefaultScanSettle
	}
	if o.StatusTTL <= 0 {
		o.StatusTTL = DefaultStatusTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// scanWindow tracks one asynchronous scan. Results are only read once the
// settle window has passed, so PollScan never waits on the radio.
type scanWindow struct {
	running bool
	failed  bool
	started time.Time
	settle  time.Duration
}

func (w *scanWindow) begin(now time.Time, settle time.Duration) {
	*w = scanWindow{running: true, started: now, settle: settle}
}

func (w *scanWindow) fail() {
	*w = scanWindow{failed: true}
}

// ready reports whether results may be collected. A failed scan is reported
// once and then forgotten.
func (w *scanWindow) ready(now time.Time) (bool, supervisor.ScanOutcome) {
	switch {
	case w.failed:
		*w = scanWindow{}
		return false, supervisor.ScanOutcome{Status: supervisor.ScanFailed}
	case !w.running:
		return false, supervisor.ScanOutcome{Status: supervisor.ScanFailed}
	case now.Sub(w.started) < w.settle:
		return false, supervisor.ScanOutcome{Status: supervisor.ScanRunning}
	}
	*w = scanWindow{}
	return true, supervisor.ScanOutcome{}
}

// statusCache keeps the last parsed link status for ttl so that a 100ms poll
// loop does not fork a process per tick.
type statusCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	fetched time.Time
	valid   bool
	value   map[string]string
}

func (c *statusCache) get(now time.Time, fetch func() (map[string]string, error)) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && now.Sub(c.fetched) < c.ttl {
		return c.value
	}
	v, err := fetch()
	if err != nil {
		v = map[string]string{}
	}
	c.value, c.fetched, c.valid = v, now, true
	return v
}

func (c *statusCache) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// PercentToDBm maps a 0-100 signal quality to dBm, the inverse of the usual
// -100dBm=0% / -50dBm=100% scale.
func PercentToDBm(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent/2 - 100
}
