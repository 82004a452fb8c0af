package supervisor_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wifictl/internal/supervisor"
)

func TestSupervisor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Supervisor Suite")
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeDriver records every command and answers queries from its fields.
type fakeDriver struct {
	outcome     supervisor.ScanOutcome
	associated  bool
	name        string
	rssi        int
	scans       []bool
	connects    []string
	disconnects int
	scanPolls   int
}

func (d *fakeDriver) BeginScan(aggressive bool) { d.scans = append(d.scans, aggressive) }

func (d *fakeDriver) PollScan() supervisor.ScanOutcome {
	d.scanPolls++
	return d.outcome
}

func (d *fakeDriver) Connect(name, secret string) {
	d.connects = append(d.connects, name+"/"+secret)
	d.name = name
}

func (d *fakeDriver) IsAssociated() bool { return d.associated }

func (d *fakeDriver) Disconnect() {
	d.disconnects++
	d.associated = false
}

func (d *fakeDriver) CurrentNetworkName() (string, bool) {
	if !d.associated {
		return "", false
	}
	return d.name, true
}

func (d *fakeDriver) SignalStrength() (int, bool) { return d.rssi, d.associated }

// commands counts side-effecting calls.
func (d *fakeDriver) commands() int {
	return len(d.scans) + len(d.connects) + d.disconnects
}

type fakeProbe struct {
	reachable bool
	calls     int
	lastHost  string
	lastPort  uint16
	lastTO    time.Duration
}

func (p *fakeProbe) Check(_ context.Context, host string, port uint16, timeout time.Duration) bool {
	p.calls++
	p.lastHost, p.lastPort, p.lastTO = host, port, timeout
	return p.reachable
}

func done(aps ...supervisor.AccessPoint) supervisor.ScanOutcome {
	return supervisor.ScanOutcome{Status: supervisor.ScanDone, Results: aps}
}
