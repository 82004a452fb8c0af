package supervisor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wifictl/internal/registry"
	"wifictl/internal/supervisor"
)

var _ = Describe("Supervisor", func() {
	var (
		ctx     context.Context
		clock   *fakeClock
		drv     *fakeDriver
		probe   *fakeProbe
		reg     *registry.Registry
		sup     *supervisor.Supervisor
		changes []supervisor.Change
	)

	const backoff = supervisor.DefaultReconnectBackoff

	BeforeEach(func() {
		ctx = context.Background()
		clock = &fakeClock{now: time.Unix(1_700_000_000, 0)}
		drv = &fakeDriver{rssi: -42}
		probe = &fakeProbe{reachable: true}
		reg = registry.New(0)
		_, err := reg.Register("A", "pw-A")
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Register("B", "pw-B")
		Expect(err).NotTo(HaveOccurred())

		changes = nil
		sup = supervisor.New(reg, drv, probe, clock)
		sup.SetFeedback(supervisor.FeedbackFunc(func(c supervisor.Change) {
			changes = append(changes, c)
		}))
	})

	poll := func() supervisor.Phase {
		sup.Poll(ctx)
		return sup.Phase()
	}

	// connect drives a fresh supervisor to Connected on network B.
	connect := func() {
		Expect(sup.Begin()).To(Succeed())
		Expect(poll()).To(Equal(supervisor.PhaseScanning))
		drv.outcome = done(supervisor.AccessPoint{Name: "A", Signal: -70}, supervisor.AccessPoint{Name: "B", Signal: -40})
		Expect(poll()).To(Equal(supervisor.PhaseScanComplete))
		Expect(poll()).To(Equal(supervisor.PhaseConnecting))
		drv.associated = true
		Expect(poll()).To(Equal(supervisor.PhaseCheckingInternet))
		Expect(poll()).To(Equal(supervisor.PhaseConnected))
	}

	Describe("leaving Idle", func() {
		It("starts in Idle and waits for the backoff without touching the radio", func() {
			Expect(sup.Phase()).To(Equal(supervisor.PhaseIdle))
			for i := 0; i < 50; i++ {
				clock.Advance(100 * time.Millisecond)
				Expect(poll()).To(Equal(supervisor.PhaseIdle))
			}
			Expect(drv.commands()).To(BeZero())

			clock.Advance(backoff)
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.scans).To(HaveLen(1))
		})

		It("scans on the first poll after Begin", func() {
			Expect(sup.Begin()).To(Succeed())
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.scans).To(Equal([]bool{false}))
		})

		It("refuses to begin with an empty registry", func() {
			empty := supervisor.New(registry.New(0), drv, probe, clock)
			Expect(empty.Begin()).To(MatchError(supervisor.ErrNoNetworks))
		})

		It("passes the aggressive flag to the driver", func() {
			sup.SetAggressiveScan(true)
			Expect(sup.Begin()).To(Succeed())
			poll()
			Expect(drv.scans).To(Equal([]bool{true}))
		})
	})

	Describe("scanning", func() {
		BeforeEach(func() {
			Expect(sup.Begin()).To(Succeed())
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
		})

		It("stays in Scanning while the scan runs and never restarts it", func() {
			for i := 0; i < 10; i++ {
				Expect(poll()).To(Equal(supervisor.PhaseScanning))
			}
			Expect(drv.scans).To(HaveLen(1))
			Expect(sup.Snapshot().ScanInFlight).To(BeTrue())
		})

		It("returns to Idle on scan failure", func() {
			drv.outcome = supervisor.ScanOutcome{Status: supervisor.ScanFailed}
			Expect(poll()).To(Equal(supervisor.PhaseIdle))
			Expect(sup.Snapshot().ScanInFlight).To(BeFalse())
		})

		It("returns to Idle on an empty result list", func() {
			drv.outcome = done()
			Expect(poll()).To(Equal(supervisor.PhaseIdle))
		})

		It("connects to the strongest registered network", func() {
			drv.outcome = done(
				supervisor.AccessPoint{Name: "A", Signal: -70},
				supervisor.AccessPoint{Name: "B", Signal: -40},
				supervisor.AccessPoint{Name: "A", Signal: -50},
			)
			Expect(poll()).To(Equal(supervisor.PhaseScanComplete))
			Expect(drv.connects).To(BeEmpty())

			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
			Expect(drv.connects).To(Equal([]string{"B/pw-B"}))
			Expect(sup.Snapshot().TargetNetwork).To(Equal("B"))
		})

		It("goes back to Idle after ScanComplete when nothing matches", func() {
			drv.outcome = done(supervisor.AccessPoint{Name: "Neighbour", Signal: -30})
			Expect(poll()).To(Equal(supervisor.PhaseScanComplete))
			Expect(poll()).To(Equal(supervisor.PhaseIdle))
			Expect(drv.connects).To(BeEmpty())
		})
	})

	Describe("connecting", func() {
		BeforeEach(func() {
			Expect(sup.Begin()).To(Succeed())
			poll()
			drv.outcome = done(supervisor.AccessPoint{Name: "A", Signal: -60})
			poll()
			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
		})

		It("times out strictly after the connect timeout", func() {
			clock.Advance(supervisor.DefaultConnectTimeout)
			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
			Expect(drv.disconnects).To(BeZero())

			clock.Advance(time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))
			Expect(drv.disconnects).To(Equal(1))
		})

		It("honours a changed connect timeout on the next poll", func() {
			sup.SetConnectTimeout(2 * time.Second)
			Expect(sup.Phase()).To(Equal(supervisor.PhaseConnecting))
			clock.Advance(2*time.Second + time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))
		})

		It("verifies the internet after association", func() {
			drv.associated = true
			Expect(poll()).To(Equal(supervisor.PhaseCheckingInternet))
			Expect(probe.calls).To(BeZero())

			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(Equal(1))
			Expect(probe.lastHost).To(Equal(supervisor.DefaultInternetCheckHost))
			Expect(probe.lastPort).To(Equal(uint16(supervisor.DefaultInternetCheckPort)))
			Expect(probe.lastTO).To(Equal(supervisor.DefaultInternetCheckTimeout))
			Expect(sup.IsConnected()).To(BeTrue())
			Expect(sup.CurrentNetworkName()).To(Equal("A"))
		})

		It("skips the internet check when disabled", func() {
			sup.SetInternetCheckEnabled(false)
			drv.associated = true
			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(BeZero())
		})

		It("uses the configured probe target", func() {
			sup.SetInternetCheckHost("1.1.1.1")
			sup.SetInternetCheckPort(443)
			sup.SetInternetCheckTimeout(time.Second)
			drv.associated = true
			poll()
			poll()
			Expect(probe.lastHost).To(Equal("1.1.1.1"))
			Expect(probe.lastPort).To(Equal(uint16(443)))
			Expect(probe.lastTO).To(Equal(time.Second))
		})

		It("leaves the check off without a probe", func() {
			bare := supervisor.New(reg, drv, nil, clock)
			bare.SetInternetCheckEnabled(true)
			Expect(bare.Snapshot().InternetCheckEnabled).To(BeFalse())

			Expect(bare.Begin()).To(Succeed())
			bare.Poll(ctx)
			bare.Poll(ctx)
			bare.Poll(ctx)
			Expect(bare.Phase()).To(Equal(supervisor.PhaseConnecting))
			drv.associated = true
			bare.Poll(ctx)
			Expect(bare.Phase()).To(Equal(supervisor.PhaseConnected))
			bare.Poll(ctx)
			Expect(bare.Phase()).To(Equal(supervisor.PhaseConnected))
			Expect(drv.disconnects).To(BeZero())
		})

		It("drops the link once when the first probe fails", func() {
			probe.reachable = false
			drv.associated = true
			poll()
			Expect(poll()).To(Equal(supervisor.PhaseInternetCheckFailed))
			Expect(drv.disconnects).To(Equal(1))

			for i := 0; i < 20; i++ {
				clock.Advance(time.Second)
				Expect(poll()).To(Equal(supervisor.PhaseInternetCheckFailed))
			}
			Expect(drv.disconnects).To(Equal(1))
			Expect(probe.calls).To(Equal(1))
		})
	})

	Describe("connected", func() {
		BeforeEach(func() {
			connect()
			changes = nil
		})

		It("reports the link lost", func() {
			drv.associated = false
			Expect(sup.IsConnected()).To(BeFalse())
			Expect(sup.CurrentNetworkName()).To(BeEmpty())
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))
			Expect(drv.disconnects).To(BeZero())
		})

		It("retries the last network directly after the backoff", func() {
			drv.associated = false
			clock.Advance(5 * time.Second)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))

			clock.Advance(backoff - 5*time.Second)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))

			clock.Advance(time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
			Expect(drv.scans).To(HaveLen(1))
			Expect(drv.connects).To(Equal([]string{"B/pw-B", "B/pw-B"}))
			for _, c := range changes {
				Expect(c.To).NotTo(Equal(supervisor.PhaseScanning))
			}
		})

		It("scans again after a failed direct retry", func() {
			// B is gone for good; A is still in range.
			drv.associated = false
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))

			clock.Advance(backoff + time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
			Expect(drv.connects).To(Equal([]string{"B/pw-B", "B/pw-B"}))

			clock.Advance(supervisor.DefaultConnectTimeout + time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))
			Expect(drv.disconnects).To(Equal(1))
			Expect(sup.Snapshot().CurrentNetwork).To(BeEmpty())

			clock.Advance(backoff)
			drv.outcome = done(supervisor.AccessPoint{Name: "A", Signal: -70})
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.scans).To(HaveLen(2))

			Expect(poll()).To(Equal(supervisor.PhaseScanComplete))
			Expect(poll()).To(Equal(supervisor.PhaseConnecting))
			Expect(drv.connects).To(Equal([]string{"B/pw-B", "B/pw-B", "A/pw-A"}))
		})

		It("keeps healing while the last network stays away", func() {
			drv.associated = false
			drv.outcome = done()
			for i := 0; i < 12_000; i++ {
				clock.Advance(100 * time.Millisecond)
				poll()
			}
			Expect(len(drv.connects)).To(BeNumerically("<=", 2))
			Expect(len(drv.scans)).To(BeNumerically(">", 10))
		})

		It("re-probes every interval and stays connected while reachable", func() {
			clock.Advance(supervisor.InternetCheckInterval)
			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(Equal(1))

			clock.Advance(time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(Equal(2))
			Expect(changes).To(BeEmpty())

			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(Equal(2))
		})

		It("drops the link exactly once when a periodic probe fails", func() {
			probe.reachable = false
			clock.Advance(supervisor.InternetCheckInterval + time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseInternetCheckFailed))
			Expect(drv.disconnects).To(Equal(1))

			Expect(probe.calls).To(Equal(2))

			// The last connect attempt is already older than the backoff.
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.disconnects).To(Equal(1))
			Expect(drv.scans).To(HaveLen(2))
			Expect(probe.calls).To(Equal(2))
		})

		It("does not probe while the check is disabled", func() {
			sup.SetInternetCheckEnabled(false)
			clock.Advance(10 * supervisor.InternetCheckInterval)
			Expect(poll()).To(Equal(supervisor.PhaseConnected))
			Expect(probe.calls).To(Equal(1))
		})

		It("forces a disconnect and rescan after the refresh interval", func() {
			sup.SetInternetCheckEnabled(false)
			sup.SetRefreshInterval(10 * time.Minute)
			clock.Advance(10 * time.Minute)
			Expect(poll()).To(Equal(supervisor.PhaseConnected))

			clock.Advance(time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseIdle))
			Expect(drv.disconnects).To(Equal(1))

			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.scans).To(HaveLen(2))
		})

		It("reconnects on demand", func() {
			sup.Reconnect()
			Expect(sup.Phase()).To(Equal(supervisor.PhaseIdle))
			Expect(drv.disconnects).To(Equal(1))
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(sup.Snapshot().CurrentNetwork).To(Equal("B"))
		})
	})

	Describe("backoff", func() {
		It("is measured from the last connect attempt, not phase entry", func() {
			Expect(sup.Begin()).To(Succeed())
			poll()
			clock.Advance(20 * time.Second)
			drv.outcome = supervisor.ScanOutcome{Status: supervisor.ScanFailed}
			Expect(poll()).To(Equal(supervisor.PhaseIdle))

			before := drv.commands()
			for i := 0; i < 100; i++ {
				clock.Advance(100 * time.Millisecond)
				Expect(poll()).To(Equal(supervisor.PhaseIdle))
			}
			Expect(drv.commands()).To(Equal(before))

			clock.Advance(time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.commands()).To(Equal(before + 1))
		})

		It("gates scanning from Disconnected when no network was ever connected", func() {
			Expect(sup.Begin()).To(Succeed())
			poll()
			drv.outcome = done(supervisor.AccessPoint{Name: "A", Signal: -60})
			poll()
			poll()
			clock.Advance(supervisor.DefaultConnectTimeout + time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))

			clock.Advance(backoff - supervisor.DefaultConnectTimeout - time.Millisecond)
			Expect(poll()).To(Equal(supervisor.PhaseDisconnected))

			clock.Advance(time.Millisecond)
			drv.outcome = supervisor.ScanOutcome{}
			Expect(poll()).To(Equal(supervisor.PhaseScanning))
			Expect(drv.scans).To(HaveLen(2))
		})
	})

	Describe("feedback", func() {
		It("reports every phase change in order", func() {
			connect()
			var got []supervisor.Phase
			for _, c := range changes {
				got = append(got, c.To)
			}
			Expect(got).To(Equal([]supervisor.Phase{
				supervisor.PhaseScanning,
				supervisor.PhaseScanComplete,
				supervisor.PhaseConnecting,
				supervisor.PhaseCheckingInternet,
				supervisor.PhaseConnected,
			}))
			Expect(changes[2].Network).To(Equal("B"))
			Expect(changes[2].Event).To(Equal(supervisor.EventMatch))
			Expect(changes[4].From).To(Equal(supervisor.PhaseCheckingInternet))
		})

		It("survives a panicking sink", func() {
			sup.SetFeedback(supervisor.FeedbackFunc(func(supervisor.Change) { panic("boom") }))
			Expect(sup.Begin()).To(Succeed())
			Expect(func() { poll() }).NotTo(Panic())
			Expect(sup.Phase()).To(Equal(supervisor.PhaseScanning))
		})
	})
})
