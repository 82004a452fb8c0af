package agent

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"wifictl/internal/api"
	"wifictl/internal/config"
	"wifictl/internal/execx"
	"wifictl/internal/feedback"
	"wifictl/internal/metrics"
	"wifictl/internal/probe"
	"wifictl/internal/store"
	"wifictl/internal/supervisor"
	"wifictl/internal/wifi"
)

// Deps overrides the collaborators New would otherwise build from config.
type Deps struct {
	Runner  execx.Runner
	Driver  supervisor.Driver
	Probe   supervisor.Probe
	Clock   supervisor.Clock
	Metrics *prometheus.Registry
}

// Agent owns the supervisor and the host loop that polls it.
type Agent struct {
	cfg     config.Config
	sup     *supervisor.Supervisor
	board   *Board
	clock   supervisor.Clock
	metrics *prometheus.Registry
	closers []func()
}

// Run builds an agent from cfg and polls until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	a, err := New(cfg, Deps{})
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func New(cfg config.Config, deps Deps) (*Agent, error) {
	reg, skipped := config.Registry(cfg)
	for _, err := range skipped {
		zap.S().Warnw("skipping network", "error", err)
	}

	drv := deps.Driver
	if drv == nil {
		runner := deps.Runner
		if runner == nil {
			r := execx.NewOSRunner(os.Stdout, os.Stderr)
			r.Timeout = cfg.CommandTimeout
			runner = r
		}
		var err error
		drv, err = wifi.New(cfg.Driver, runner, wifi.Options{Interface: cfg.Interface, ScanSettle: cfg.ScanSettle})
		if err != nil {
			return nil, err
		}
	}

	prb := deps.Probe
	if prb == nil && config.InternetCheckEnabled(&cfg) {
		var err error
		if prb, err = probe.New(cfg.InternetCheck.Method); err != nil {
			return nil, err
		}
	}

	clock := deps.Clock
	if clock == nil {
		clock = supervisor.SystemClock{}
	}

	promReg := deps.Metrics
	if promReg == nil {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	a := &Agent{
		cfg:     cfg,
		board:   NewBoard(cfg.Interface, cfg.Driver, reg.Names()),
		clock:   clock,
		metrics: promReg,
	}
	sinks, err := a.feedbackSinks()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sup = supervisor.New(reg, drv, prb, clock)
	config.ApplySupervisor(cfg, a.sup)
	a.sup.SetFeedback(sinks)
	return a, nil
}

func (a *Agent) feedbackSinks() (feedback.Multi, error) {
	fb := a.cfg.Feedback
	sinks := feedback.Multi{feedback.Log{}}

	prom, err := feedback.NewPrometheus(a.metrics)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, prom)

	if fb.LED != "" {
		sinks = append(sinks, feedback.NewLED(fb.LEDRoot, fb.LED))
	}
	if fb.StatusPath != "" {
		sinks = append(sinks, store.NewStatusWriter(fb.StatusPath, a.cfg.Interface))
	}
	if fb.EventsPath != "" {
		sinks = append(sinks, metrics.NewRecorder(fb.EventsPath))
	}
	if fb.MQTT.Broker != "" {
		client, err := feedback.DialMQTT(feedback.MQTTOptions{
			Broker:   fb.MQTT.Broker,
			ClientID: fb.MQTT.ClientID,
			Username: fb.MQTT.Username,
			Password: fb.MQTT.Password,
			Topic:    fb.MQTT.Topic,
		})
		if err != nil {
			return nil, err
		}
		m := feedback.NewMQTT(client, fb.MQTT.Topic)
		a.closers = append(a.closers, m.Close)
		sinks = append(sinks, m)
	}
	return sinks, nil
}

// Board exposes the snapshot board, mainly for tests and the API.
func (a *Agent) Board() *Board { return a.board }

// Run polls the supervisor every poll interval until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.sup.Begin(); err != nil {
		return err
	}
	zap.S().Infow("wifi supervisor started",
		"interface", a.cfg.Interface,
		"driver", a.cfg.Driver,
		"networks", a.board.networks,
		"poll_interval", a.cfg.PollInterval,
	)

	if a.cfg.API.Listen != "" {
		srv := api.NewServer(a.cfg.API.Listen, a.board, a.metrics)
		go func() {
			if err := srv.Start(ctx); err != nil {
				zap.S().Errorw("status api stopped; supervisor keeps running", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	a.step(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.board.Reconnects():
			a.sup.Reconnect()
			a.board.Publish(a.sup.Snapshot(), a.clock.Now())
		case <-ticker.C:
			a.step(ctx)
		}
	}
}

func (a *Agent) step(ctx context.Context) {
	a.sup.Poll(ctx)
	a.board.Publish(a.sup.Snapshot(), a.clock.Now())
}

// Close releases feedback connections.
func (a *Agent) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}
