package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const apiV1 = "/api/v1"

// Source is the daemon state the API reads and acts on. Implementations
// must be safe for concurrent use.
type Source interface {
	Status() StatusResponse
	// RequestReconnect queues a reconnect and reports false when one is
	// already pending.
	RequestReconnect() bool
}

type Server struct {
	srv *http.Server
}

// NewServer wires the routes. A nil gatherer disables /metrics.
func NewServer(addr string, src Source, gatherer prometheus.Gatherer) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewHandler(src, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// NewHandler builds the gin engine serving the status API.
func NewHandler(src Source, gatherer prometheus.Gatherer) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(zap.L(), time.RFC3339, true),
		ginzap.RecoveryWithZap(zap.L(), true),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	router := engine.Group(apiV1)
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.Status())
	})
	router.POST("/reconnect", func(c *gin.Context) {
		if !src.RequestReconnect() {
			c.JSON(http.StatusConflict, ReconnectResponse{Accepted: false, Message: "reconnect already pending"})
			return
		}
		c.JSON(http.StatusAccepted, ReconnectResponse{Accepted: true, Message: "reconnect requested"})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
	})

	return engine
}

// Start serves until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	zap.S().Named("http").Infow("status api listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(stopCtx)
	}()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.S().Named("http").Errorw("status api failed", "error", err)
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("status api shutdown", "error", err)
	}
}
