package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"wifictl/internal/supervisor"
)

const (
	MethodTCP  = "tcp"
	MethodSTUN = "stun"
)

// New returns the probe for method. An empty method means TCP.
func New(method string) (supervisor.Probe, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", MethodTCP:
		return TCP{}, nil
	case MethodSTUN:
		return STUN{}, nil
	default:
		return nil, fmt.Errorf("unknown internet check method %q", method)
	}
}

// TCP reports a host reachable when a TCP connection to host:port completes
// within the timeout.
type TCP struct{}

func (TCP) Check(ctx context.Context, host string, port uint16, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		zap.S().Debugw("tcp probe failed", "addr", addr, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}
