package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pion/stun/v3"
	"go.uber.org/zap"
)

// STUN reports a host reachable when a STUN binding request to host:port is
// answered with a mapped address within the timeout.
type STUN struct{}

func (STUN) Check(ctx context.Context, host string, port uint16, timeout time.Duration) bool {
	addr, err := MappedAddress(ctx, net.JoinHostPort(host, strconv.Itoa(int(port))), timeout)
	if err != nil {
		zap.S().Debugw("stun probe failed", "host", host, "port", port, "error", err)
		return false
	}
	zap.S().Debugw("stun probe answered", "host", host, "mapped", addr)
	return true
}

// MappedAddress returns the public address the STUN server at server observed
// for this host.
func MappedAddress(ctx context.Context, server string, timeout time.Duration) (string, error) {
	if server == "" {
		return "", fmt.Errorf("empty STUN server")
	}
	uri, err := stun.ParseURI("stun:" + server)
	if err != nil {
		return "", err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan stun.XORMappedAddress, 1)
	// The callback and Do itself may both report an error after Close.
	fail := make(chan error, 2)

	go func() {
		var addr stun.XORMappedAddress
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr
		})
		if err != nil {
			fail <- err
		}
	}()

	select {
	case addr := <-result:
		return addr.String(), nil
	case err := <-fail:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
