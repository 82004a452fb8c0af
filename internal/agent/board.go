package agent

import (
	"sync"
	"time"

	"wifictl/internal/api"
	"wifictl/internal/supervisor"
)

// Board publishes the loop's latest snapshot to other goroutines and carries
// reconnect requests back to the loop. The supervisor itself never leaves
// the loop goroutine.
type Board struct {
	iface    string
	driver   string
	networks []string

	mu        sync.RWMutex
	snap      supervisor.Snapshot
	updatedAt time.Time

	reconnect chan struct{}
}

var _ api.Source = (*Board)(nil)

func NewBoard(iface, driver string, networks []string) *Board {
	return &Board{
		iface:     iface,
		driver:    driver,
		networks:  append([]string(nil), networks...),
		snap:      supervisor.Snapshot{Phase: supervisor.PhaseIdle},
		reconnect: make(chan struct{}, 1),
	}
}

func (b *Board) Publish(s supervisor.Snapshot, at time.Time) {
	b.mu.Lock()
	b.snap, b.updatedAt = s, at
	b.mu.Unlock()
}

func (b *Board) Snapshot() supervisor.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Board) Status() api.StatusResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return api.StatusResponse{
		Interface: b.iface,
		Driver:    b.driver,
		Networks:  append([]string(nil), b.networks...),
		UpdatedAt: b.updatedAt,
		State:     b.snap,
	}
}

// RequestReconnect queues one reconnect; further requests are dropped until
// the loop takes it.
func (b *Board) RequestReconnect() bool {
	select {
	case b.reconnect <- struct{}{}:
		return true
	default:
		return false
	}
}

// Reconnects is drained by the agent loop.
func (b *Board) Reconnects() <-chan struct{} {
	return b.reconnect
}
