// internal/rallypoint/ping_registry.go

// Package rallypoint tracks player latency to the relay server fleet and
// picks servers/routes for player pairs during game loading.
package rallypoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

// NoPing marks a server a player has no latency sample for.
const NoPing time.Duration = -1

var ErrServerOutOfRange = errors.New("relay server index out of range")

// Server describes one relay server in the fleet.
type Server struct {
	Address     string `json:"address"`
	Description string `json:"description"`
}

// PingRegistry holds the latest latency samples each player reported against
// the relay fleet. Game loading blocks on WaitForPingResult until a player
// has reported at least one sample.
type PingRegistry struct {
	mu      sync.Mutex
	servers []Server
	pings   map[string][]time.Duration
	waiters map[string][]chan struct{}
}

// NewPingRegistry returns a registry over a fixed relay fleet.
func NewPingRegistry(servers []Server) *PingRegistry {
	return &PingRegistry{
		servers: servers,
		pings:   make(map[string][]time.Duration),
		waiters: make(map[string][]chan struct{}),
	}
}

// Servers returns the relay fleet.
func (r *PingRegistry) Servers() []Server {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Server, len(r.servers))
	copy(out, r.servers)
	return out
}

// RecordPing stores a player's latency sample for one relay server and wakes
// anyone waiting on that player's results.
func (r *PingRegistry) RecordPing(player string, serverIndex int, latency time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if serverIndex < 0 || serverIndex >= len(r.servers) {
		return ErrServerOutOfRange
	}
	pings, ok := r.pings[player]
	if !ok {
		pings = make([]time.Duration, len(r.servers))
		for i := range pings {
			pings[i] = NoPing
		}
		r.pings[player] = pings
	}
	pings[serverIndex] = latency

	for _, ch := range r.waiters[player] {
		close(ch)
	}
	delete(r.waiters, player)
	return nil
}

// GetPings returns the player's samples, one entry per relay server. Servers
// without a sample hold NoPing.
func (r *PingRegistry) GetPings(player string) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.servers))
	pings, ok := r.pings[player]
	if !ok {
		for i := range out {
			out[i] = NoPing
		}
		return out
	}
	copy(out, pings)
	return out
}

// WaitForPingResult blocks until the player has reported at least one sample,
// then returns their pings. Returns the context error on cancellation.
func (r *PingRegistry) WaitForPingResult(ctx context.Context, player string) ([]time.Duration, error) {
	for {
		r.mu.Lock()
		if _, ok := r.pings[player]; ok {
			r.mu.Unlock()
			return r.GetPings(player), nil
		}
		ch := make(chan struct{})
		r.waiters[player] = append(r.waiters[player], ch)
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Forget drops a player's samples, typically when they disconnect.
func (r *PingRegistry) Forget(player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pings, player)
}
