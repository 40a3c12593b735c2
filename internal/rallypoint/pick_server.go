// internal/rallypoint/pick_server.go
package rallypoint

import "time"

// PickServer chooses the relay server index with the lowest combined latency
// for the pair. Servers either player lacks a sample for are skipped. Returns
// -1 when no server has samples from both players.
func PickServer(p1Pings, p2Pings []time.Duration) int {
	best := -1
	var bestTotal time.Duration
	n := len(p1Pings)
	if len(p2Pings) < n {
		n = len(p2Pings)
	}
	for i := 0; i < n; i++ {
		if p1Pings[i] < 0 || p2Pings[i] < 0 {
			continue
		}
		total := p1Pings[i] + p2Pings[i]
		if best == -1 || total < bestTotal {
			best, bestTotal = i, total
		}
	}
	return best
}
