// internal/rallypoint/rallypoint_test.go
package rallypoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServers() []Server {
	return []Server{
		{Address: "relay-us-west.example.com", Description: "US West"},
		{Address: "relay-us-east.example.com", Description: "US East"},
		{Address: "relay-eu.example.com", Description: "Europe"},
	}
}

func TestPingRegistryRecordAndGet(t *testing.T) {
	r := NewPingRegistry(testServers())

	pings := r.GetPings("dronebabo")
	require.Len(t, pings, 3)
	for _, p := range pings {
		assert.Equal(t, NoPing, p)
	}

	require.NoError(t, r.RecordPing("dronebabo", 1, 40*time.Millisecond))
	pings = r.GetPings("dronebabo")
	assert.Equal(t, NoPing, pings[0])
	assert.Equal(t, 40*time.Millisecond, pings[1])

	assert.ErrorIs(t, r.RecordPing("dronebabo", 3, time.Millisecond), ErrServerOutOfRange)
	assert.ErrorIs(t, r.RecordPing("dronebabo", -1, time.Millisecond), ErrServerOutOfRange)
}

func TestPingRegistryWaitResolvesOnRecord(t *testing.T) {
	r := NewPingRegistry(testServers())

	got := make(chan []time.Duration, 1)
	go func() {
		pings, err := r.WaitForPingResult(context.Background(), "pachi")
		require.NoError(t, err)
		got <- pings
	}()

	// Give the waiter a moment to register before the sample lands.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.RecordPing("pachi", 0, 25*time.Millisecond))

	select {
	case pings := <-got:
		assert.Equal(t, 25*time.Millisecond, pings[0])
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestPingRegistryWaitImmediateWhenSampleExists(t *testing.T) {
	r := NewPingRegistry(testServers())
	require.NoError(t, r.RecordPing("pachi", 2, 90*time.Millisecond))

	pings, err := r.WaitForPingResult(context.Background(), "pachi")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Millisecond, pings[2])
}

func TestPingRegistryWaitHonorsContext(t *testing.T) {
	r := NewPingRegistry(testServers())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.WaitForPingResult(ctx, "ghost")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPickServer(t *testing.T) {
	p1 := []time.Duration{30 * time.Millisecond, 80 * time.Millisecond, NoPing}
	p2 := []time.Duration{50 * time.Millisecond, 20 * time.Millisecond, 10 * time.Millisecond}

	// Server 0: 80ms combined; server 1: 100ms; server 2 unusable for p1.
	assert.Equal(t, 0, PickServer(p1, p2))

	// No overlapping samples at all.
	assert.Equal(t, -1, PickServer([]time.Duration{NoPing}, []time.Duration{10 * time.Millisecond}))
	assert.Equal(t, -1, PickServer(nil, nil))
}

func TestLocalRouteCreator(t *testing.T) {
	var rc LocalRouteCreator
	route, err := rc.CreateRoute(context.Background(), testServers()[0])
	require.NoError(t, err)
	assert.NotEqual(t, route.ID, route.P1ID)
	assert.NotEqual(t, route.P1ID, route.P2ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rc.CreateRoute(ctx, testServers()[0])
	assert.ErrorIs(t, err, context.Canceled)
}
