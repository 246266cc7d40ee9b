package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teranos/netsukuku/config"
	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/transport"
)

func testConfig(name string, pos uint16, addr string) *config.Config {
	cfg := &config.Config{}
	cfg.Device.Name = name
	cfg.Device.Addr = addr
	cfg.Device.Position = pos
	cfg.Levels.Levels = []config.LevelConfig{{WaitRoundMS: 10}}
	return cfg
}

func TestNewBuildsNodeWithConfiguredNeighbors(t *testing.T) {
	net := transport.NewFakeNetwork()
	socket := net.NewSocket("node-a:0")
	defer socket.Close()

	var neighbors [netmap.MaxLevels][]flood.Target
	neighbors[0] = []flood.Target{{Pos: 2, Addr: "node-b:0"}}

	n := New(Options{
		Config:    testConfig("node-a", 1, "node-a"),
		Self:      1,
		Socket:    socket,
		Neighbors: neighbors,
	})

	snap := n.Snapshot()
	require.Equal(t, "node-a", snap.Device)
	require.Len(t, snap.Levels, 1)
	require.Equal(t, 1, snap.Levels[0].NeighborCt)
	require.Equal(t, "idle", snap.Levels[0].Phase)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	net := transport.NewFakeNetwork()
	socket := net.NewSocket("node-a:0")
	defer socket.Close()

	var neighbors [netmap.MaxLevels][]flood.Target
	neighbors[0] = []flood.Target{{Pos: 2, Addr: "node-b:0"}}

	n := New(Options{
		Config:    testConfig("node-a", 1, "node-a"),
		Self:      1,
		Socket:    socket,
		Neighbors: neighbors,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

// TestTwoNodesExchangeQSPNClose runs two engines on a shared fake network
// and checks that node B's level-0 round leaves Idle (Closed or Starter)
// before the deadline. Node B's own QSPN worker starts a round on its first
// poll, so reaching Starter does not by itself show that node A's
// QSPN_CLOSE arrived.
func TestTwoNodesExchangeQSPNClose(t *testing.T) {
	net := transport.NewFakeNetwork()
	sockA := net.NewSocket("node-a:0")
	sockB := net.NewSocket("node-b:0")
	defer sockA.Close()
	defer sockB.Close()

	var neighborsA, neighborsB [netmap.MaxLevels][]flood.Target
	neighborsA[0] = []flood.Target{{Pos: 2, Addr: "node-b:0"}}
	neighborsB[0] = []flood.Target{{Pos: 1, Addr: "node-a:0"}}

	nodeA := New(Options{
		Config:    testConfig("node-a", 1, "node-a"),
		Self:      1,
		Socket:    sockA,
		Neighbors: neighborsA,
	})
	nodeB := New(Options{
		Config:    testConfig("node-b", 2, "node-b"),
		Self:      2,
		Socket:    sockB,
		Neighbors: neighborsB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go nodeA.Run(ctx)
	go nodeB.Run(ctx)

	deadline := time.Now().Add(900 * time.Millisecond)
	var sawClosed bool
	for time.Now().Before(deadline) {
		if nodeB.qspn.SelfPhase(0) == netmap.PhaseClosed || nodeB.qspn.SelfPhase(0) == netmap.PhaseStarter {
			sawClosed = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, sawClosed, "node B never entered a level-0 round as closed or starter")
}
