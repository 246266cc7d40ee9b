package flood

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teranos/netsukuku/netmap"
)

func TestExcludeFromAndGLevelSkipsSender(t *testing.T) {
	ctx := Context{From: 3, Level: netmap.NewLevel(0)}
	require.True(t, ExcludeFromAndGLevel(ctx, 3))
	require.False(t, ExcludeFromAndGLevel(ctx, 4))
}

func TestExcludeFromAndGLevelSkipsOutsideGroup(t *testing.T) {
	ctx := Context{
		From:       3,
		UpperLevel: 7,
		Level:      netmap.NewLevel(0),
		NeighborGID: func(pos netmap.Position) (uint16, bool) {
			if pos == 4 {
				return 9, true
			}
			return 7, true
		},
	}
	require.True(t, ExcludeFromAndGLevel(ctx, 4))
	require.False(t, ExcludeFromAndGLevel(ctx, 5))
}

func TestExcludeFromAndGLevelAndClosedSkipsClosedNeighbor(t *testing.T) {
	level := netmap.NewLevel(0)
	closedNode := &netmap.Node{Pos: 4}
	closedNode.SetPhase(netmap.PhaseClosed)
	level.PutNode(closedNode)
	level.PutNode(&netmap.Node{Pos: 5})

	ctx := Context{From: 3, Level: level}
	require.True(t, ExcludeFromAndGLevelAndClosed(ctx, 4))
	require.False(t, ExcludeFromAndGLevelAndClosed(ctx, 5))
}

func TestExcludeFromAndOpenedAndGLevelSkipsOpened(t *testing.T) {
	ctx := Context{
		From:  3,
		SubID: 1,
		Level: netmap.NewLevel(0),
		Opened: func(subID uint8, pos netmap.Position) bool {
			return subID == 1 && pos == 6
		},
	}
	require.True(t, ExcludeFromAndOpenedAndGLevel(ctx, 6))
	require.False(t, ExcludeFromAndOpenedAndGLevel(ctx, 7))
}

func TestExcludeFromAndGLevelAndNotStarterKeepsOnlyStarters(t *testing.T) {
	level := netmap.NewLevel(0)
	starter := &netmap.Node{Pos: 4}
	starter.SetPhase(netmap.PhaseStarter)
	level.PutNode(starter)
	level.PutNode(&netmap.Node{Pos: 5})

	ctx := Context{From: 3, Level: level}
	require.False(t, ExcludeFromAndGLevelAndNotStarter(ctx, 4))
	require.True(t, ExcludeFromAndGLevelAndNotStarter(ctx, 5))
}

func TestExcludeAllButNotFromSendsOnlyToFrom(t *testing.T) {
	ctx := Context{From: 3}
	require.False(t, ExcludeAllButNotFrom(ctx, 3))
	require.True(t, ExcludeAllButNotFrom(ctx, 4))
}

func TestSendSkipsExcludedAndAggregatesFailures(t *testing.T) {
	targets := []Target{
		{Pos: 1, Addr: "a"},
		{Pos: 2, Addr: "b"},
		{Pos: 3, Addr: "c"},
	}
	ctx := Context{From: 2, Level: netmap.NewLevel(0)}

	var sentTo []string
	err := Send(targets, ctx, ExcludeFromAndGLevel, func(addr string, payload []byte) error {
		sentTo = append(sentTo, addr)
		if addr == "c" {
			return require.AnError
		}
		return nil
	}, []byte("payload"))

	require.ElementsMatch(t, []string{"a", "c"}, sentTo)
	require.Error(t, err)
}

func TestSendAllSucceedReturnsNilError(t *testing.T) {
	targets := []Target{{Pos: 1, Addr: "a"}}
	ctx := Context{From: 2, Level: netmap.NewLevel(0)}
	err := Send(targets, ctx, ExcludeFromAndGLevel, func(string, []byte) error { return nil }, nil)
	require.NoError(t, err)
}
