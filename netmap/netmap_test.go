package netmap

import (
	"bytes"
	"testing"

	stderrors "errors"

	"github.com/stretchr/testify/require"
	"github.com/teranos/netsukuku/qspnerrors"
)

func TestLookupMissingPosition(t *testing.T) {
	l := NewLevel(0)
	_, ok := l.LookupNode(5)
	require.False(t, ok)
}

func TestPutAndLookupNode(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1, Flags: FlagBNODE})

	n, ok := l.LookupNode(1)
	require.True(t, ok)
	require.True(t, n.IsBnode())
}

func TestNodeDelMarksVoidAndClearsNeighbors(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 2, Neighbors: []NeighborLink{{Pos: 3, RTT: 10}}})

	require.NoError(t, l.NodeDel(2))

	n, ok := l.LookupNode(2)
	require.True(t, ok)
	require.True(t, n.IsVoid())
	require.Empty(t, n.Neighbors)
}

func TestNodeDelRefusesToDeleteME(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 0, Flags: FlagME})
	require.Error(t, l.NodeDel(0))
}

func TestNodeDelUnknownPositionIsMapInconsistency(t *testing.T) {
	l := NewLevel(0)
	err := l.NodeDel(99)
	require.Error(t, err)
	require.True(t, stderrors.Is(err, qspnerrors.ErrMapInconsistency))
}

func TestMarkOldSkipsMEAndVoid(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 0, Flags: FlagME})
	l.PutNode(&Node{Pos: 1, Flags: FlagVOID})
	l.PutNode(&Node{Pos: 2})

	l.MarkOld()

	me, _ := l.LookupNode(0)
	void, _ := l.LookupNode(1)
	plain, _ := l.LookupNode(2)

	require.False(t, me.Flags.Has(FlagQSPNOld))
	require.False(t, void.Flags.Has(FlagQSPNOld))
	require.True(t, plain.Flags.Has(FlagQSPNOld))
}

func TestOldEntitiesAfterMarkOld(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 5})
	l.MarkOld()

	stale := l.OldEntities()
	require.ElementsMatch(t, []Position{5}, stale)
}

func TestFlagsClear(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1, Flags: FlagQSPNClosed | FlagBNODE})
	l.FlagsClear(FlagQSPNClosed)

	n, _ := l.LookupNode(1)
	require.False(t, n.Flags.Has(FlagQSPNClosed))
	require.True(t, n.Flags.Has(FlagBNODE))
}

func TestPhaseRoundTrip(t *testing.T) {
	var n Node
	for _, p := range []Phase{PhaseIdle, PhaseStarter, PhaseParticipant, PhaseClosed, PhaseOpener, PhaseOpened} {
		n.SetPhase(p)
		require.Equal(t, p, n.Phase())
	}
}

func TestDigestStableUnderReinsertSameState(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1, Flags: FlagQSPNClosed, Neighbors: []NeighborLink{{Pos: 2, RTT: 10}}})
	d1 := l.Digest()

	// Re-delivering the same state should not change the digest.
	l.PutNode(&Node{Pos: 1, Flags: FlagQSPNClosed, Neighbors: []NeighborLink{{Pos: 2, RTT: 10}}})
	d2 := l.Digest()

	require.Equal(t, d1, d2)
}

func TestDigestChangesOnRTTChange(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1, Neighbors: []NeighborLink{{Pos: 2, RTT: 10}}})
	d1 := l.Digest()

	l.PutNode(&Node{Pos: 1, Neighbors: []NeighborLink{{Pos: 2, RTT: 20}}})
	d2 := l.Digest()

	require.NotEqual(t, d1, d2)
}

func TestDigestExcludesVoidEntities(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1})
	d1 := l.Digest()

	l.PutNode(&Node{Pos: 2, Flags: FlagVOID})
	d2 := l.Digest()

	require.Equal(t, d1, d2)
}

func TestSaveLoadFileRoundTrip(t *testing.T) {
	l := NewLevel(0)
	l.PutNode(&Node{Pos: 1, Flags: FlagBNODE, Neighbors: []NeighborLink{{Pos: 2, RTT: 500}}})
	l.PutNode(&Node{Pos: 2, Flags: 0})

	var buf bytes.Buffer
	require.NoError(t, l.SaveFile(&buf))

	loaded, err := LoadFile(&buf)
	require.NoError(t, err)

	n1, ok := loaded.LookupNode(1)
	require.True(t, ok)
	require.True(t, n1.IsBnode())
	require.Equal(t, []NeighborLink{{Pos: 2, RTT: 500}}, n1.Neighbors)
}

func TestLoadFileRejectsBadMagic(t *testing.T) {
	_, err := LoadFile(bytes.NewReader([]byte("XXXX\x01\x00\x00\x00")))
	require.Error(t, err)
}
