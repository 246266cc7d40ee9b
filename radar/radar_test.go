package radar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/transport"
)

// scanWithReplyDelay runs a Scan against a single peer, feeding one
// EchoReply for it after delay so the measured RTT is roughly delay, then
// returns the events observed.
func scanWithReplyDelay(t *testing.T, r *Radar, peer netmap.Position, addr string, delay, maxWait time.Duration) []Event {
	t.Helper()
	replies := make(chan EchoReply, 1)
	go func() {
		time.Sleep(delay)
		replies <- NewEchoReply(peer)
		close(replies)
	}()
	return r.Scan(context.Background(), []Peer{{Pos: peer, Addr: addr}}, maxWait, replies)
}

func TestScanEmitsLinkUpOnFirstReply(t *testing.T) {
	net := transport.NewFakeNetwork()
	sock := net.NewSocket("A")
	r := New(sock, 1000)

	events := scanWithReplyDelay(t, r, 1, "B", time.Millisecond, 50*time.Millisecond)
	require.Len(t, events, 1)
	require.Equal(t, EventLinkUp, events[0].Kind)
}

func TestScanEmitsRTTChangeAboveDelta(t *testing.T) {
	net := transport.NewFakeNetwork()
	sock := net.NewSocket("A")
	r := New(sock, 1000)

	scanWithReplyDelay(t, r, 1, "B", time.Millisecond, 50*time.Millisecond)
	events := scanWithReplyDelay(t, r, 1, "B", 20*time.Millisecond, 50*time.Millisecond)

	require.Len(t, events, 1)
	require.Equal(t, EventLinkRTTChange, events[0].Kind)
}

func TestScanNoEventOnStableRTT(t *testing.T) {
	net := transport.NewFakeNetwork()
	sock := net.NewSocket("A")
	r := New(sock, 1000)

	scanWithReplyDelay(t, r, 1, "B", time.Millisecond, 50*time.Millisecond)
	events := scanWithReplyDelay(t, r, 1, "B", time.Millisecond, 50*time.Millisecond)

	for _, ev := range events {
		require.NotEqual(t, EventLinkRTTChange, ev.Kind, "two back-to-back short round trips should stay within RTTDeltaMicro")
	}
}

func TestScanDebouncesLinkDownOverTwoMisses(t *testing.T) {
	net := transport.NewFakeNetwork()
	sock := net.NewSocket("A")
	r := New(sock, 1000)

	scanWithReplyDelay(t, r, 1, "B", time.Millisecond, 50*time.Millisecond)

	emptyReplies := make(chan EchoReply)
	close(emptyReplies)

	events1 := r.Scan(context.Background(), []Peer{{Pos: 1, Addr: "B"}}, 5*time.Millisecond, emptyReplies)
	require.Empty(t, events1, "single miss should not yet emit link_down")

	emptyReplies2 := make(chan EchoReply)
	close(emptyReplies2)
	events2 := r.Scan(context.Background(), []Peer{{Pos: 1, Addr: "B"}}, 5*time.Millisecond, emptyReplies2)
	require.Len(t, events2, 1)
	require.Equal(t, EventLinkDown, events2[0].Kind)
}

func TestFinalizeArithmeticMean(t *testing.T) {
	e := newEntry(1, "addr")
	e.addSample(10)
	e.addSample(20)
	e.addSample(30)
	require.Equal(t, netmap.RTTMicro(20), e.finalize())
}

func TestFinalizeNoSamples(t *testing.T) {
	e := newEntry(1, "addr")
	require.Equal(t, netmap.RTTMicro(0), e.finalize())
}
