// Package radar implements periodic neighbor discovery: it broadcasts
// ECHO_ME probes, accumulates ECHO_REPLY samples per peer, and emits
// link_up/link_rtt_change/link_down events that drive send_qspn_now.
package radar

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/netsukuku/logger"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/transport"
	"github.com/teranos/netsukuku/wire"
	"golang.org/x/time/rate"
)

// EventKind classifies a radar-observed link transition.
type EventKind int

const (
	EventLinkUp EventKind = iota
	EventLinkRTTChange
	EventLinkDown
)

func (k EventKind) String() string {
	switch k {
	case EventLinkUp:
		return "link_up"
	case EventLinkRTTChange:
		return "link_rtt_change"
	case EventLinkDown:
		return "link_down"
	default:
		return "unknown"
	}
}

// Event describes one link transition discovered by a scan.
type Event struct {
	Kind   EventKind
	Peer   netmap.Position
	OldRTT netmap.RTTMicro
	NewRTT netmap.RTTMicro
}

// Peer is a known neighbor this radar probes.
type Peer struct {
	Pos  netmap.Position
	Addr string
}

// Radar owns one scan_mutex (two scans are never in flight at once) and
// the rolling per-peer liveness state across scans (to debounce link_down
// over two consecutive misses, as required by the spec).
type Radar struct {
	socket    transport.Socket
	log       *zapSugared
	limiter   *rate.Limiter
	scanMu    sync.Mutex
	missCount map[netmap.Position]int
	lastRTT   map[netmap.Position]netmap.RTTMicro
	known     bool
}

// zapSugared avoids importing zap directly in this file's signature list;
// kept as a thin alias so package consumers don't need to know the exact
// logging library type to construct a Radar.
type zapSugared = interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
}

// New constructs a Radar bound to socket, pacing outbound ECHO_ME sends to
// at most ratePerSec across all peers (one shared limiter, burst 1) so a
// flapping link cannot flood-storm the local send path. Scan waits for the
// limiter before each send, so every peer is still probed once per scan.
func New(socket transport.Socket, ratePerSec float64) *Radar {
	return &Radar{
		socket:    socket,
		log:       logger.ComponentLogger("radar"),
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		missCount: make(map[netmap.Position]int),
		lastRTT:   make(map[netmap.Position]netmap.RTTMicro),
	}
}

// echoMePacket serializes a bare ECHO_ME envelope: header plus zeroed
// broadcast/tracer sub-headers and no chunks, through the same
// Marshal path every other control packet uses.
func echoMePacket() ([]byte, error) {
	return wire.Packet{Header: wire.Header{Op: wire.OpEchoMe}}.Marshal()
}

// Scan runs one ECHO_ME broadcast round against peers, waiting up to
// maxWait accumulating replies delivered via the replies channel, then
// returns the link events observed. Two scans never run concurrently
// (scanMu). RTT per peer is measured locally as the elapsed time between
// this node's ECHO_ME send and the matching ECHO_REPLY notification.
func (r *Radar) Scan(ctx context.Context, peers []Peer, maxWait time.Duration, replies <-chan EchoReply) []Event {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	payload, err := echoMePacket()
	if err != nil {
		logger.RadarDebugw("echo_me marshal failed", logger.FieldError, err.Error())
		return nil
	}

	entries := make(map[netmap.Position]*entry, len(peers))
	for _, p := range peers {
		e := newEntry(p.Pos, p.Addr)
		entries[p.Pos] = e
		if err := r.limiter.Wait(ctx); err == nil {
			e.sentAt = time.Now()
			if err := r.socket.Send(p.Addr, payload); err != nil {
				logger.RadarDebugw("echo_me send failed", logger.FieldNeighbor, p.Addr, logger.FieldError, err.Error())
			}
		}
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

collectLoop:
	for {
		select {
		case rep, ok := <-replies:
			if !ok {
				break collectLoop
			}
			if e, found := entries[rep.peer]; found && !e.sentAt.IsZero() {
				e.addSample(netmap.RTTMicro(time.Since(e.sentAt).Microseconds()))
			}
		case <-deadline.C:
			break collectLoop
		case <-ctx.Done():
			break collectLoop
		}
	}

	var events []Event
	seenThisScan := make(map[netmap.Position]bool)
	for pos, e := range entries {
		if e.nSamples == 0 {
			continue
		}
		seenThisScan[pos] = true
		rtt := e.finalize()
		r.missCount[pos] = 0

		old, known := r.lastRTT[pos]
		switch {
		case !known:
			events = append(events, Event{Kind: EventLinkUp, Peer: pos, NewRTT: rtt})
		case absDiff(old, rtt) >= RTTDeltaMicro:
			events = append(events, Event{Kind: EventLinkRTTChange, Peer: pos, OldRTT: old, NewRTT: rtt})
		}
		r.lastRTT[pos] = rtt
	}

	for pos := range r.lastRTT {
		if seenThisScan[pos] {
			continue
		}
		r.missCount[pos]++
		if r.missCount[pos] >= 2 {
			events = append(events, Event{Kind: EventLinkDown, Peer: pos, OldRTT: r.lastRTT[pos]})
			delete(r.lastRTT, pos)
			delete(r.missCount, pos)
		}
	}

	for _, ev := range events {
		if logger.ShouldShowLinkEvents(logger.VerbosityInfo) {
			logger.RadarInfow("link event", logger.FieldNeighbor, ev.Peer, "kind", ev.Kind.String())
		}
	}
	return events
}

func absDiff(a, b netmap.RTTMicro) netmap.RTTMicro {
	if a > b {
		return a - b
	}
	return b - a
}

// EchoReply is one ECHO_REPLY arrival handed to Scan by the receive loop:
// just the resolved peer, since Scan itself measures the round-trip time
// against the ECHO_ME send it recorded (kept decoupled from wire decoding
// so Scan stays easy to test).
type EchoReply struct {
	peer netmap.Position
}

// NewEchoReply builds an EchoReply for a decoded ECHO_REPLY packet's
// resolved sender.
func NewEchoReply(peer netmap.Position) EchoReply {
	return EchoReply{peer: peer}
}
