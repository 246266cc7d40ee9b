package tracer

import (
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/qspnerrors"
	"github.com/teranos/netsukuku/wire"
)

// BuildParams carries everything needed to build a fresh outbound tracer
// packet: our local chunk is prepended to whatever chunk history (if any)
// a received packet already carried.
type BuildParams struct {
	Op          wire.Op
	QSPNID      uint32
	SrcIP       uint32
	RootPos     netmap.Position
	GID         uint16
	Level       uint8
	SubID       uint8
	BcastFlags  uint8
	PrevChunks  []wire.Chunk // nil when starting a brand new round
	BnodeBlock  []wire.BnodeRecord
}

// Build prepends the local chunk (position, zero RTT delta — the outgoing
// link RTT is added by the receiver) to any previously received chunk
// list, and serializes a fresh outbound packet. Packets are value types:
// Build never mutates PrevChunks, it copies into a new slice. Fails with
// BufferFull if the resulting hop count would exceed MaxTracerHops.
func Build(p BuildParams) (wire.Packet, error) {
	if len(p.PrevChunks)+1 > netmap.MaxTracerHops {
		return wire.Packet{}, qspnerrors.BufferFull(len(p.PrevChunks)+1, netmap.MaxTracerHops)
	}

	chunks := make([]wire.Chunk, 0, len(p.PrevChunks)+1)
	chunks = append(chunks, wire.Chunk{NodePos: uint16(p.RootPos), RTTMicro: 0})
	chunks = append(chunks, p.PrevChunks...)

	pkt := wire.Packet{
		Header: wire.Header{Op: p.Op, ID: p.QSPNID, SrcIP: p.SrcIP},
		Bcast: wire.BroadcastHeader{
			GNode: p.GID,
			Level: p.Level,
			SubID: p.SubID,
			Flags: p.BcastFlags,
		},
		Tracer: wire.TracerHeader{Hops: uint16(len(chunks))},
		Chunks: chunks,
	}
	if p.BnodeBlock != nil {
		pkt.BnodeInfo = p.BnodeBlock
	}
	return pkt, nil
}

// Forward builds a value-semantics copy of pkt with the last-hop RTT
// incremented by linkRTT, for pure propagation (no new chunk appended).
// The original pkt is never mutated.
func Forward(pkt wire.Packet, lastHopIdx int, linkRTT netmap.RTTMicro) (wire.Packet, error) {
	out := pkt
	out.Chunks = make([]wire.Chunk, len(pkt.Chunks))
	copy(out.Chunks, pkt.Chunks)
	if err := AddRTT(out.Chunks, lastHopIdx, linkRTT); err != nil {
		return wire.Packet{}, err
	}
	return out, nil
}
