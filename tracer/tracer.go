// Package tracer implements the tracer-packet pipeline: unpacking wire
// packets into path/RTT information, folding that information into the map
// and route table, and building outbound tracer packets that prepend the
// local hop.
package tracer

import (
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/qspnerrors"
	"github.com/teranos/netsukuku/wire"
)

// Unpacked is the decoded-and-resolved view of a tracer packet: the wire
// packet plus the sender's resolved position among our neighbors.
type Unpacked struct {
	Packet    wire.Packet
	FromRPos  netmap.Position
	FromKnown bool
}

// Unpack validates a packet's tracer framing beyond what wire.Unmarshal
// already checked, and resolves the sending neighbor's position by
// matching the source address against the local neighbor set. It does not
// re-validate wire framing (wire.Unmarshal already did); it fails with
// MalformedPacket only for tracer-semantic inconsistencies wire decoding
// cannot see (e.g. a hop count of zero, which no real tracer ever sends).
func Unpack(pkt wire.Packet, fromAddr string, resolve func(addr string) (netmap.Position, bool)) (Unpacked, error) {
	if len(pkt.Chunks) == 0 {
		return Unpacked{}, qspnerrors.MalformedPacket("tracer packet carries zero chunks")
	}
	pos, ok := resolve(fromAddr)
	return Unpacked{Packet: pkt, FromRPos: pos, FromKnown: ok}, nil
}

// Store folds a tracer's chunks into the route table and clears OLD on
// every visited hop in the map. For each chunk i (i=0 is the originator),
// the RTT to that hop is the sum of chunk RTTs 0..i. The candidate next hop
// toward every visited node is the sending neighbor (fromRPos).
func Store(level *netmap.Level, routes *RouteTable, fromRPos netmap.Position, chunks []wire.Chunk) {
	var accumulated netmap.RTTMicro
	for _, c := range chunks {
		accumulated += netmap.RTTMicro(c.RTTMicro)
		dest := netmap.Position(c.NodePos)

		if routes.Consider(dest, fromRPos, accumulated) {
			level.MarkUpdate(dest)
		}
		clearOld(level, dest)
	}
}

func clearOld(level *netmap.Level, pos netmap.Position) {
	if level.IsLeaf() {
		if n, ok := level.LookupNode(pos); ok {
			n.Flags &^= netmap.FlagQSPNOld
		}
		return
	}
	if g, ok := level.LookupGNode(pos); ok {
		g.Flags &^= netmap.FlagQSPNOld
	}
}

// StoreBnodeBlock merges the enclosed border-node RTT vectors into the
// bmap at level.
func StoreBnodeBlock(level *netmap.Level, records []wire.BnodeRecord) {
	for _, r := range records {
		links := make([]netmap.NeighborLink, len(r.Links))
		for i, l := range r.Links {
			links[i] = netmap.NeighborLink{Pos: netmap.Position(l.PeerGNodePos), RTT: netmap.RTTMicro(l.RTTMicro)}
		}
		level.BnodeAdd(netmap.Position(r.BnodePos), links)
	}
}

// AddRTT increments the RTT delta of chunks[hopIdx] by the link RTT to the
// sender. Used when a packet is forwarded without appending a new chunk
// (pure propagation, e.g. a co-starter just-forward case).
func AddRTT(chunks []wire.Chunk, hopIdx int, linkRTT netmap.RTTMicro) error {
	if hopIdx < 0 || hopIdx >= len(chunks) {
		return qspnerrors.MapInconsistency("add_rtt: hop index out of range")
	}
	chunks[hopIdx].RTTMicro += uint32(linkRTT)
	return nil
}
