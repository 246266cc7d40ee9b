// Package wire implements the big-endian binary framing that QSPN control
// packets use on the wire: packet header, broadcast header, tracer header,
// tracer chunks and the optional bnode block. Encoding follows the teacher
// corpus's preferred style for this kind of thing (davidcoles-bgp's message
// codec): small typed structs with explicit Marshal/Unmarshal pairs, no
// reflection, bounds checked before every slice access.
package wire

import (
	"encoding/binary"

	"github.com/teranos/netsukuku/qspnerrors"
)

// Op identifies the kind of control packet on the wire.
type Op uint16

const (
	OpEchoMe Op = iota + 1
	OpEchoReply
	OpTracerPkt
	OpTracerPktConnect
	OpQSPNClose
	OpQSPNOpen
)

func (o Op) String() string {
	switch o {
	case OpEchoMe:
		return "ECHO_ME"
	case OpEchoReply:
		return "ECHO_REPLY"
	case OpTracerPkt:
		return "TRACER_PKT"
	case OpTracerPktConnect:
		return "TRACER_PKT_CONNECT"
	case OpQSPNClose:
		return "QSPN_CLOSE"
	case OpQSPNOpen:
		return "QSPN_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Broadcast header flag bits.
const (
	FlagBnodeClosed  uint8 = 1 << 0
	FlagBnodeOpened  uint8 = 1 << 1
	FlagTracerStarts uint8 = 1 << 2
)

const (
	headerLen      = 2 + 4 + 4 + 2 // op, id, src_ip, total_len
	bcastHeaderLen = 2 + 1 + 1 + 1 // g_node, level, sub_id, flags
	tracerHdrLen   = 2 + 1         // hops, flags
	chunkLen       = 2 + 4         // node_pos, rtt_micros
)

// Header is the fixed packet header present on every control packet.
type Header struct {
	Op       Op
	ID       uint32
	SrcIP    uint32
	TotalLen uint16
}

func (h Header) marshal(dst []byte) {
	binary.BigEndian.PutUint16(dst[0:2], uint16(h.Op))
	binary.BigEndian.PutUint32(dst[2:6], h.ID)
	binary.BigEndian.PutUint32(dst[6:10], h.SrcIP)
	binary.BigEndian.PutUint16(dst[10:12], h.TotalLen)
}

func (h *Header) unmarshal(src []byte) error {
	if len(src) < headerLen {
		return qspnerrors.MalformedPacket("packet shorter than header")
	}
	h.Op = Op(binary.BigEndian.Uint16(src[0:2]))
	h.ID = binary.BigEndian.Uint32(src[2:6])
	h.SrcIP = binary.BigEndian.Uint32(src[6:10])
	h.TotalLen = binary.BigEndian.Uint16(src[10:12])
	return nil
}

// BroadcastHeader carries the group/level/sub_id/flags that scope a flood.
type BroadcastHeader struct {
	GNode uint16
	Level uint8
	SubID uint8
	Flags uint8
}

func (b BroadcastHeader) marshal(dst []byte) {
	binary.BigEndian.PutUint16(dst[0:2], b.GNode)
	dst[2] = b.Level
	dst[3] = b.SubID
	dst[4] = b.Flags
}

func (b *BroadcastHeader) unmarshal(src []byte) error {
	if len(src) < bcastHeaderLen {
		return qspnerrors.MalformedPacket("packet shorter than broadcast header")
	}
	b.GNode = binary.BigEndian.Uint16(src[0:2])
	b.Level = src[2]
	b.SubID = src[3]
	b.Flags = src[4]
	return nil
}

// HasFlag reports whether the given flag bit is set.
func (b BroadcastHeader) HasFlag(flag uint8) bool { return b.Flags&flag != 0 }

// TracerHeader carries the declared hop count and tracer-level flags.
type TracerHeader struct {
	Hops  uint16
	Flags uint8
}

func (t TracerHeader) marshal(dst []byte) {
	binary.BigEndian.PutUint16(dst[0:2], t.Hops)
	dst[2] = t.Flags
}

func (t *TracerHeader) unmarshal(src []byte) error {
	if len(src) < tracerHdrLen {
		return qspnerrors.MalformedPacket("packet shorter than tracer header")
	}
	t.Hops = binary.BigEndian.Uint16(src[0:2])
	t.Flags = src[2]
	return nil
}

// Chunk is one tracer hop: the node's position and the accumulated RTT
// delta from the previous hop, in microseconds.
type Chunk struct {
	NodePos  uint16
	RTTMicro uint32
}

func (c Chunk) marshal(dst []byte) {
	binary.BigEndian.PutUint16(dst[0:2], c.NodePos)
	binary.BigEndian.PutUint32(dst[2:6], c.RTTMicro)
}

func (c *Chunk) unmarshal(src []byte) error {
	if len(src) < chunkLen {
		return qspnerrors.MalformedPacket("truncated tracer chunk")
	}
	c.NodePos = binary.BigEndian.Uint16(src[0:2])
	c.RTTMicro = binary.BigEndian.Uint32(src[2:6])
	return nil
}

// BorderLink is one peer-gnode RTT entry inside a bnode block record.
type BorderLink struct {
	PeerGNodePos uint16
	RTTMicro     uint32
}

// BnodeRecord is one border node's set of inter-group links, as carried in
// the optional bnode block appendix.
type BnodeRecord struct {
	BnodePos uint16
	Links    []BorderLink
}

func (r BnodeRecord) encodedLen() int {
	return 2 + 2 + len(r.Links)*6
}

// Packet is the fully decoded envelope: header plus the broadcast/tracer
// sub-headers, the chunk sequence and an optional bnode block. Packets are
// value types — every forward or rebuild produces a fresh Packet rather
// than mutating one in place.
type Packet struct {
	Header    Header
	Bcast     BroadcastHeader
	Tracer    TracerHeader
	Chunks    []Chunk
	BnodeInfo []BnodeRecord // nil if no bnode block present
}

// HasBnodeBlock reports whether a bnode block should be serialized.
func (p Packet) HasBnodeBlock() bool { return p.BnodeInfo != nil }

// Marshal serializes p into a contiguous big-endian byte buffer.
func (p Packet) Marshal() ([]byte, error) {
	if int(p.Tracer.Hops) != len(p.Chunks) {
		return nil, qspnerrors.MalformedPacket("tracer header hops does not match chunk count")
	}

	size := headerLen + bcastHeaderLen + tracerHdrLen + len(p.Chunks)*chunkLen
	if p.HasBnodeBlock() {
		size += 2
		for _, r := range p.BnodeInfo {
			size += r.encodedLen()
		}
	}

	buf := make([]byte, size)
	off := headerLen
	p.Bcast.marshal(buf[off : off+bcastHeaderLen])
	off += bcastHeaderLen
	p.Tracer.marshal(buf[off : off+tracerHdrLen])
	off += tracerHdrLen
	for _, c := range p.Chunks {
		c.marshal(buf[off : off+chunkLen])
		off += chunkLen
	}
	if p.HasBnodeBlock() {
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(p.BnodeInfo)))
		off += 2
		for _, r := range p.BnodeInfo {
			binary.BigEndian.PutUint16(buf[off:off+2], r.BnodePos)
			binary.BigEndian.PutUint16(buf[off+2:off+4], uint16(len(r.Links)))
			off += 4
			for _, l := range r.Links {
				binary.BigEndian.PutUint16(buf[off:off+2], l.PeerGNodePos)
				binary.BigEndian.PutUint32(buf[off+2:off+6], l.RTTMicro)
				off += 6
			}
		}
	}

	hdr := p.Header
	hdr.TotalLen = uint16(size)
	hdr.marshal(buf[0:headerLen])
	return buf, nil
}

// Unmarshal parses a raw wire buffer into a Packet. Every declared count is
// bounds-checked against the remaining buffer before it is trusted.
func Unmarshal(buf []byte) (Packet, error) {
	var p Packet

	if err := p.Header.unmarshal(buf); err != nil {
		return Packet{}, err
	}
	if int(p.Header.TotalLen) != len(buf) {
		return Packet{}, qspnerrors.MalformedPacket("declared total_len does not match buffer size")
	}

	off := headerLen
	if err := p.Bcast.unmarshal(buf[off:]); err != nil {
		return Packet{}, err
	}
	off += bcastHeaderLen

	if err := p.Tracer.unmarshal(buf[off:]); err != nil {
		return Packet{}, err
	}
	off += tracerHdrLen

	if need := int(p.Tracer.Hops) * chunkLen; len(buf)-off < need {
		return Packet{}, qspnerrors.MalformedPacket("declared hop count exceeds remaining buffer")
	}

	p.Chunks = make([]Chunk, p.Tracer.Hops)
	for i := range p.Chunks {
		if err := p.Chunks[i].unmarshal(buf[off:]); err != nil {
			return Packet{}, err
		}
		off += chunkLen
	}

	if off == len(buf) {
		return p, nil
	}

	if len(buf)-off < 2 {
		return Packet{}, qspnerrors.MalformedPacket("trailing bytes too short for bnode block count")
	}
	bchunksCount := binary.BigEndian.Uint16(buf[off : off+2])
	off += 2

	p.BnodeInfo = make([]BnodeRecord, bchunksCount)
	for i := range p.BnodeInfo {
		if len(buf)-off < 4 {
			return Packet{}, qspnerrors.MalformedPacket("truncated bnode record header")
		}
		pos := binary.BigEndian.Uint16(buf[off : off+2])
		linkCount := binary.BigEndian.Uint16(buf[off+2 : off+4])
		off += 4

		if need := int(linkCount) * 6; len(buf)-off < need {
			return Packet{}, qspnerrors.MalformedPacket("bnode record link count exceeds remaining buffer")
		}
		links := make([]BorderLink, linkCount)
		for j := range links {
			links[j].PeerGNodePos = binary.BigEndian.Uint16(buf[off : off+2])
			links[j].RTTMicro = binary.BigEndian.Uint32(buf[off+2 : off+6])
			off += 6
		}
		p.BnodeInfo[i] = BnodeRecord{BnodePos: pos, Links: links}
	}

	if off != len(buf) {
		return Packet{}, qspnerrors.MalformedPacket("trailing bytes after bnode block")
	}
	return p, nil
}
