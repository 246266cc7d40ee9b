package qspn

import (
	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/qspnerrors"
	"github.com/teranos/netsukuku/tracer"
	"github.com/teranos/netsukuku/wire"
)

// HandleClose implements qspn_close(packet), the CLOSE-receive handler.
func (e *Engine) HandleClose(pkt wire.Packet, fromAddr string) error {
	level := int(pkt.Bcast.Level)
	ls := e.levels[level]

	fromRPos, fromKnown := e.resolveNeighbor(level, fromAddr)
	u, err := tracer.Unpack(pkt, fromAddr, func(string) (netmap.Position, bool) { return fromRPos, fromKnown })
	if err != nil {
		return err
	}
	if len(u.Packet.Chunks) == 0 {
		return qspnerrors.MalformedPacket("close packet carries zero chunks")
	}
	originator := netmap.Position(u.Packet.Chunks[0].NodePos)

	curID := e.currentID(level)
	if originator == e.self && pkt.Header.ID == curID {
		return qspnerrors.LoopDetected(uint16(originator))
	}
	if pkt.Header.ID < curID {
		return qspnerrors.StaleRound(curID, pkt.Header.ID)
	}
	if pkt.Header.ID > curID {
		measured := netmap.RTTMicro(u.Packet.Chunks[0].RTTMicro)
		id := pkt.Header.ID
		e.NewRound(level, &id, measured)
		curID = id
	}

	hops := len(u.Packet.Chunks)
	internalStarter := false
	if level > 0 && hops == 1 && originator == e.root[level] {
		e.setSelfPhase(level, netmap.PhaseStarter)
		internalStarter = true
	}

	tracer.Store(e.maps.Levels[level], e.routes[level], fromRPos, u.Packet.Chunks)
	if u.Packet.HasBnodeBlock() {
		tracer.StoreBnodeBlock(e.maps.Levels[level], u.Packet.BnodeInfo)
	}

	// Prevents re-entry of our own wave: we are STARTER, this is not a
	// fresh single-hop co-starter tracer, and the immediate sender is not
	// itself a fellow STARTER.
	if e.selfPhase(level) == netmap.PhaseStarter && hops > 1 && !internalStarter {
		if p, ok := e.nodePhase(level, fromRPos); !ok || p != netmap.PhaseStarter {
			return nil
		}
	}

	notClosed := e.closeLink(level, fromRPos)

	bcastFlags := u.Packet.Bcast.Flags
	senderIsRoot := fromKnown && fromRPos == e.root[level]
	if u.Packet.Bcast.HasFlag(wire.FlagBnodeClosed) {
		if senderIsRoot {
			ls.incrementBnodeClosed()
		} else {
			bcastFlags &^= wire.FlagBnodeClosed
		}
	}

	selfContributes := level == 0 || e.isBnode[level]
	if selfContributes && level > 0 && notClosed == 0 {
		e.setSelfPhase(level, netmap.PhaseClosed)
		bcastFlags |= wire.FlagBnodeClosed
	}

	var outPkt wire.Packet
	if selfContributes {
		outPkt, err = tracer.Build(tracer.BuildParams{
			Op: wire.OpQSPNClose, QSPNID: curID, RootPos: e.self,
			GID: pkt.Bcast.GNode, Level: uint8(level), SubID: pkt.Bcast.SubID,
			BcastFlags: bcastFlags, PrevChunks: u.Packet.Chunks,
		})
	} else {
		outPkt, err = tracer.Forward(u.Packet, len(u.Packet.Chunks)-1, e.linkRTT(level, fromRPos))
		outPkt.Bcast.Flags = bcastFlags
	}
	if err != nil {
		return err
	}

	payload, err := outPkt.Marshal()
	if err != nil {
		return err
	}

	fctx := e.floodContext(level, fromRPos, pkt.Bcast.SubID, pkt.Bcast.GNode)

	switch {
	case notClosed == 0 && e.selfPhase(level) != netmap.PhaseOpener && e.selfPhase(level) != netmap.PhaseStarter && ls.allBnodesClosed():
		e.setSelfPhase(level, netmap.PhaseOpener)
		return e.openStart(fromRPos, outPkt, curID, pkt.Bcast.GNode, level, fctx)
	case e.selfPhase(level) == netmap.PhaseStarter && !internalStarter:
		return flood.Send(e.neighbors[level], fctx, flood.ExcludeFromAndGLevelAndNotStarter, e.send, payload)
	default:
		return flood.Send(e.neighbors[level], fctx, flood.ExcludeFromAndGLevelAndClosed, e.send, payload)
	}
}

// openStart implements qspn_open_start: two emissions, one unwinding the
// close chain back to whoever closed our last link, the other flooding our
// own CLOSE's chunk history (re-tagged OPEN) to everyone else.
func (e *Engine) openStart(fromRPos netmap.Position, closePkt wire.Packet, qspnID uint32, gid uint16, level int, fctx flood.Context) error {
	unwind, err := tracer.Build(tracer.BuildParams{
		Op: wire.OpQSPNOpen, QSPNID: qspnID, RootPos: e.self,
		GID: gid, Level: uint8(level), SubID: closePkt.Bcast.SubID,
	})
	if err != nil {
		return err
	}
	unwindPayload, err := unwind.Marshal()
	if err != nil {
		return err
	}
	if err := flood.Send(e.neighbors[level], fctx, flood.ExcludeAllButNotFrom, e.send, unwindPayload); err != nil {
		return err
	}

	openPkt := closePkt
	openPkt.Header.Op = wire.OpQSPNOpen
	openPayload, err := openPkt.Marshal()
	if err != nil {
		return err
	}
	return flood.Send(e.neighbors[level], fctx, flood.ExcludeFrom, e.send, openPayload)
}
