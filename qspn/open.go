package qspn

import (
	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/qspnerrors"
	"github.com/teranos/netsukuku/tracer"
	"github.com/teranos/netsukuku/wire"
)

// HandleOpen implements qspn_open(packet), symmetric to HandleClose.
func (e *Engine) HandleOpen(pkt wire.Packet, fromAddr string) error {
	level := int(pkt.Bcast.Level)
	ls := e.levels[level]

	if pkt.Bcast.SubID == uint8(e.self) && e.selfPhase(level) == netmap.PhaseOpener {
		return nil // our own open looped back
	}

	curID := e.currentID(level)
	if pkt.Header.ID < curID {
		return qspnerrors.StaleRound(curID, pkt.Header.ID)
	}

	fromRPos, fromKnown := e.resolveNeighbor(level, fromAddr)
	u, err := tracer.Unpack(pkt, fromAddr, func(string) (netmap.Position, bool) { return fromRPos, fromKnown })
	if err != nil {
		return err
	}

	hops := len(u.Packet.Chunks)
	internalOpener := false
	if level > 0 && hops == 1 && pkt.Bcast.SubID == uint8(e.root[level]) {
		e.setSelfPhase(level, netmap.PhaseOpener)
		internalOpener = true
	}

	if len(u.Packet.Chunks) > 0 {
		tracer.Store(e.maps.Levels[level], e.routes[level], fromRPos, u.Packet.Chunks)
	}
	if u.Packet.HasBnodeBlock() {
		tracer.StoreBnodeBlock(e.maps.Levels[level], u.Packet.BnodeInfo)
	}

	notOpened := e.openLink(level, pkt.Bcast.SubID, fromRPos)

	bcastFlags := u.Packet.Bcast.Flags
	senderIsRoot := fromKnown && fromRPos == e.root[level]
	if u.Packet.Bcast.HasFlag(wire.FlagBnodeOpened) && senderIsRoot {
		ls.incrementBnodeOpened()
	}

	phaseDone := notOpened == 0 && ls.allBnodesOpened()
	onlyBnode := level > 0 && e.isBnode[level] && ls.bnodeTotal <= 1
	if phaseDone && !onlyBnode {
		e.setSelfPhase(level, netmap.PhaseOpened)
		return nil
	}
	if phaseDone && onlyBnode {
		e.setSelfPhase(level, netmap.PhaseOpened)
		// fall through: still propagate once so in-group nodes install the
		// final entries.
	}

	selfContributes := level == 0 || e.isBnode[level]
	var outPkt wire.Packet
	if selfContributes {
		outPkt, err = tracer.Build(tracer.BuildParams{
			Op: wire.OpQSPNOpen, QSPNID: curID, RootPos: e.self,
			GID: pkt.Bcast.GNode, Level: uint8(level), SubID: pkt.Bcast.SubID,
			BcastFlags: bcastFlags, PrevChunks: u.Packet.Chunks,
		})
	} else if len(u.Packet.Chunks) > 0 {
		outPkt, err = tracer.Forward(u.Packet, len(u.Packet.Chunks)-1, e.linkRTT(level, fromRPos))
		outPkt.Bcast.Flags = bcastFlags
	} else {
		outPkt = u.Packet
	}
	if err != nil {
		return err
	}

	payload, err := outPkt.Marshal()
	if err != nil {
		return err
	}

	fctx := e.floodContext(level, fromRPos, pkt.Bcast.SubID, pkt.Bcast.GNode)
	pred := flood.ExcludeFromAndOpenedAndGLevel
	if internalOpener {
		pred = flood.ExcludeFrom
	}
	return flood.Send(e.neighbors[level], fctx, pred, e.send, payload)
}
