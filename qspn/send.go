package qspn

import (
	"context"
	"time"

	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/tracer"
	"github.com/teranos/netsukuku/wire"
)

// Send implements qspn_send(L), triggered whenever send_qspn_now is set for
// level: it waits out the minimum round duration, starts a fresh round as
// STARTER, and floods a CLOSE tracer. A no-op if this node is not a bnode
// at a level above 0, or if another starter on this level is already mid
// wait-and-build (qspn_send_mutex[L] is held, non-blocking per the spec's
// "return" on an already-held mutex).
func (e *Engine) Send(ctx context.Context, level int) error {
	if level > 0 && !e.isBnode[level] {
		return nil
	}
	ls := e.levels[level]
	if !ls.sendMu.TryLock() {
		return nil
	}
	defer ls.sendMu.Unlock()
	defer e.disarmSendNow(level)

	idBefore := e.currentID(level)
	for {
		left := e.RoundLeft(level)
		if left == 0 {
			break
		}
		wait := left
		if wait > pollInterval {
			wait = pollInterval
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if e.currentID(level) != idBefore {
		// Another node's CLOSE already rolled us into a new round while we
		// waited; abandon our own start.
		return nil
	}

	e.NewRound(level, nil, 0)
	e.setSelfPhase(level, netmap.PhaseStarter)

	pkt, err := tracer.Build(tracer.BuildParams{
		Op:      wire.OpQSPNClose,
		QSPNID:  e.currentID(level),
		RootPos: e.self,
		GID:     e.upperGID(level),
		Level:   uint8(level),
	})
	if err != nil {
		return err
	}
	payload, err := pkt.Marshal()
	if err != nil {
		return err
	}

	fctx := e.floodContext(level, e.self, pkt.Bcast.SubID, e.upperGID(level))
	return flood.Send(e.neighbors[level], fctx, flood.ExcludeFromAndGLevelAndClosed, e.send, payload)
}

// upperGID resolves this node's own group id at level+1, used to tag
// outbound broadcast headers. Levels above the configured hierarchy depth
// report 0 (unscoped).
func (e *Engine) upperGID(level int) uint16 {
	if level+1 >= netmap.MaxLevels {
		return 0
	}
	return uint16(e.root[level+1])
}
