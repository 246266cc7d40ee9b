package engine

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/netsukuku/logger"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/radar"
	"github.com/teranos/netsukuku/wire"
)

const (
	radarScanInterval = 2 * time.Second
	radarMaxWait      = 500 * time.Millisecond
	installTick       = 1 * time.Second
	qspnPollInterval  = 100 * time.Millisecond
)

// Run starts every background task the node needs and blocks until ctx is
// cancelled. Callers typically run it in its own goroutine and cancel ctx
// on shutdown signal.
func (n *Node) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	replies := make(chan radar.EchoReply, 32)

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.recvLoop(ctx, replies)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.radarLoop(ctx, replies)
	}()

	for l := 0; l < netmap.MaxLevels; l++ {
		if len(n.neighbors[l]) == 0 && l > 0 {
			continue
		}
		level := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.qspnWorker(ctx, level)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.installLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// recvLoop reads datagrams off the socket, parses every one as a
// wire.Packet and dispatches by op code. ECHO_ME/ECHO_REPLY go through the
// same Marshal/Unmarshal envelope as QSPN_CLOSE/QSPN_OPEN; only the
// handling afterward differs (radar scoring instead of the round state
// machine).
func (n *Node) recvLoop(ctx context.Context, replies chan<- radar.EchoReply) {
	for {
		payload, fromAddr, err := n.socket.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Logger.Debugw("recv failed", logger.FieldError, err.Error())
			continue
		}

		pkt, err := wire.Unmarshal(payload)
		if err != nil {
			logger.Logger.Debugw("malformed control packet", logger.FieldNeighbor, fromAddr, logger.FieldError, err.Error())
			continue
		}

		if err := n.dispatch(pkt, fromAddr, replies); err != nil {
			logger.Logger.Debugw("packet handling failed", logger.FieldNeighbor, fromAddr, logger.FieldError, err.Error())
		}
	}
}

func (n *Node) dispatch(pkt wire.Packet, fromAddr string, replies chan<- radar.EchoReply) error {
	switch pkt.Header.Op {
	case wire.OpEchoMe:
		n.replyToEcho(fromAddr)
		return nil
	case wire.OpEchoReply:
		n.handleEchoReply(fromAddr, replies)
		return nil
	case wire.OpQSPNClose:
		return n.qspn.HandleClose(pkt, fromAddr)
	case wire.OpQSPNOpen:
		return n.qspn.HandleOpen(pkt, fromAddr)
	default:
		logger.Logger.Debugw("unhandled op", "op", pkt.Header.Op.String())
		return nil
	}
}

func (n *Node) replyToEcho(fromAddr string) {
	payload, err := wire.Packet{Header: wire.Header{Op: wire.OpEchoReply}}.Marshal()
	if err != nil {
		logger.Logger.Debugw("echo_reply marshal failed", logger.FieldError, err.Error())
		return
	}
	if err := n.socket.Send(fromAddr, payload); err != nil {
		logger.Logger.Debugw("echo_reply send failed", logger.FieldNeighbor, fromAddr, logger.FieldError, err.Error())
	}
}

func (n *Node) handleEchoReply(fromAddr string, replies chan<- radar.EchoReply) {
	pos, ok := n.posForAddr(fromAddr)
	if !ok {
		return
	}
	select {
	case replies <- radar.NewEchoReply(pos):
	default:
	}
}

func (n *Node) posForAddr(addr string) (netmap.Position, bool) {
	for _, t := range n.neighbors[0] {
		if t.Addr == addr {
			return t.Pos, true
		}
	}
	return 0, false
}

// radarLoop runs periodic neighbor-liveness scans and arms send_qspn_now
// at level 0 whenever a link transitions.
func (n *Node) radarLoop(ctx context.Context, replies chan radar.EchoReply) {
	period := n.cfg.Levels.RadarPeriod(0)
	if period <= 0 {
		period = radarScanInterval
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	peers := make([]radar.Peer, 0, len(n.neighbors[0]))
	for _, t := range n.neighbors[0] {
		peers = append(peers, radar.Peer{Pos: t.Pos, Addr: t.Addr})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := n.radar.Scan(ctx, peers, radarMaxWait, replies)
			if len(events) > 0 {
				n.qspn.ArmSendNow(0)
				for _, ev := range events {
					if n.hist != nil {
						_ = n.hist.RecordLinkEvent(uint16(ev.Peer), ev.Kind.String(), uint32(ev.NewRTT), time.Now())
					}
				}
			}
		}
	}
}

// qspnWorker drives one level's round loop: it waits for either the round
// clock to run out or send_qspn_now to be armed, then calls Send, which is
// itself a no-op for non-bnodes above level 0.
func (n *Node) qspnWorker(ctx context.Context, level int) {
	ticker := time.NewTicker(qspnPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n.qspn.RoundLeft(level) > 0 && !n.qspn.SendNow(level) {
				continue
			}
			if err := n.qspn.Send(ctx, level); err != nil {
				logger.Logger.Debugw("qspn send failed", "level", level, logger.FieldError, err.Error())
				continue
			}
			if n.hist != nil {
				_ = n.hist.RecordRound(level, n.qspn.CurrentID(level), n.qspn.SelfPhase(level).String(), time.Now())
			}
			n.hub.Broadcast(statusRoundEvent(level, n.qspn.CurrentID(level), n.qspn.SelfPhase(level).String()))
		}
	}
}

// installLoop periodically flushes MAP_UPDATE entities to the route
// backend, mirroring the original daemon's rt_update tick.
func (n *Node) installLoop(ctx context.Context) {
	ticker := time.NewTicker(installTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for l := 0; l < netmap.MaxLevels; l++ {
				routes := n.qspn.Routes(l)
				if routes == nil {
					continue
				}
				addrOf := func(pos netmap.Position) (string, bool) {
					for _, t := range n.neighbors[l] {
						if t.Pos == pos {
							return t.Addr, true
						}
					}
					return "", false
				}
				if err := n.install.Tick(n.maps.Levels[l], routes, addrOf); err != nil {
					logger.Logger.Debugw("route install tick failed", "level", l, logger.FieldError, err.Error())
				}
			}
			if n.cfg.Device.MapPath != "" {
				if err := n.maps.Levels[0].SaveToPath(n.cfg.Device.MapPath); err != nil {
					logger.Logger.Debugw("map persist failed", logger.FieldError, err.Error())
				}
			}
		}
	}
}
