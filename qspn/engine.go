// Package qspn implements the QSPN round state machine: qspn_new_round,
// qspn_send (the starter path) and the qspn_close/qspn_open receive
// handlers, one independent instance of the per-level bookkeeping per
// hierarchy level, all driven through an explicit Engine value rather than
// global mutable state.
package qspn

import (
	"time"

	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/logger"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/tracer"
)

// pollInterval bounds how often qspn_send re-checks qspn_round_left while
// waiting out the minimum round duration.
const pollInterval = 50 * time.Millisecond

// Config wires an Engine to its collaborators. Apart from Self, Map and
// Send, the fields are per-level arrays indexed by hierarchy level
// (0..MaxLevels-1).
type Config struct {
	Self  netmap.Position
	Map   *netmap.Map
	Send  flood.Sender
	Root  [netmap.MaxLevels]netmap.Position
	// IsBnode reports, per level, whether this node is a border node there
	// (qspn_send at L>0 is a no-op for non-bnodes).
	IsBnode [netmap.MaxLevels]bool
	// WaitRound is QSPN_WAIT_ROUND(L), the enforced minimum round duration.
	WaitRound [netmap.MaxLevels]time.Duration
	// Neighbors lists each level's immediate neighbor set with transport
	// addresses.
	Neighbors [netmap.MaxLevels][]flood.Target
	// NeighborGID resolves a neighbor's group membership at level L+1, for
	// group-scoped flood exclusion. Nil at a level means "no group
	// filtering" (the neighbor set already scopes the group, as at level 0).
	NeighborGID [netmap.MaxLevels]func(pos netmap.Position) (uint16, bool)
	// BnodeTotal is the count of bnodes in bmap[L-1] this node must see
	// CLOSED/OPENED before its own CLOSE/OPEN phase can complete.
	BnodeTotal [netmap.MaxLevels]int
}

// Engine is the per-node QSPN state: one Map shared across levels, one
// independent levelState and route table per level, and the collaborators
// needed to build and flood packets.
type Engine struct {
	self        netmap.Position
	maps        *netmap.Map
	send        flood.Sender
	root        [netmap.MaxLevels]netmap.Position
	isBnode     [netmap.MaxLevels]bool
	waitRound   [netmap.MaxLevels]time.Duration
	neighbors   [netmap.MaxLevels][]flood.Target
	neighborGID [netmap.MaxLevels]func(pos netmap.Position) (uint16, bool)
	levels      [netmap.MaxLevels]*levelState
	routes      [netmap.MaxLevels]*tracer.RouteTable
	addrByPos   [netmap.MaxLevels]map[netmap.Position]string
	posByAddr   [netmap.MaxLevels]map[string]netmap.Position
}

// New constructs an Engine from cfg.
func New(cfg Config) *Engine {
	e := &Engine{
		self:        cfg.Self,
		maps:        cfg.Map,
		send:        cfg.Send,
		root:        cfg.Root,
		isBnode:     cfg.IsBnode,
		waitRound:   cfg.WaitRound,
		neighbors:   cfg.Neighbors,
		neighborGID: cfg.NeighborGID,
	}
	for l := 0; l < netmap.MaxLevels; l++ {
		e.levels[l] = newLevelState()
		e.levels[l].bnodeTotal = cfg.BnodeTotal[l]
		e.routes[l] = tracer.NewRouteTable()
		e.addrByPos[l] = make(map[netmap.Position]string, len(cfg.Neighbors[l]))
		e.posByAddr[l] = make(map[string]netmap.Position, len(cfg.Neighbors[l]))
		for _, t := range cfg.Neighbors[l] {
			e.addrByPos[l][t.Pos] = t.Addr
			e.posByAddr[l][t.Addr] = t.Pos
		}
	}
	return e
}

// Routes returns the route table for level, for route-install consumption.
func (e *Engine) Routes(level int) *tracer.RouteTable { return e.routes[level] }

func (e *Engine) resolveNeighbor(level int, addr string) (netmap.Position, bool) {
	pos, ok := e.posByAddr[level][addr]
	return pos, ok
}

func (e *Engine) currentID(level int) uint32 { return e.levels[level].currentID() }

// CurrentID reports the level's current qspn_id.
func (e *Engine) CurrentID(level int) uint32 { return e.currentID(level) }

// SelfPhase reports this node's own round phase at level.
func (e *Engine) SelfPhase(level int) netmap.Phase { return e.selfPhase(level) }

// RoundLeft implements qspn_round_left(L).
func (e *Engine) RoundLeft(level int) time.Duration {
	return e.levels[level].roundLeft(e.waitRound[level])
}

func (e *Engine) selfPhase(level int) netmap.Phase {
	p, _ := e.nodePhase(level, e.self)
	return p
}

func (e *Engine) setSelfPhase(level int, phase netmap.Phase) {
	e.setNodePhase(level, e.self, phase)
}

func (e *Engine) nodePhase(level int, pos netmap.Position) (netmap.Phase, bool) {
	l := e.maps.Levels[level]
	if l.IsLeaf() {
		if n, ok := l.LookupNode(pos); ok {
			return n.Phase(), true
		}
		return netmap.PhaseIdle, false
	}
	if g, ok := l.LookupGNode(pos); ok {
		return g.Phase(), true
	}
	return netmap.PhaseIdle, false
}

func (e *Engine) setNodePhase(level int, pos netmap.Position, phase netmap.Phase) {
	l := e.maps.Levels[level]
	if l.IsLeaf() {
		if n, ok := l.LookupNode(pos); ok {
			n.SetPhase(phase)
		}
		return
	}
	if g, ok := l.LookupGNode(pos); ok {
		g.SetPhase(phase)
	}
}

// closeLink marks the neighbor at fromRPos QSPN_CLOSED (if it matches one
// of our links) and returns the remaining not_closed count.
func (e *Engine) closeLink(level int, fromRPos netmap.Position) int {
	e.setNodePhase(level, fromRPos, netmap.PhaseClosed)
	return e.countNotIn(level, netmap.PhaseClosed)
}

// openLink marks the neighbor at fromRPos's qspn_buffer slot OPENED for
// subID and returns the not_opened count among our neighbor set.
func (e *Engine) openLink(level int, subID uint8, fromRPos netmap.Position) int {
	opened := e.levels[level].markOpened(subID, fromRPos)
	return len(e.neighbors[level]) - opened
}

func (e *Engine) countNotIn(level int, exclude netmap.Phase) int {
	n := 0
	for _, t := range e.neighbors[level] {
		if p, ok := e.nodePhase(level, t.Pos); !ok || p != exclude {
			n++
		}
	}
	return n
}

func (e *Engine) linkRTT(level int, pos netmap.Position) netmap.RTTMicro {
	l := e.maps.Levels[level]
	var links []netmap.NeighborLink
	if l.IsLeaf() {
		if n, ok := l.LookupNode(e.self); ok {
			links = n.Neighbors
		}
	} else if g, ok := l.LookupGNode(e.self); ok {
		links = g.Neighbors
	}
	for _, nl := range links {
		if nl.Pos == pos {
			return nl.RTT
		}
	}
	return 0
}

func (e *Engine) floodContext(level int, fromRPos netmap.Position, subID uint8, gid uint16) flood.Context {
	return flood.Context{
		From:        fromRPos,
		SubID:       subID,
		UpperLevel:  gid,
		Level:       e.maps.Levels[level],
		NeighborGID: e.neighborGID[level],
		Opened:      e.levels[level].isOpened,
	}
}

// NewRound implements qspn_new_round(L, new_id?, new_time?): bumps the
// round id (or increments it), resets the buffer and bmap counters, clears
// STARTER|CLOSED|OPENED|OPENER on self and immediate neighbors, and sweeps
// stale (still-OLD) entities out of the map, decrementing the parent
// gnode's seed count for each one deleted.
func (e *Engine) NewRound(level int, newID *uint32, measuredRTT netmap.RTTMicro) {
	_ = measuredRTT // measured round-trip is folded in by the caller's tracer.Store, not here
	ls := e.levels[level]
	id := ls.currentID() + 1
	if newID != nil {
		id = *newID
	}
	ls.reset(id, ls.bnodeTotal)

	e.setSelfPhase(level, netmap.PhaseIdle)
	for _, t := range e.neighbors[level] {
		e.setNodePhase(level, t.Pos, netmap.PhaseIdle)
	}

	lvl := e.maps.Levels[level]
	for _, pos := range lvl.OldEntities() {
		if err := lvl.NodeDel(pos); err != nil {
			logger.QSPNWarnw("node_del on stale entity failed", logger.FieldLevel, level, logger.FieldError, err.Error())
			continue
		}
		if level+1 < netmap.MaxLevels {
			parentLvl := e.maps.Levels[level+1]
			if g, ok := parentLvl.LookupGNode(e.root[level+1]); ok {
				g.Seeds--
				if g.Seeds <= 0 {
					if err := parentLvl.NodeDel(e.root[level+1]); err != nil {
						logger.QSPNWarnw("node_del on exhausted gnode failed", logger.FieldLevel, level+1, logger.FieldError, err.Error())
					}
				}
			}
		}
	}
	lvl.MarkOld()
	e.routes[level] = tracer.NewRouteTable()
}

// SendNow reports this level's send_qspn_now flag without clearing it;
// Send clears it on return whenever it took the level's send lock.
func (e *Engine) SendNow(level int) bool { return e.levels[level].sendNow.Load() }

// ArmSendNow sets send_qspn_now for level, typically from a radar event.
func (e *Engine) ArmSendNow(level int) { e.levels[level].sendNow.Store(true) }

func (e *Engine) disarmSendNow(level int) { e.levels[level].sendNow.Store(false) }
