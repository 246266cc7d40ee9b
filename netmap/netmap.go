// Package netmap implements the hierarchical map model: the internal map of
// leaf nodes, the stacked external maps of group-nodes above level 0, and
// the border-node map linking adjacent groups at each level.
package netmap

import (
	"sync"

	"github.com/teranos/netsukuku/errors"
	"github.com/teranos/netsukuku/qspnerrors"
)

const (
	// MaxGroupNode bounds the number of entities per map level.
	MaxGroupNode = 256
	// MaxLevels bounds the hierarchy depth (including level 0).
	MaxLevels = 8
	// MaxTracerHops caps a tracer packet's chunk array.
	MaxTracerHops = 64
	// MaxMultipathRoutes caps equal-cost next-hop alternates kept per destination.
	MaxMultipathRoutes = 4
)

// NodeFlags is the bit-packed attribute set from the data model: node
// identity/role bits (ME, VOID, BNODE, UPDATE, RNODE) plus the per-round
// QSPN bits (CLOSED, OPENED, STARTER, OPENER, OLD). Bits are the storage
// and wire representation; callers outside this package read/write round
// phase through Phase/SetPhase rather than testing these bits directly.
type NodeFlags uint16

const (
	FlagME NodeFlags = 1 << iota
	FlagVOID
	FlagBNODE
	FlagUPDATE
	FlagRNODE
	FlagQSPNClosed
	FlagQSPNOpened
	FlagQSPNStarter
	FlagQSPNOpener
	FlagQSPNOld
)

func (f NodeFlags) Has(bit NodeFlags) bool { return f&bit != 0 }

// Phase is the explicit round-state variant decoded from the QSPN_* bits at
// the boundary, per the "lift bitfields into an explicit variant type"
// design requirement. Logic elsewhere in the engine switches on Phase, not
// on raw flag bits.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarter
	PhaseParticipant
	PhaseClosed
	PhaseOpener
	PhaseOpened
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarter:
		return "starter"
	case PhaseParticipant:
		return "participant"
	case PhaseClosed:
		return "closed"
	case PhaseOpener:
		return "opener"
	case PhaseOpened:
		return "opened"
	default:
		return "unknown"
	}
}

// Phase decodes the node's round state from its QSPN_* bits. Opener/Opened
// take precedence over Closed, which takes precedence over Starter; a node
// carrying only the internal participant bit (set via
// SetPhase(PhaseParticipant)) is Participant, and a node with no round bits
// set at all is Idle.
func (f NodeFlags) Phase() Phase {
	switch {
	case f.Has(FlagQSPNOpened):
		return PhaseOpened
	case f.Has(FlagQSPNOpener):
		return PhaseOpener
	case f.Has(FlagQSPNClosed):
		return PhaseClosed
	case f.Has(FlagQSPNStarter):
		return PhaseStarter
	case f.Has(flagParticipant):
		return PhaseParticipant
	default:
		return PhaseIdle
	}
}

// flagParticipant is an internal-only bit (not on the wire) used to record
// that a node joined the current round as a plain participant, so Phase()
// can distinguish "never touched this round" (Idle) from "joined, not yet
// closed" (Participant) without an extra field.
const flagParticipant NodeFlags = 1 << 15

// RTTMicro is a round-trip time in microseconds.
type RTTMicro uint32

// NeighborLink is a weak reference (never ownership) to a neighboring
// entity: its position plus a smoothed RTT.
type NeighborLink struct {
	Pos Position
	RTT RTTMicro
}

// Position is an index into a map level's fixed-size array.
type Position uint16

// QuadroGroup is the totally ordered tuple of gids locating an entity
// within the nested hierarchy, one gid per level.
type QuadroGroup [MaxLevels]uint16

// Node is a leaf participant at level 0.
type Node struct {
	Pos       Position
	Flags     NodeFlags
	Neighbors []NeighborLink
	Quadg     QuadroGroup
}

func (n Node) Phase() Phase             { return n.Flags.Phase() }
func (n *Node) SetPhase(p Phase)        { setPhase(&n.Flags, p) }
func (n Node) IsVoid() bool             { return n.Flags.Has(FlagVOID) }
func (n Node) IsME() bool               { return n.Flags.Has(FlagME) }
func (n Node) IsBnode() bool            { return n.Flags.Has(FlagBNODE) }

func setPhase(f *NodeFlags, p Phase) {
	*f &^= FlagQSPNClosed | FlagQSPNOpened | FlagQSPNStarter | FlagQSPNOpener | flagParticipant
	switch p {
	case PhaseStarter:
		*f |= FlagQSPNStarter
	case PhaseParticipant:
		*f |= flagParticipant
	case PhaseClosed:
		*f |= FlagQSPNClosed
	case PhaseOpener:
		*f |= FlagQSPNOpener
	case PhaseOpened:
		*f |= FlagQSPNOpened
	case PhaseIdle:
	}
}

// GNode is a group-node at level L>=1, aggregating up to MaxGroupNode
// entities from level L-1.
type GNode struct {
	Pos       Position
	Seeds     int
	Flags     NodeFlags
	Neighbors []NeighborLink
	Quadg     QuadroGroup
}

func (g GNode) Phase() Phase      { return g.Flags.Phase() }
func (g *GNode) SetPhase(p Phase) { setPhase(&g.Flags, p) }
func (g GNode) IsVoid() bool      { return g.Flags.Has(FlagVOID) }

// BorderEntry records a node's cross-group links at a given level: an
// unordered set of peer-gnode positions with their link RTTs.
type BorderEntry struct {
	Pos   Position
	Links []NeighborLink // neighbor is a peer gnode at this level
}

// Level holds one hierarchy level's internal (level 0) or external
// (level>0) map plus its border-node map, each under its own lock per the
// concurrency model: tracer_store takes the writer lock, route install and
// qspn_send take reader locks.
type Level struct {
	mu sync.RWMutex

	level  int
	nodes  map[Position]*Node  // level 0 only
	gnodes map[Position]*GNode // level>0 only
	bnodes map[Position]*BorderEntry
}

// NewLevel constructs an empty map level.
func NewLevel(level int) *Level {
	l := &Level{level: level, bnodes: make(map[Position]*BorderEntry)}
	if level == 0 {
		l.nodes = make(map[Position]*Node)
	} else {
		l.gnodes = make(map[Position]*GNode)
	}
	return l
}

func (l *Level) IsLeaf() bool { return l.level == 0 }

// Lookup returns the node (level 0) or gnode (level>0) at pos, or false if
// absent. O(1), total.
func (l *Level) Lookup(pos Position) (interface{}, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.IsLeaf() {
		n, ok := l.nodes[pos]
		return n, ok
	}
	g, ok := l.gnodes[pos]
	return g, ok
}

// LookupNode is a typed convenience wrapper over Lookup for level 0.
func (l *Level) LookupNode(pos Position) (*Node, bool) {
	v, ok := l.Lookup(pos)
	if !ok {
		return nil, false
	}
	n, _ := v.(*Node)
	return n, n != nil
}

// LookupGNode is a typed convenience wrapper over Lookup for level>0.
func (l *Level) LookupGNode(pos Position) (*GNode, bool) {
	v, ok := l.Lookup(pos)
	if !ok {
		return nil, false
	}
	g, _ := v.(*GNode)
	return g, g != nil
}

// PutNode inserts or replaces a level-0 node. Callers hold no external
// lock; PutNode takes the writer lock itself.
func (l *Level) PutNode(n *Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes[n.Pos] = n
}

// PutGNode inserts or replaces a level>0 gnode.
func (l *Level) PutGNode(g *GNode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gnodes[g.Pos] = g
}

// FindBnode returns the border-map entry for pos, if any.
func (l *Level) FindBnode(pos Position) (*BorderEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bnodes[pos]
	return b, ok
}

// BnodeAdd inserts or replaces a border-node entry.
func (l *Level) BnodeAdd(pos Position, links []NeighborLink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bnodes[pos] = &BorderEntry{Pos: pos, Links: links}
}

// BnodeDel removes one border-node entry. Invariant: called only when no
// neighbor link crossing this level to that bnode remains — callers are
// responsible for that precondition.
func (l *Level) BnodeDel(pos Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bnodes, pos)
}

// NodeDel marks the entity VOID, zeroes RTTs, clears all QSPN_* flags, and
// removes it from the border map if present. The caller is responsible for
// decrementing the parent gnode's seed count (that parent lives one level
// up, outside this Level).
func (l *Level) NodeDel(pos Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.IsLeaf() {
		n, ok := l.nodes[pos]
		if !ok {
			return qspnerrors.MapInconsistency("node_del: position not present")
		}
		if n.IsME() {
			return errors.New("node_del: refusing to delete the local ME node")
		}
		n.Flags = FlagVOID
		for i := range n.Neighbors {
			n.Neighbors[i].RTT = 0
		}
		n.Neighbors = nil
		delete(l.bnodes, pos)
		return nil
	}

	g, ok := l.gnodes[pos]
	if !ok {
		return qspnerrors.MapInconsistency("node_del: gnode position not present")
	}
	g.Flags = FlagVOID
	g.Seeds = 0
	g.Neighbors = nil
	delete(l.bnodes, pos)
	return nil
}

// MarkOld sets FlagQSPNOld on every non-ME, non-VOID entity at this level.
func (l *Level) MarkOld() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.IsLeaf() {
		for _, n := range l.nodes {
			if !n.IsME() && !n.IsVoid() {
				n.Flags |= FlagQSPNOld
			}
		}
		return
	}
	for _, g := range l.gnodes {
		if !g.IsVoid() {
			g.Flags |= FlagQSPNOld
		}
	}
}

// FlagsClear atomically bulk-clears the given mask on every entity at this
// level, used at round boundaries.
func (l *Level) FlagsClear(mask NodeFlags) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.IsLeaf() {
		for _, n := range l.nodes {
			n.Flags &^= mask
		}
		return
	}
	for _, g := range l.gnodes {
		g.Flags &^= mask
	}
}

// OldEntities returns the positions of every non-ME, non-VOID entity still
// carrying FlagQSPNOld — candidates for NodeDel at the next round boundary.
func (l *Level) OldEntities() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var stale []Position
	if l.IsLeaf() {
		for pos, n := range l.nodes {
			if !n.IsME() && !n.IsVoid() && n.Flags.Has(FlagQSPNOld) {
				stale = append(stale, pos)
			}
		}
		return stale
	}
	for pos, g := range l.gnodes {
		if !g.IsVoid() && g.Flags.Has(FlagQSPNOld) {
			stale = append(stale, pos)
		}
	}
	return stale
}

// UpdatedEntities returns the positions of every entity still carrying
// FlagUPDATE, candidates for route_replace at the next rt_update tick.
func (l *Level) UpdatedEntities() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Position
	if l.IsLeaf() {
		for pos, n := range l.nodes {
			if n.Flags.Has(FlagUPDATE) {
				out = append(out, pos)
			}
		}
		return out
	}
	for pos, g := range l.gnodes {
		if g.Flags.Has(FlagUPDATE) {
			out = append(out, pos)
		}
	}
	return out
}

// VoidEntities returns the positions of every VOID entity, candidates for
// route_del at the next rt_update tick.
func (l *Level) VoidEntities() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Position
	if l.IsLeaf() {
		for pos, n := range l.nodes {
			if n.IsVoid() {
				out = append(out, pos)
			}
		}
		return out
	}
	for pos, g := range l.gnodes {
		if g.IsVoid() {
			out = append(out, pos)
		}
	}
	return out
}

// ClearUpdateFlag clears FlagUPDATE on pos, called after a successful
// route_replace/route_del submission.
func (l *Level) ClearUpdateFlag(pos Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.IsLeaf() {
		if n, ok := l.nodes[pos]; ok {
			n.Flags &^= FlagUPDATE
		}
		return
	}
	if g, ok := l.gnodes[pos]; ok {
		g.Flags &^= FlagUPDATE
	}
}

// MarkUpdate sets FlagUPDATE on pos, used whenever the route table changes
// for that destination.
func (l *Level) MarkUpdate(pos Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.IsLeaf() {
		if n, ok := l.nodes[pos]; ok {
			n.Flags |= FlagUPDATE
		}
		return
	}
	if g, ok := l.gnodes[pos]; ok {
		g.Flags |= FlagUPDATE
	}
}

// Map is the full per-node engine state: one Level per hierarchy tier.
type Map struct {
	Levels [MaxLevels]*Level
}

// NewMap constructs a map with every level initialized empty.
func NewMap() *Map {
	m := &Map{}
	for i := range m.Levels {
		m.Levels[i] = NewLevel(i)
	}
	return m
}
