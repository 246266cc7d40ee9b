// Package flood implements the fire-and-forget neighbor broadcast
// dispatcher: a predicate decides, per neighbor, whether a packet should be
// withheld, and a thin send loop transmits to everyone the predicate lets
// through, aggregating per-neighbor transport failures without aborting the
// round.
package flood

import "github.com/teranos/netsukuku/netmap"

// Context carries everything a predicate needs to decide on one neighbor,
// without giving predicates direct access to the engine.
type Context struct {
	From       netmap.Position
	SubID      uint8
	UpperLevel uint16
	Level      *netmap.Level

	// NeighborGID resolves a neighbor's group membership at the level above
	// ours, for group-scoped exclusion. Nil means "don't filter by group"
	// (used at level 0, where group scoping is implicit in the neighbor set
	// itself).
	NeighborGID func(pos netmap.Position) (uint16, bool)

	// Opened reports whether pos already replied OPENED for SubID.
	Opened func(subID uint8, pos netmap.Position) bool
}

// Predicate reports whether neighbor should be skipped.
type Predicate func(ctx Context, neighbor netmap.Position) bool

func outsideGroup(ctx Context, neighbor netmap.Position) bool {
	if ctx.NeighborGID == nil {
		return false
	}
	gid, ok := ctx.NeighborGID(neighbor)
	return !ok || gid != ctx.UpperLevel
}

func phaseOf(level *netmap.Level, pos netmap.Position) (netmap.Phase, bool) {
	if level.IsLeaf() {
		if n, ok := level.LookupNode(pos); ok {
			return n.Phase(), true
		}
		return netmap.PhaseIdle, false
	}
	if g, ok := level.LookupGNode(pos); ok {
		return g.Phase(), true
	}
	return netmap.PhaseIdle, false
}

// ExcludeFromAndGLevel skips the sender and anyone outside our group.
func ExcludeFromAndGLevel(ctx Context, neighbor netmap.Position) bool {
	return neighbor == ctx.From || outsideGroup(ctx, neighbor)
}

// ExcludeFromAndGLevelAndClosed additionally skips neighbors already CLOSED.
func ExcludeFromAndGLevelAndClosed(ctx Context, neighbor netmap.Position) bool {
	if ExcludeFromAndGLevel(ctx, neighbor) {
		return true
	}
	phase, ok := phaseOf(ctx.Level, neighbor)
	return ok && phase == netmap.PhaseClosed
}

// ExcludeFromAndOpenedAndGLevel additionally skips neighbors already marked
// OPENED for this sub_id.
func ExcludeFromAndOpenedAndGLevel(ctx Context, neighbor netmap.Position) bool {
	if ExcludeFromAndGLevel(ctx, neighbor) {
		return true
	}
	return ctx.Opened != nil && ctx.Opened(ctx.SubID, neighbor)
}

// ExcludeFromAndGLevelAndNotStarter restricts a flood to fellow STARTERs.
func ExcludeFromAndGLevelAndNotStarter(ctx Context, neighbor netmap.Position) bool {
	if ExcludeFromAndGLevel(ctx, neighbor) {
		return true
	}
	phase, ok := phaseOf(ctx.Level, neighbor)
	return !ok || phase != netmap.PhaseStarter
}

// ExcludeAllButNotFrom sends only to the sender, used to unwind a close
// chain back to whoever closed our last link.
func ExcludeAllButNotFrom(ctx Context, neighbor netmap.Position) bool {
	return neighbor != ctx.From
}

// ExcludeFrom skips only the sender, with no group or phase filtering;
// used for the open-phase broad re-flood to "all other neighbors".
func ExcludeFrom(ctx Context, neighbor netmap.Position) bool {
	return neighbor == ctx.From
}
