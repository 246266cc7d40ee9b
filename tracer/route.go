package tracer

import (
	"sort"
	"sync"

	"github.com/teranos/netsukuku/netmap"
)

// RouteEntry is one candidate next-hop toward a destination, with the
// accumulated RTT of the path that produced it.
type RouteEntry struct {
	NextHop netmap.Position
	RTT     netmap.RTTMicro
}

// RouteTable holds, per destination position, the best next-hop(s) seen so
// far: the single lowest-RTT candidate plus any equal-cost alternates up to
// MaxMultipathRoutes. Multipath entries are kept in the order they were
// added — the first-added (cheapest at append time) carries the highest
// kernel install priority, per the original route.c's nh[i].hops=255-i
// convention (see routeinstall).
type RouteTable struct {
	mu      sync.RWMutex
	routes  map[netmap.Position][]RouteEntry
}

// NewRouteTable returns an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[netmap.Position][]RouteEntry)}
}

// Consider offers a candidate next-hop for destination, keeping it if it is
// strictly better than the current best, appending it if it is equal-cost
// (bounded by MaxMultipathRoutes), and discarding it otherwise.
// Consider reports whether it changed the best route to destination, so
// callers can mark the destination for route_replace submission.
func (t *RouteTable) Consider(destination, nextHop netmap.Position, rtt netmap.RTTMicro) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing := t.routes[destination]
	if len(existing) == 0 {
		t.routes[destination] = []RouteEntry{{NextHop: nextHop, RTT: rtt}}
		return true
	}

	best := existing[0].RTT
	switch {
	case rtt < best:
		t.routes[destination] = []RouteEntry{{NextHop: nextHop, RTT: rtt}}
		return true
	case rtt == best:
		for _, e := range existing {
			if e.NextHop == nextHop {
				return false
			}
		}
		if len(existing) < netmap.MaxMultipathRoutes {
			t.routes[destination] = append(existing, RouteEntry{NextHop: nextHop, RTT: rtt})
			return true
		}
	}
	return false
}

// Lookup returns the current best next-hop set for destination, ordered by
// the priority described above.
func (t *RouteTable) Lookup(destination netmap.Position) ([]RouteEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries, ok := t.routes[destination]
	if !ok {
		return nil, false
	}
	out := make([]RouteEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Destinations returns every destination with at least one route, sorted
// for deterministic iteration (route install diffing, tests).
func (t *RouteTable) Destinations() []netmap.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]netmap.Position, 0, len(t.routes))
	for d := range t.routes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Withdraw removes every route for destination, used when NodeDel fires.
func (t *RouteTable) Withdraw(destination netmap.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, destination)
}
