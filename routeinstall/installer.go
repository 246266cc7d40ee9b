package routeinstall

import (
	"github.com/teranos/netsukuku/logger"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/tracer"
)

// Installer runs one rt_update tick per level against a Backend.
type Installer struct {
	backend Backend
	dev     string
	family  string
}

// New constructs an Installer for the given device name, submitting
// route operations to backend.
func New(backend Backend, dev, family string) *Installer {
	return &Installer{backend: backend, dev: dev, family: family}
}

// Tick scans level for UPDATE and VOID entities, submits the corresponding
// route_replace/route_del calls using routes to resolve next-hop sets and
// addrOf to resolve a position to a transport address, clears UPDATE after
// a successful submission, and flushes the route cache once the scan
// completes. Per-destination failures are logged and do not abort the scan.
func (inst *Installer) Tick(level *netmap.Level, routes *tracer.RouteTable, addrOf func(netmap.Position) (string, bool)) error {
	for _, pos := range level.UpdatedEntities() {
		entries, ok := routes.Lookup(pos)
		if !ok || len(entries) == 0 {
			continue
		}
		nextHops := make([]NextHop, 0, len(entries))
		for i, e := range entries {
			addr, ok := addrOf(e.NextHop)
			if !ok {
				continue
			}
			nextHops = append(nextHops, NextHop{Addr: addr, Priority: i})
		}
		if len(nextHops) == 0 {
			continue
		}
		dest, ok := addrOf(pos)
		if !ok {
			continue
		}
		if err := inst.backend.ReplaceRoute(dest, nextHops, inst.dev); err != nil {
			logger.RouteErrorw("route_replace failed", "destination", dest, logger.FieldError, err.Error())
			continue
		}
		level.ClearUpdateFlag(pos)
	}

	for _, pos := range level.VoidEntities() {
		dest, ok := addrOf(pos)
		if !ok {
			continue
		}
		if err := inst.backend.DeleteRoute(dest, inst.dev); err != nil {
			logger.RouteErrorw("route_del failed", "destination", dest, logger.FieldError, err.Error())
			continue
		}
		level.ClearUpdateFlag(pos)
	}

	return inst.backend.FlushCache(inst.family)
}
