// Package routeinstall implements the rt_update tick adapter: it scans the
// map for updated or voided entities and submits the corresponding kernel
// route operations through a pluggable Backend.
package routeinstall

import (
	"github.com/teranos/netsukuku/logger"
)

// NextHop is one kernel-facing next-hop entry. Priority mirrors the
// original route.c convention of nh[i].hops=255-i: lower Priority index
// means higher install priority (the first-added, cheapest-at-discovery
// candidate wins ties).
type NextHop struct {
	Addr     string
	Priority int
}

// Backend abstracts the kernel routing table so tests can substitute a
// recording fake for the real netlink/route(8) calls a daemon would make.
type Backend interface {
	ReplaceRoute(destination string, nextHops []NextHop, dev string) error
	DeleteRoute(destination string, dev string) error
	FlushCache(family string) error
}

// LoggingBackend is a Backend that only logs what it would have done,
// useful for dry-run daemons and as the default when no real backend is
// configured.
type LoggingBackend struct {
	Family string
}

func (b *LoggingBackend) ReplaceRoute(destination string, nextHops []NextHop, dev string) error {
	logger.RouteInfow("route_replace", "destination", destination, logger.FieldCount, len(nextHops), logger.FieldDevice, dev)
	return nil
}

func (b *LoggingBackend) DeleteRoute(destination string, dev string) error {
	logger.RouteInfow("route_del", "destination", destination, logger.FieldDevice, dev)
	return nil
}

func (b *LoggingBackend) FlushCache(family string) error {
	logger.RouteInfow("route_flush_cache", "family", family)
	return nil
}
