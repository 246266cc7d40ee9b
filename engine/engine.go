// Package engine wires the QSPN round state machine, the radar, the
// tracer pipeline, the flood dispatcher, the route installer and the
// transport socket together into one running node, owning the shared
// shutdown context and the goroutines described for the scheduling model:
// one radar task, one QSPN worker per level, one receive task per
// transport endpoint, and the route-installer ticker.
package engine

import (
	"time"

	"github.com/teranos/netsukuku/config"
	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/history"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/qspn"
	"github.com/teranos/netsukuku/radar"
	"github.com/teranos/netsukuku/routeinstall"
	"github.com/teranos/netsukuku/statusd"
	"github.com/teranos/netsukuku/transport"
)

// Node is a complete running instance of the engine.
type Node struct {
	cfg     *config.Config
	self    netmap.Position
	maps    *netmap.Map
	socket  transport.Socket
	qspn    *qspn.Engine
	radar   *radar.Radar
	install *routeinstall.Installer
	hist    *history.Store
	hub     *statusd.Hub

	neighbors [netmap.MaxLevels][]flood.Target

	startedAt time.Time
}

// Options gathers the collaborators a Node needs beyond what it builds
// itself from cfg.
type Options struct {
	Config    *config.Config
	Self      netmap.Position
	Socket    transport.Socket
	Neighbors [netmap.MaxLevels][]flood.Target
	Backend   routeinstall.Backend
	History   *history.Store
}

// New constructs a Node ready to Run.
func New(opts Options) *Node {
	m := netmap.NewMap()
	if opts.Config.Device.MapPath != "" {
		if level, err := netmap.LoadFromPath(opts.Config.Device.MapPath); err == nil {
			m.Levels[0] = level
		}
	}

	var isBnode [netmap.MaxLevels]bool
	var waitRound [netmap.MaxLevels]time.Duration
	var root [netmap.MaxLevels]netmap.Position
	var bnodeTotal [netmap.MaxLevels]int
	for l := 0; l < netmap.MaxLevels; l++ {
		isBnode[l] = opts.Config.Levels.IsBorderNode(l)
		waitRound[l] = opts.Config.Levels.WaitRound(l)
		root[l] = opts.Self
	}

	n := &Node{
		cfg:       opts.Config,
		self:      opts.Self,
		maps:      m,
		socket:    opts.Socket,
		hist:      opts.History,
		hub:       statusd.NewHub(),
		neighbors: opts.Neighbors,
		startedAt: time.Now(),
	}

	qcfg := qspn.Config{
		Self:       opts.Self,
		Map:        m,
		Send:       opts.Socket.Send,
		Root:       root,
		IsBnode:    isBnode,
		WaitRound:  waitRound,
		Neighbors:  opts.Neighbors,
		BnodeTotal: bnodeTotal,
	}
	n.qspn = qspn.New(qcfg)

	backend := opts.Backend
	if backend == nil {
		backend = &routeinstall.LoggingBackend{Family: "inet"}
	}
	n.install = routeinstall.New(backend, opts.Config.Device.Name, "inet")

	radarRate := 5.0
	n.radar = radar.New(opts.Socket, radarRate)

	return n
}

// Snapshot implements statusd.Provider.
func (n *Node) Snapshot() statusd.Snapshot {
	levels := make([]statusd.LevelStatus, 0, netmap.MaxLevels)
	for l := 0; l < netmap.MaxLevels; l++ {
		if len(n.neighbors[l]) == 0 && l > 0 {
			continue
		}
		levels = append(levels, statusd.LevelStatus{
			Level:      l,
			QSPNID:     n.qspn.CurrentID(l),
			Phase:      n.qspn.SelfPhase(l).String(),
			IsBnode:    n.cfg.Levels.IsBorderNode(l),
			NeighborCt: len(n.neighbors[l]),
		})
	}
	return statusd.Snapshot{
		Device:    n.cfg.Device.Name,
		UptimeSec: time.Since(n.startedAt).Seconds(),
		Levels:    levels,
	}
}

// StatusServer builds an HTTP server for this node's live status.
func (n *Node) StatusServer() *statusd.Server {
	return statusd.NewServer(n, n.hub, nil)
}

func statusRoundEvent(level int, qspnID uint32, phase string) statusd.RoundEvent {
	return statusd.RoundEvent{Level: level, QSPNID: qspnID, Phase: phase}
}
