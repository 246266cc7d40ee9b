package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/netsukuku/config"
	"github.com/teranos/netsukuku/engine"
	"github.com/teranos/netsukuku/errors"
	"github.com/teranos/netsukuku/flood"
	"github.com/teranos/netsukuku/history"
	"github.com/teranos/netsukuku/netmap"
	"github.com/teranos/netsukuku/transport"
)

var startConfigPath string

// StartCmd runs the routing daemon in the foreground.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the routing daemon",
	Long:  `Start radar discovery, QSPN round convergence, and route installation for this node, blocking until interrupted.`,
	RunE:  runStart,
}

func init() {
	StartCmd.Flags().StringVar(&startConfigPath, "config", "", "Path to a netsukukud.toml config file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadStartConfig()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	socket, err := transport.ListenUDP(cfg.Device.Addr, cfg.Device.UDPPort)
	if err != nil {
		return errors.Wrap(err, "open control socket")
	}
	defer socket.Close()

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			return errors.Wrap(err, "open history store")
		}
		defer hist.Close()
	}

	var neighbors [netmap.MaxLevels][]flood.Target
	for _, p := range cfg.Peers {
		level := p.Level
		if level < 0 || level >= netmap.MaxLevels {
			continue
		}
		neighbors[level] = append(neighbors[level], flood.Target{
			Pos:  netmap.Position(p.Position),
			Addr: p.Addr,
		})
	}

	node := engine.New(engine.Options{
		Config:    cfg,
		Self:      netmap.Position(cfg.Device.Position),
		Socket:    socket,
		Neighbors: neighbors,
		History:   hist,
	})

	pterm.Info.Printfln("netsukukud starting on %s as position %d", cfg.Device.Addr, cfg.Device.Position)

	if cfg.Status.Enabled {
		go serveStatus(cfg, node)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return node.Run(ctx)
}

func loadStartConfig() (*config.Config, error) {
	if startConfigPath != "" {
		return config.LoadFromFile(startConfigPath)
	}
	return config.Load()
}
