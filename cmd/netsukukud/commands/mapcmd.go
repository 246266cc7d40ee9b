package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/netsukuku/config"
	"github.com/teranos/netsukuku/errors"
)

var mapConfigPath string

// MapCmd prints the statically configured neighbor map this node would
// start with. The live, radar-discovered map is only visible through a
// running daemon's /status endpoint (see StatusCmd); this command reads
// configuration only, so it works without a daemon running.
var MapCmd = &cobra.Command{
	Use:   "map",
	Short: "Dump the configured neighbor map",
	RunE:  runMap,
}

var addPeerCmd = &cobra.Command{
	Use:   "add-peer",
	Short: "Add a statically configured neighbor to a config file",
	RunE:  runAddPeer,
}

var (
	addPeerPosition uint16
	addPeerAddr     string
	addPeerLevel    int
)

func init() {
	MapCmd.Flags().StringVar(&mapConfigPath, "config", "", "Path to a netsukukud.toml config file")

	addPeerCmd.Flags().StringVar(&mapConfigPath, "config", "", "Path to a netsukukud.toml config file")
	addPeerCmd.Flags().Uint16Var(&addPeerPosition, "position", 0, "Neighbor's netmap position")
	addPeerCmd.Flags().StringVar(&addPeerAddr, "addr", "", "Neighbor's transport address")
	addPeerCmd.Flags().IntVar(&addPeerLevel, "level", 0, "Hierarchy level this neighbor belongs to")
	addPeerCmd.MarkFlagRequired("config")
	addPeerCmd.MarkFlagRequired("addr")
	MapCmd.AddCommand(addPeerCmd)
}

func runAddPeer(cmd *cobra.Command, args []string) error {
	peer := config.PeerConfig{Position: addPeerPosition, Addr: addPeerAddr, Level: addPeerLevel}
	if err := config.AddPeer(mapConfigPath, peer); err != nil {
		return errors.Wrap(err, "add peer")
	}
	pterm.Success.Printfln("added peer position=%d addr=%s level=%d to %s", peer.Position, peer.Addr, peer.Level, mapConfigPath)
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if mapConfigPath != "" {
		cfg, err = config.LoadFromFile(mapConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	pterm.DefaultSection.Printfln("%s (position %d)", cfg.Device.Name, cfg.Device.Position)

	table := pterm.TableData{{"Level", "Position", "Address", "Border Node"}}
	for _, p := range cfg.Peers {
		table = append(table, []string{
			fmt.Sprintf("%d", p.Level),
			fmt.Sprintf("%d", p.Position),
			p.Addr,
			fmt.Sprintf("%v", cfg.Levels.IsBorderNode(p.Level)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}
