package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/netsukuku/errors"
	"github.com/teranos/netsukuku/statusd"
)

var statusAddr string

// StatusCmd queries a running daemon's /status endpoint and renders it.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running daemon's live status",
	RunE:  runStatus,
}

func init() {
	StatusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "Base URL of the daemon's status server")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/status")
	if err != nil {
		return errors.Wrap(err, "fetch status")
	}
	defer resp.Body.Close()

	var snap statusd.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode status response")
	}

	pterm.DefaultSection.Printfln("%s (up %.0fs)", snap.Device, snap.UptimeSec)

	table := pterm.TableData{{"Level", "QSPN ID", "Phase", "Bnode", "Neighbors"}}
	for _, l := range snap.Levels {
		table = append(table, []string{
			fmt.Sprintf("%d", l.Level),
			fmt.Sprintf("%d", l.QSPNID),
			l.Phase,
			fmt.Sprintf("%v", l.IsBnode),
			fmt.Sprintf("%d", l.NeighborCt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}
