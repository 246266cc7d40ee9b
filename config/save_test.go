package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddPeerCreatesFileWithPeer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsukuku.toml")

	require.NoError(t, AddPeer(path, PeerConfig{Position: 2, Addr: "node-b:269", Level: 0}))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Peers, 1)
	require.Equal(t, uint16(2), cfg.Peers[0].Position)
	require.Equal(t, "node-b:269", cfg.Peers[0].Addr)
}

func TestAddPeerAppendsToExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsukuku.toml")
	contents := `
[device]
name = "node-a"

[[peers]]
position = 2
addr = "node-b:269"
level = 0
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	require.NoError(t, AddPeer(path, PeerConfig{Position: 3, Addr: "node-c:269", Level: 0}))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "node-a", cfg.Device.Name, "existing keys must survive the write-back")
	require.Len(t, cfg.Peers, 2)
}
