package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/teranos/netsukuku/errors"
)

// AddPeer merges one statically configured neighbor into the TOML file at
// path and writes it back, load-or-create then encode-and-overwrite, the
// same shape as the teacher's plugin config write-back. Used by the map
// CLI subcommand to register a neighbor without hand-editing TOML.
func AddPeer(path string, peer PeerConfig) error {
	doc := make(map[string]interface{})
	if data, err := os.ReadFile(path); err == nil {
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return errors.Wrapf(err, "parse existing config at %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "read config at %s", path)
	}

	peers := peerTables(doc["peers"])
	peers = append(peers, map[string]interface{}{
		"position": peer.Position,
		"addr":     peer.Addr,
		"level":    peer.Level,
	})
	doc["peers"] = peers

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return errors.Wrapf(err, "encode config for %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write config to %s", path)
	}
	return nil
}

// peerTables normalizes whatever shape toml.Decode gave an existing
// "peers" array-of-tables into []map[string]interface{}, tolerating an
// absent or empty key.
func peerTables(existing interface{}) []map[string]interface{} {
	switch v := existing.(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
