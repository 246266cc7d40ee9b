package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/netsukuku/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
)

// Load reads the engine configuration through Viper: defaults, then
// /etc/netsukuku/config.toml, then ~/.netsukuku/config.toml, then a
// project-local netsukuku.toml found by walking up from the working
// directory, then NETSUKUKU_-prefixed environment variables, in ascending
// precedence.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	v := initViper()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	globalConfig = &cfg
	return globalConfig, nil
}

// LoadFromFile loads configuration from one specific TOML file, ignoring
// the normal layered search path. Used by tests and by explicit --config
// flags.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshal config from %s", path)
	}
	return &cfg, nil
}

// Reset clears cached configuration state, for test isolation.
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// GetViper returns the shared Viper instance, for advanced access (e.g. the
// config watcher re-reading on file change).
func GetViper() *viper.Viper {
	return initViper()
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}
	v := viper.New()
	v.SetEnvPrefix("NETSUKUKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// SetDefaults installs the engine's built-in defaults onto v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("device.udp_port", DefaultUDPPort)
	v.SetDefault("device.map_path", "/var/lib/netsukuku/map.db")
	v.SetDefault("logging.verbosity", 2)
	v.SetDefault("logging.theme", "forest")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "/var/lib/netsukuku/history.db")
	v.SetDefault("status.enabled", true)
	v.SetDefault("status.port", DefaultStatusPort)
}

func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "netsukuku.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles layers system, user and project config files onto v in
// ascending precedence, below environment variables.
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	userDir := filepath.Join(homeDir, ".netsukuku")
	os.MkdirAll(userDir, 0o755)

	paths := []string{
		"/etc/netsukuku/config.toml",
		filepath.Join(userDir, "config.toml"),
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tmp := viper.New()
		tmp.SetConfigFile(path)
		tmp.SetConfigType("toml")
		if err := tmp.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(tmp.AllSettings()); err != nil {
			continue
		}
	}
}
