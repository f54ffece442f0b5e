package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DiskPolicy selects how an insufficient-resource preflight result is
// treated: abort the run, or continue with a reduced node count.
type DiskPolicy string

const (
	PolicyStrict   DiskPolicy = "strict"
	PolicyAdvisory DiskPolicy = "advisory"
)

// Preflight holds host validation thresholds.
type Preflight struct {
	MinMemoryGB  int        `json:"min_memory_gb" yaml:"min_memory_gb" toml:"min_memory_gb"`
	MinDiskGB    int        `json:"min_disk_gb" yaml:"min_disk_gb" toml:"min_disk_gb"`
	PortCount    int        `json:"port_count" yaml:"port_count" toml:"port_count"`
	PerNodeMemGB int        `json:"per_node_mem_gb" yaml:"per_node_mem_gb" toml:"per_node_mem_gb"`
	DiskPolicy   DiskPolicy `json:"disk_policy" yaml:"disk_policy" toml:"disk_policy"`
}

// Config holds all runtime parameters for gaiactl. One immutable value is
// built in cmd and passed explicitly into every constructor; there are no
// ambient globals. Zero values mean "unspecified" and are replaced by
// ApplyDefaults.
type Config struct {
	InstallRoot   string    `json:"install_root" yaml:"install_root" toml:"install_root"`
	Nodes         int       `json:"nodes" yaml:"nodes" toml:"nodes"`
	BasePort      int       `json:"base_port" yaml:"base_port" toml:"base_port"`
	NodeBin       string    `json:"node_bin" yaml:"node_bin" toml:"node_bin"`
	ModelOverride string    `json:"model" yaml:"model" toml:"model"`
	APIAddr       string    `json:"api_addr" yaml:"api_addr" toml:"api_addr"`
	LogLevel      string    `json:"log_level" yaml:"log_level" toml:"log_level"`
	Preflight     Preflight `json:"preflight" yaml:"preflight" toml:"preflight"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with package defaults and returns the
// completed config.
func (c Config) ApplyDefaults() Config {
	if c.InstallRoot == "" {
		c.InstallRoot = "~/gaia"
	}
	if c.Nodes <= 0 {
		c.Nodes = 1
	}
	if c.BasePort <= 0 {
		c.BasePort = 8080
	}
	if c.NodeBin == "" {
		c.NodeBin = "gaianet"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Preflight.MinMemoryGB <= 0 {
		c.Preflight.MinMemoryGB = 16
	}
	if c.Preflight.MinDiskGB <= 0 {
		c.Preflight.MinDiskGB = 50
	}
	if c.Preflight.PortCount <= 0 {
		c.Preflight.PortCount = 4
	}
	if c.Preflight.PerNodeMemGB <= 0 {
		c.Preflight.PerNodeMemGB = 4
	}
	if c.Preflight.DiskPolicy == "" {
		c.Preflight.DiskPolicy = PolicyStrict
	}
	return c
}
