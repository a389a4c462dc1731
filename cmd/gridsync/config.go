package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/stroke"
)

// Config is the gridsync configuration file. Command-line flags override the
// values it sets.
type Config struct {
	Board  string `yaml:"board"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Kind   string `yaml:"kind"`
	// Value is the mark strokes paint; zero toggles between empty and the
	// kind's full mark.
	Value uint32 `yaml:"value"`

	Relay RelayConfig `yaml:"relay"`
	Peer  PeerConfig  `yaml:"peer"`
}

// RelayConfig configures the relay subcommand.
type RelayConfig struct {
	Addr      string `yaml:"addr"`
	Log       string `yaml:"log"` // SQLite file; in-memory when empty
	Advertise bool   `yaml:"advertise"`
}

// PeerConfig configures the peer subcommand.
type PeerConfig struct {
	ID string `yaml:"id"`
	// Relay is a ws:// URL, or "mdns" to discover one on the local network.
	Relay string `yaml:"relay"`
	// Log is a SQLite file shared with other local peers; used instead of a
	// relay when set.
	Log string `yaml:"log"`
	// Redis carries previews when set.
	Redis    string         `yaml:"redis"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig selects where a peer persists its state.
type SnapshotConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite, bolt or postgres
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Board:  "default",
		Width:  32,
		Height: 16,
		Kind:   grid.Bool.String(),
		Relay:  RelayConfig{Addr: ":8090"},
		Peer: PeerConfig{
			Redis:    os.Getenv("GRIDSYNC_REDIS_ADDR"),
			Snapshot: SnapshotConfig{Backend: "memory", DSN: os.Getenv("GRIDSYNC_DATABASE_URL")},
		},
	}
}

// LoadConfig reads a YAML file over cfg.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// parseArgs binds the common flags plus bind's, loads -config if given, and
// re-applies the flags so they win over the file.
func parseArgs(name string, args []string, bind func(fs *flag.FlagSet, cfg *Config)) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML configuration file")
	fs.StringVar(&cfg.Board, "board", cfg.Board, "board id")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "grid width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "grid height")
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "mark kind: bool, intensity or color")
	bind(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		if err := LoadConfig(*path, cfg); err != nil {
			return nil, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	kind, err := grid.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if !kind.Valid(grid.Mark(cfg.Value)) {
		return nil, fmt.Errorf("config: value %d invalid for %v grid", cfg.Value, kind)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("config: invalid grid %dx%d", cfg.Width, cfg.Height)
	}
	return cfg, nil
}

// paint returns the stroke paint function for the configured kind and value.
func (c *Config) paint() stroke.PaintFunc {
	if c.Value != 0 {
		return stroke.Fixed(grid.Mark(c.Value))
	}
	kind, _ := grid.ParseKind(c.Kind)
	switch kind {
	case grid.Intensity:
		return stroke.Toggle(0xff)
	default:
		return stroke.Toggle(1)
	}
}
