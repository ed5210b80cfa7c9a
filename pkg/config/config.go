// Package config loads editor settings from a TOML file. A missing file is
// not an error; every key has a default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/history"
	"github.com/chazu/lignin/pkg/kernel/sdfx"
	"github.com/chazu/lignin/pkg/persist"
	"github.com/chazu/lignin/pkg/store"
)

// FileName is the config file looked up under the user config directory.
const FileName = "lignin.toml"

// Config holds all settings.
type Config struct {
	History History `toml:"history"`
	Editor  Editor  `toml:"editor"`
	Persist Persist `toml:"persist"`
	Kernel  Kernel  `toml:"kernel"`
}

// History configures undo depth.
type History struct {
	MaxDepth int `toml:"max_depth"`
}

// Editor configures mutator defaults.
type Editor struct {
	DuplicateOffset float64 `toml:"duplicate_offset"`
	DefaultMaterial string  `toml:"default_material"`
}

// Persist configures saving and loading.
type Persist struct {
	Format             string `toml:"format"`
	LoadTimeoutSeconds int    `toml:"load_timeout_seconds"`
}

// Kernel configures the geometry backend.
type Kernel struct {
	MeshCells int `toml:"mesh_cells"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		History: History{MaxDepth: history.DefaultMaxDepth},
		Editor: Editor{
			DuplicateOffset: store.DuplicateOffset,
			DefaultMaterial: graph.DefaultMaterial,
		},
		Persist: Persist{
			Format:             string(persist.FormatVerbose),
			LoadTimeoutSeconds: int(persist.DefaultLoadTimeout / time.Second),
		},
		Kernel: Kernel{MeshCells: sdfx.DefaultMeshCells},
	}
}

// DefaultPath returns the config file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lignin", FileName), nil
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.History.MaxDepth < 1 {
		return fmt.Errorf("history.max_depth must be at least 1, got %d", c.History.MaxDepth)
	}
	if c.Editor.DefaultMaterial == "" {
		return fmt.Errorf("editor.default_material must not be empty")
	}
	if _, err := persist.ParseFormat(c.Persist.Format); err != nil {
		return fmt.Errorf("persist.format: %w", err)
	}
	if c.Persist.LoadTimeoutSeconds < 1 {
		return fmt.Errorf("persist.load_timeout_seconds must be at least 1, got %d", c.Persist.LoadTimeoutSeconds)
	}
	if c.Kernel.MeshCells < 8 {
		return fmt.Errorf("kernel.mesh_cells must be at least 8, got %d", c.Kernel.MeshCells)
	}
	return nil
}

// Format returns the configured save format.
func (c Config) Format() persist.Format {
	f, err := persist.ParseFormat(c.Persist.Format)
	if err != nil {
		return persist.FormatVerbose
	}
	return f
}

// LoadTimeout returns the compact decode timeout.
func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.Persist.LoadTimeoutSeconds) * time.Second
}

// StoreOptions translates the settings into store options.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithHistoryDepth(c.History.MaxDepth),
		store.WithDuplicateOffset(c.Editor.DuplicateOffset),
		store.WithDefaultMaterial(c.Editor.DefaultMaterial),
	}
}
