// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Paths holds XDG-compliant paths for raster.
type Paths struct {
	ConfigDir      string // ~/.config/raster
	DataDir        string // ~/.local/share/raster
	StorePath      string // ~/.local/share/raster/audit.db
	FingerprintDir string // ~/.local/share/raster/fingerprints
}

// ExpandPath expands ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
// Panics if home directory cannot be determined when ~ expansion is needed.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultPaths returns the default XDG-compliant paths.
// Panics if the user's home directory cannot be determined.
func DefaultPaths() Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
	configDir := filepath.Join(home, ".config", "raster")
	dataDir := filepath.Join(home, ".local", "share", "raster")

	return Paths{
		ConfigDir:      configDir,
		DataDir:        dataDir,
		StorePath:      filepath.Join(dataDir, "audit.db"),
		FingerprintDir: filepath.Join(dataDir, "fingerprints"),
	}
}

// EnsureDirectories creates config and data directories if they don't exist.
func (p Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0700); err != nil {
		return err
	}
	return os.MkdirAll(p.DataDir, 0700)
}

// Config holds configuration for the raster CLI.
type Config struct {
	Commitment CommitmentConfig `toml:"commitment"`
	Audit      AuditConfig      `toml:"audit"`
	Backend    BackendConfig    `toml:"backend"`
	Storage    StorageConfig    `toml:"storage"`
}

// CommitmentConfig holds fingerprint packing parameters. The fingerprint
// file format does not record its own width, so recorder and verifier must
// agree on bits_per_item through this configuration.
type CommitmentConfig struct {
	BitsPerItem int `toml:"bits_per_item"`
}

// AuditConfig holds fraud-window policy.
type AuditConfig struct {
	WindowSize int `toml:"window_size"`
}

// BackendConfig selects the execution backend.
type BackendConfig struct {
	Kind string `toml:"kind"`
}

// StorageConfig holds storage paths.
type StorageConfig struct {
	StorePath      string `toml:"store_path"`
	FingerprintDir string `toml:"fingerprint_dir"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	paths := DefaultPaths()
	return Config{
		Commitment: CommitmentConfig{
			BitsPerItem: 64,
		},
		Audit: AuditConfig{
			WindowSize: 2,
		},
		Backend: BackendConfig{
			Kind: "native",
		},
		Storage: StorageConfig{
			StorePath:      paths.StorePath,
			FingerprintDir: paths.FingerprintDir,
		},
	}
}

// Load loads a Config from a TOML file, applying defaults for any field the
// file omits. Paths with ~ are expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.Storage.StorePath = ExpandPath(cfg.Storage.StorePath)
	cfg.Storage.FingerprintDir = ExpandPath(cfg.Storage.FingerprintDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Commitment.BitsPerItem < 1 || c.Commitment.BitsPerItem > 64 {
		return fmt.Errorf("config: bits_per_item must be in [1, 64], got %d", c.Commitment.BitsPerItem)
	}
	if c.Audit.WindowSize < 1 {
		return fmt.Errorf("config: window_size must be positive, got %d", c.Audit.WindowSize)
	}
	switch c.Backend.Kind {
	case "native", "zkvm":
	default:
		return fmt.Errorf("config: unknown backend kind %q", c.Backend.Kind)
	}
	return nil
}

// Save writes the Config to a TOML file, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
