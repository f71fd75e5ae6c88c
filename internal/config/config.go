package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListCount  = 20
	DefaultTimeoutSec = 60
)

// Config represents the main configuration for dropscan.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Portal      PortalConfig      `toml:"portal"`
	Sync        SyncConfig        `toml:"sync"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Filesystem  FilesystemConfig  `toml:"filesystem"`
}

// PortalConfig holds the connection settings for the Dropscan web portal.
type PortalConfig struct {
	BaseURL            string `toml:"base_url,omitempty"` // empty means the public portal
	User               string `toml:"user,omitempty"`
	ListCount          int    `toml:"list_count"`
	Proxy              string `toml:"proxy,omitempty"`
	TimeoutSec         int    `toml:"timeout_sec"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Timeout returns the HTTP timeout, falling back to the default for unset values.
func (p PortalConfig) Timeout() time.Duration {
	if p.TimeoutSec <= 0 {
		return DefaultTimeoutSec * time.Second
	}
	return time.Duration(p.TimeoutSec) * time.Second
}

// SyncConfig controls where and how mailings are mirrored.
type SyncConfig struct {
	TargetDir         string   `toml:"target_dir"`
	SearchDirs        []string `toml:"search_dirs,omitempty"` // checked for existing files in addition to target_dir
	Recursive         bool     `toml:"recursive"`
	Thumbnails        bool     `toml:"thumbnails"`
	Combine           bool     `toml:"combine"`
	LedgerPath        string   `toml:"ledger_path,omitempty"` // defaults to <target_dir>/dropscan.sync
	PostProcessScript string   `toml:"post_process_script,omitempty"`
}

// CredentialsConfig selects the credential sources after command-line flags.
type CredentialsConfig struct {
	File       string `toml:"file,omitempty"` // JSON {"user": ..., "password": ...}
	UseKeyring bool   `toml:"use_keyring"`
}

// DatabaseConfig represents configuration for the sync journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Portal: PortalConfig{
			ListCount:  DefaultListCount,
			TimeoutSec: DefaultTimeoutSec,
		},
		Sync: SyncConfig{
			TargetDir: ".",
			Combine:   true,
		},
		Credentials: CredentialsConfig{
			File:       filepath.Join(baseDir, "dropscan-credentials.json"),
			UseKeyring: true,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Portal.ListCount < 0 {
		return fmt.Errorf("portal.list_count must not be negative, got %d", c.Portal.ListCount)
	}
	if c.Portal.TimeoutSec < 0 {
		return fmt.Errorf("portal.timeout_sec must not be negative, got %d", c.Portal.TimeoutSec)
	}
	if c.Sync.TargetDir == "" {
		return fmt.Errorf("sync.target_dir is required")
	}
	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may name a credentials file or user; keep it private.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file at path. It refuses to overwrite an existing one.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
