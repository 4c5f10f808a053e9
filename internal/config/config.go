package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root configuration for tl, stored in ~/.tl/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Store  StoreConfig  `json:"store"`
	Ledger LedgerConfig `json:"ledger"`
	Server ServerConfig `json:"server"`
}

// StoreConfig selects where the ledger snapshot lives.
type StoreConfig struct {
	// Backend is one of "file", "sqlite" or "mysql".
	Backend string `json:"backend"`
	// Dir holds the JSON snapshot for the file backend. Empty = <base>/data.
	Dir string `json:"dir"`
	// DSN is the connection string for sqlite or mysql. For sqlite an empty
	// DSN means <base>/timeledger.db.
	DSN string `json:"dsn"`
	// Key is the name the snapshot is saved under.
	Key string `json:"key"`
	// LogLevel is the SQL log level: silent, error, warn or info.
	LogLevel string `json:"log_level"`
}

// LedgerConfig holds the seed and calendar settings.
type LedgerConfig struct {
	OwnerName string `json:"owner_name"`
	// Timezone is the IANA zone record dates are computed in. Empty = local.
	Timezone string `json:"timezone"`
	// SeedWorkers is the number of placeholder workers created on first run.
	// A pointer so that an explicit 0 is kept.
	SeedWorkers *int `json:"seed_workers"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"

	DefaultKey         = "timeledger"
	DefaultLogLevel    = "warn"
	DefaultOwnerName   = "Owner"
	DefaultSeedWorkers = 5
	DefaultAddr        = ":8080"

	// HomeEnv overrides the base directory (~/.tl).
	HomeEnv = "TL_HOME"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	seed := DefaultSeedWorkers
	return Config{
		Store: StoreConfig{
			Backend:  BackendFile,
			Key:      DefaultKey,
			LogLevel: DefaultLogLevel,
		},
		Ledger: LedgerConfig{
			OwnerName:   DefaultOwnerName,
			SeedWorkers: &seed,
		},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// tl configuration – ~/.tl/config.json
//
// All settings are optional; the built-in defaults shown below keep the
// ledger in a JSON file next to this config.
{
  // ── Storage ──────────────────────────────────────────────────────────────
  "store": {
    // Where the ledger snapshot is kept.
    // • "file"   – a JSON file in "dir" (default)
    // • "sqlite" – a local SQLite database, "dsn" is the file path
    // • "mysql"  – a MySQL table, "dsn" like "user:pass@tcp(host:3306)/db"
    "backend": "file",

    // Directory for the file backend. Empty = ~/.tl/data
    "dir": "",

    // Connection string for sqlite or mysql. Empty sqlite dsn = ~/.tl/timeledger.db
    "dsn": "",

    // Name the snapshot is saved under.
    "key": "timeledger",

    // SQL log level: silent, error, warn or info.
    "log_level": "warn"
  },

  // ── Ledger ───────────────────────────────────────────────────────────────
  "ledger": {
    // Display name of the owner, created on first run.
    "owner_name": "Owner",

    // IANA timezone record dates are computed in, e.g. "Australia/Brisbane".
    // Leave empty to use the system's local zone.
    "timezone": "",

    // Number of placeholder workers ("Worker 1", "Worker 2", …) on first run.
    "seed_workers": 5
  },

  // ── HTTP API (tl serve) ──────────────────────────────────────────────────
  "server": {
    "addr": ":8080"
  }
}
`

// BaseDir returns $TL_HOME or ~/.tl.
func BaseDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tl"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads <base>/config.json, creating it with annotated defaults on first
// run, and fills the storage locations left empty from the base directory.
func Load() (Config, error) {
	base, err := BaseDir()
	if err != nil {
		return defaultConfig(), err
	}
	cfg, err := LoadFile(filepath.Join(base, "config.json"))
	if err != nil {
		return cfg, err
	}
	cfg.resolvePaths(base)
	return cfg, nil
}

// LoadFile reads the config at path. A missing file is created from the
// annotated template and the defaults are returned.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return defaultConfig(), fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults fills zero-value fields with built-in defaults so callers
// always get a usable Config even if the file is only partially filled in.
func (c *Config) fillDefaults() {
	d := defaultConfig()
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Key == "" {
		c.Store.Key = d.Store.Key
	}
	if c.Store.LogLevel == "" {
		c.Store.LogLevel = d.Store.LogLevel
	}
	if strings.TrimSpace(c.Ledger.OwnerName) == "" {
		c.Ledger.OwnerName = d.Ledger.OwnerName
	}
	if c.Ledger.SeedWorkers == nil {
		c.Ledger.SeedWorkers = d.Ledger.SeedWorkers
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

// resolvePaths fills the storage locations that default to the base directory.
func (c *Config) resolvePaths(base string) {
	if c.Store.Dir == "" {
		c.Store.Dir = filepath.Join(base, "data")
	}
	if c.Store.Backend == BackendSQLite && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(base, "timeledger.db")
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
	case BackendMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (want file, sqlite or mysql)", c.Store.Backend)
	}
	if c.Ledger.SeedWorkers != nil && *c.Ledger.SeedWorkers < 0 {
		return fmt.Errorf("ledger.seed_workers must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// SeedWorkerCount returns the configured seed size.
func (c Config) SeedWorkerCount() int {
	if c.Ledger.SeedWorkers == nil {
		return DefaultSeedWorkers
	}
	return *c.Ledger.SeedWorkers
}

// Location returns the configured timezone, or time.Local when unset.
func (c Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.timezone %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
