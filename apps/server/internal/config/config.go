package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"hometable/apps/server/internal/store"
	"hometable/holdem"
)

// Config is the server configuration file.
type Config struct {
	Server   ServerSettings `hcl:"server,block"`
	Store    StoreSettings  `hcl:"store,block"`
	Ledger   LedgerSettings `hcl:"ledger,block"`
	Defaults TableDefaults  `hcl:"defaults,block"`
}

type ServerSettings struct {
	Address    string `hcl:"address,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	SessionTTL string `hcl:"session_ttl,optional"`
}

type StoreSettings struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
	Path   string `hcl:"path,optional"`
}

type LedgerSettings struct {
	Enabled bool `hcl:"enabled,optional"`
}

// TableDefaults applies to tables created without an explicit config.
type TableDefaults struct {
	InitialStack int64 `hcl:"initial_stack,optional"`
	SmallBlind   int64 `hcl:"small_blind,optional"`
	BigBlind     int64 `hcl:"big_blind,optional"`
}

func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:    ":8080",
			LogLevel:   "info",
			SessionTTL: "720h",
		},
		Store:  StoreSettings{Driver: store.DriverMemory, Path: "holdem.db"},
		Ledger: LedgerSettings{Enabled: true},
		Defaults: TableDefaults{
			InitialStack: 1000,
			SmallBlind:   5,
			BigBlind:     10,
		},
	}
}

// Load reads filename, falling back to defaults when it does not exist, and
// applies environment overrides on top.
func Load(filename string) (*Config, error) {
	cfg, err := loadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFile(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw struct {
		Server   *ServerSettings `hcl:"server,block"`
		Store    *StoreSettings  `hcl:"store,block"`
		Ledger   *LedgerSettings `hcl:"ledger,block"`
		Defaults *TableDefaults  `hcl:"defaults,block"`
	}
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if s := raw.Server; s != nil {
		cfg.Server.Address = firstNonEmpty(s.Address, cfg.Server.Address)
		cfg.Server.LogLevel = firstNonEmpty(s.LogLevel, cfg.Server.LogLevel)
		cfg.Server.SessionTTL = firstNonEmpty(s.SessionTTL, cfg.Server.SessionTTL)
	}
	if s := raw.Store; s != nil {
		cfg.Store.Driver = firstNonEmpty(s.Driver, cfg.Store.Driver)
		cfg.Store.DSN = s.DSN
		cfg.Store.Path = firstNonEmpty(s.Path, cfg.Store.Path)
	}
	if raw.Ledger != nil {
		cfg.Ledger = *raw.Ledger
	}
	if d := raw.Defaults; d != nil {
		if d.InitialStack != 0 {
			cfg.Defaults.InitialStack = d.InitialStack
		}
		if d.SmallBlind != 0 {
			cfg.Defaults.SmallBlind = d.SmallBlind
		}
		if d.BigBlind != 0 {
			cfg.Defaults.BigBlind = d.BigBlind
		}
	}
	return cfg, nil
}

// applyEnv lets deployments override the file without editing it.
func (c *Config) applyEnv() {
	if v := env("HOLDEM_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := env("DATABASE_URL"); v != "" {
		c.Store.DSN = v
	}
	if v := env("SQLITE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := env("AUTH_SESSION_TTL"); v != "" {
		c.Server.SessionTTL = v
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("server.log_level: %w", err)
	}
	if _, err := c.SessionTTL(); err != nil {
		return err
	}
	switch store.NormalizeDriver(c.Store.Driver) {
	case store.DriverMemory:
	case store.DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	if err := c.TableConfig().Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) SessionTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Server.SessionTTL)
	if err != nil || ttl <= 0 {
		return 0, fmt.Errorf("server.session_ttl: invalid duration %q", c.Server.SessionTTL)
	}
	return ttl, nil
}

func (c *Config) TableConfig() holdem.TableConfig {
	return holdem.TableConfig{
		InitialStack: c.Defaults.InitialStack,
		SmallBlind:   c.Defaults.SmallBlind,
		BigBlind:     c.Defaults.BigBlind,
	}
}

func (c *Config) StoreOptions() store.Options {
	return store.Options{Driver: c.Store.Driver, DSN: c.Store.DSN, Path: c.Store.Path}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
