package store

import (
	"fmt"
	"strings"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	DSN    string // postgres
	Path   string // sqlite
}

// Open builds the backend named by opts.Driver and reports the mode it ended
// up in.
func Open(opts Options) (Store, string, error) {
	mode := NormalizeDriver(opts.Driver)
	switch mode {
	case DriverMemory:
		return NewMemoryStore(), mode, nil
	case DriverSQLite:
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, mode, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, mode, nil
	case DriverPostgres:
		s, err := OpenPostgres(opts.DSN)
		if err != nil {
			return nil, mode, fmt.Errorf("open postgres store: %w", err)
		}
		return s, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid store driver %q (supported: %s, %s, %s)",
			opts.Driver, DriverMemory, DriverSQLite, DriverPostgres)
	}
}

// NormalizeDriver maps driver aliases onto the Driver constants. Unknown
// names come back lowercased and unchanged.
func NormalizeDriver(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", DriverMemory, "mem":
		return DriverMemory
	case DriverSQLite, "local", "sqlite3":
		return DriverSQLite
	case DriverPostgres, "postgresql", "pg", "db":
		return DriverPostgres
	default:
		return raw
	}
}
