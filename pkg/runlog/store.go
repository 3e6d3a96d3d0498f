package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var (
	// ErrTeamRequired is returned by Append for a record without a team name.
	ErrTeamRequired = errors.New("team name is required")

	// ErrUnknownColumn is returned by List for a sort column outside Columns.
	ErrUnknownColumn = errors.New("unknown column")
)

// Store is an append-only run log.
type Store interface {
	// Append adds rec to the end of the log.
	Append(ctx context.Context, rec Record) error

	// List returns the records matching q.
	List(ctx context.Context, q Query) ([]Record, error)

	Close() error
}

// Query selects and orders records for List.
type Query struct {
	// Team keeps only records of this team. Empty means all teams.
	Team string

	// SortBy is a column from Columns. Empty keeps insertion order.
	SortBy string

	Descending bool
}

// Config selects and configures a Store backend.
type Config struct {
	// Backend is one of: csv | sqlite | postgres. Defaults to csv.
	Backend string `yaml:"backend"`

	// Path is the CSV file or SQLite database path.
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the PostgreSQL DSN.
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the PostgreSQL connection string resolved from the environment.
func (c Config) DSN() string {
	if c.DSNEnv == "" {
		return ""
	}
	return os.Getenv(c.DSNEnv)
}

// Open returns the Store described by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendCSV, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("runlog: csv backend requires a path")
		}
		return NewCSVStore(cfg.Path), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("runlog: sqlite backend requires a path")
		}
		return OpenSQLite(cfg.Path)
	case BackendPostgres:
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("runlog: postgres backend requires %s to be set", cfg.DSNEnv)
		}
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("runlog: unknown backend %q", cfg.Backend)
	}
}

// ValidBackend reports whether name is a backend Open understands.
func ValidBackend(name string) bool {
	switch name {
	case BackendCSV, BackendSQLite, BackendPostgres, "":
		return true
	}
	return false
}

// validColumn reports whether col is part of the record schema.
func validColumn(col string) bool {
	for _, c := range Columns {
		if c == col {
			return true
		}
	}
	return false
}

func checkRecord(rec Record) error {
	if strings.TrimSpace(rec.Team) == "" {
		return fmt.Errorf("runlog: %w", ErrTeamRequired)
	}
	return nil
}

func checkQuery(q Query) error {
	if q.SortBy != "" && !validColumn(q.SortBy) {
		return fmt.Errorf("runlog: %w %q", ErrUnknownColumn, q.SortBy)
	}
	return nil
}

// apply filters and sorts recs in memory according to q.
func apply(recs []Record, q Query) []Record {
	out := recs[:0:0]
	for _, r := range recs {
		if q.Team == "" || r.Team == q.Team {
			out = append(out, r)
		}
	}
	if q.SortBy == "" {
		if q.Descending {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], q.SortBy)
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

// compare orders two records by col.
func compare(a, b Record, col string) int {
	switch col {
	case ColTimestamp:
		return a.Timestamp.Compare(b.Timestamp)
	case ColTeam:
		return strings.Compare(a.Team, b.Team)
	}
	av, _ := a.numeric(col)
	bv, _ := b.numeric(col)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}
