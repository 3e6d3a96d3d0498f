package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const table = "qc_runs"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS qc_runs (
	seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id               TEXT NOT NULL UNIQUE,
	logged_at            TEXT NOT NULL,
	team                 TEXT NOT NULL,
	confidence_threshold REAL NOT NULL,
	manual_band_low      REAL NOT NULL,
	manual_band_high     REAL NOT NULL,
	vibration_weight     REAL NOT NULL,
	acoustic_weight      REAL NOT NULL,
	sampling_rate        REAL NOT NULL,
	accuracy             REAL NOT NULL,
	recall               REAL NOT NULL,
	precision_pct        REAL NOT NULL,
	false_negatives      INTEGER NOT NULL,
	takt_time            REAL NOT NULL,
	jobs_per_hour        REAL NOT NULL,
	inspection_cost      REAL NOT NULL,
	defect_cost          REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS qc_runs_team ON qc_runs(team);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS qc_runs (
	seq                  BIGSERIAL PRIMARY KEY,
	run_id               TEXT NOT NULL UNIQUE,
	logged_at            TEXT NOT NULL,
	team                 TEXT NOT NULL,
	confidence_threshold DOUBLE PRECISION NOT NULL,
	manual_band_low      DOUBLE PRECISION NOT NULL,
	manual_band_high     DOUBLE PRECISION NOT NULL,
	vibration_weight     DOUBLE PRECISION NOT NULL,
	acoustic_weight      DOUBLE PRECISION NOT NULL,
	sampling_rate        DOUBLE PRECISION NOT NULL,
	accuracy             DOUBLE PRECISION NOT NULL,
	recall               DOUBLE PRECISION NOT NULL,
	precision_pct        DOUBLE PRECISION NOT NULL,
	false_negatives      INTEGER NOT NULL,
	takt_time            DOUBLE PRECISION NOT NULL,
	jobs_per_hour        DOUBLE PRECISION NOT NULL,
	inspection_cost      DOUBLE PRECISION NOT NULL,
	defect_cost          DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS qc_runs_team ON qc_runs(team);
`

// sqlColumns maps record columns to table columns, in Columns order.
var sqlColumns = map[string]string{
	ColTimestamp:           "logged_at",
	ColTeam:                "team",
	ColConfidenceThreshold: "confidence_threshold",
	ColManualBandLow:       "manual_band_low",
	ColManualBandHigh:      "manual_band_high",
	ColVibrationWeight:     "vibration_weight",
	ColAcousticWeight:      "acoustic_weight",
	ColSamplingRate:        "sampling_rate",
	ColAccuracy:            "accuracy",
	ColRecall:              "recall",
	ColPrecision:           "precision_pct",
	ColFalseNegatives:      "false_negatives",
	ColTaktTime:            "takt_time",
	ColJobsPerHour:         "jobs_per_hour",
	ColInspectionCost:      "inspection_cost",
	ColDefectCost:          "defect_cost",
}

// SQLStore keeps the run log in a SQL table. Each appended run gets a UUID.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (or creates) a SQLite database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("runlog: pragma: %w", err)
		}
	}
	return newSQLStore(db, sq.StatementBuilder.PlaceholderFormat(sq.Question), sqliteSchema)
}

// OpenPostgres connects to PostgreSQL using dsn.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("runlog: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: ping postgres: %w", err)
	}
	return newSQLStore(db, sq.StatementBuilder.PlaceholderFormat(sq.Dollar), postgresSchema)
}

func newSQLStore(db *sql.DB, sb sq.StatementBuilderType, schema string) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: migrate: %w", err)
	}
	return &SQLStore{db: db, sb: sb}, nil
}

// Append inserts rec.
func (s *SQLStore) Append(ctx context.Context, rec Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	cols := []string{"run_id"}
	vals := []interface{}{uuid.New().String()}
	for _, c := range Columns {
		cols = append(cols, sqlColumns[c])
		vals = append(vals, sqlValue(rec, c))
	}

	query, args, err := s.sb.Insert(table).Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return fmt.Errorf("runlog: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("runlog: insert: %w", err)
	}
	return nil
}

// List queries the table. Ties and unsorted queries follow insertion order.
func (s *SQLStore) List(ctx context.Context, q Query) ([]Record, error) {
	if err := checkQuery(q); err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(Columns))
	for _, c := range Columns {
		cols = append(cols, sqlColumns[c])
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	sel := s.sb.Select(cols...).From(table)
	if q.Team != "" {
		sel = sel.Where(sq.Eq{"team": q.Team})
	}
	if q.SortBy != "" {
		// Column names come from the fixed sqlColumns table, never from input.
		sel = sel.OrderBy(sqlColumns[q.SortBy]+" "+dir, "seq ASC")
	} else {
		sel = sel.OrderBy("seq " + dir)
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("runlog: build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("runlog: query: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec Record
			ts  string
		)
		if err := rows.Scan(
			&ts, &rec.Team,
			&rec.ConfidenceThreshold, &rec.ManualBandLow, &rec.ManualBandHigh,
			&rec.VibrationWeight, &rec.AcousticWeight, &rec.SamplingRate,
			&rec.Accuracy, &rec.Recall, &rec.Precision, &rec.FalseNegatives,
			&rec.TaktTime, &rec.JobsPerHour, &rec.InspectionCost, &rec.DefectCost,
		); err != nil {
			return nil, fmt.Errorf("runlog: scan: %w", err)
		}
		if rec.Timestamp, err = time.ParseInLocation(TimestampLayout, ts, time.Local); err != nil {
			return nil, fmt.Errorf("runlog: parse timestamp %q: %w", ts, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runlog: rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func sqlValue(rec Record, col string) interface{} {
	switch col {
	case ColTimestamp:
		return rec.Timestamp.Format(TimestampLayout)
	case ColTeam:
		return rec.Team
	case ColFalseNegatives:
		return rec.FalseNegatives
	}
	v, _ := rec.numeric(col)
	return v
}
