// Package history keeps a SQLite log of benchmark runs so callers can list
// recent results.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/daryltucker/donut-runner/internal/model"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 20

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		requirements TEXT,
		config_json TEXT NOT NULL,
		classification TEXT NOT NULL,
		success INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		throughput_mbps REAL,
		latency_ms REAL,
		assessment TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one run. Recording the same id twice replaces the row.
func (s *Store) Record(ctx context.Context, rec model.RunRecord) error {
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, source, started_at, requirements, config_json, classification,
			success, exit_code, duration_ns, throughput_mbps, latency_ms, assessment, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Timestamp.UnixNano(), rec.Requirements, string(cfgJSON), string(rec.Classification),
		rec.Success, rec.ExitCode, int64(rec.Duration), nullFloat(rec.ThroughputMBps), nullFloat(rec.LatencyMs),
		string(rec.Assessment), rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, requirements, config_json, classification, success, exit_code,
			duration_ns, throughput_mbps, latency_ms, assessment, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	recs := []model.RunRecord{}
	for rows.Next() {
		var (
			rec                   model.RunRecord
			startedAt, durationNS int64
			reqs, assessment, msg sql.NullString
			cfgJSON, class        string
			throughput, latency   sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &startedAt, &reqs, &cfgJSON, &class, &rec.Success,
			&rec.ExitCode, &durationNS, &throughput, &latency, &assessment, &msg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
			return nil, fmt.Errorf("decode config of run %s: %w", rec.ID, err)
		}
		rec.Timestamp = time.Unix(0, startedAt).UTC()
		rec.Duration = time.Duration(durationNS)
		rec.Classification = model.Classification(class)
		rec.Requirements = reqs.String
		rec.Assessment = model.Assessment(assessment.String)
		rec.Error = msg.String
		if throughput.Valid {
			rec.ThroughputMBps = &throughput.Float64
		}
		if latency.Valid {
			rec.LatencyMs = &latency.Float64
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
