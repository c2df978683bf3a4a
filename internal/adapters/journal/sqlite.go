// Package journal keeps a SQLite history of periodic stats snapshots so
// throughput and loss can be reviewed across restarts.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/stats"
)

// DefaultRetention is how long journal rows are kept.
const DefaultRetention = 7 * 24 * time.Hour

//go:embed schema.sql
var schema string

// Entry is one journaled snapshot.
type Entry struct {
	At           time.Time    `json:"at"`
	Status       stats.Health `json:"status"`
	Received     uint64       `json:"received"`
	Sent         uint64       `json:"sent"`
	Dropped      uint64       `json:"dropped"`
	Failed       uint64       `json:"failed"`
	Filtered     uint64       `json:"filtered"`
	Requests     uint64       `json:"requests"`
	RateLimits   uint64       `json:"rate_limits"`
	Queue        int          `json:"queue"`
	InFlight     int          `json:"in_flight"`
	Deferred     int          `json:"deferred"`
	AvgLatencyMs float64      `json:"avg_latency_ms"`
}

// Journal appends snapshots to a SQLite database.
type Journal struct {
	db        *sql.DB
	retention time.Duration
}

// Open opens or creates the journal at path. A non-positive retention uses
// DefaultRetention.
func Open(path string, retention time.Duration) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer; the reporter is the only client.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Journal{db: db, retention: retention}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append records snap as observed at at.
func (j *Journal) Append(ctx context.Context, at time.Time, snap stats.Snapshot) error {
	m, p := snap.Messages, snap.Performance
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO stats_journal(at, status, received, sent, dropped, failed, filtered, requests, rate_limits, queue, in_flight, deferred, avg_latency_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		at.UnixMilli(), string(snap.Status),
		int64(m.TotalReceived), int64(m.TotalSent), int64(m.TotalDropped), int64(m.TotalFailed), int64(m.TotalFiltered),
		int64(p.TotalRequests), int64(p.RateLimits),
		snap.Queue.Current, snap.Queue.InFlight, snap.Queue.Deferred, p.AverageLatencyMs,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// Prune deletes rows older than the retention window and returns how many
// were removed.
func (j *Journal) Prune(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-j.retention).UnixMilli()
	res, err := j.db.ExecContext(ctx, `DELETE FROM stats_journal WHERE at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT at, status, received, sent, dropped, failed, filtered, requests, rate_limits, queue, in_flight, deferred, avg_latency_ms
		 FROM stats_journal ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			atMs   int64
			status string
		)
		if err := rows.Scan(&atMs, &status, &e.Received, &e.Sent, &e.Dropped, &e.Failed, &e.Filtered,
			&e.Requests, &e.RateLimits, &e.Queue, &e.InFlight, &e.Deferred, &e.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.At = time.UnixMilli(atMs)
		e.Status = stats.Health(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
