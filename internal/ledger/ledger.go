// Package ledger keeps a record of every invocation the ingestor handles.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one handled invocation
type Entry struct {
	TraceID    string
	Bucket     string
	Key        string
	Sender     string
	Brand      string
	StatusCode int
	Message    string
	Outputs    int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	Duration   time.Duration
}

// Recorder persists invocation entries
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

const schema = `CREATE TABLE IF NOT EXISTS invocations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id    TEXT NOT NULL,
	bucket      TEXT NOT NULL,
	object_key  TEXT NOT NULL,
	sender      TEXT NOT NULL,
	brand       TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	message     TEXT NOT NULL,
	outputs     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
)`

// SQLiteLedger stores entries in a SQLite database
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path
func OpenSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO invocations (trace_id, bucket, object_key, sender, brand, status_code, message, outputs, skipped, failed, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TraceID, e.Bucket, e.Key, e.Sender, e.Brand, e.StatusCode, e.Message,
		e.Outputs, e.Skipped, e.Failed, e.StartedAt.UTC().Format(time.RFC3339Nano), e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record invocation %s: %w", e.TraceID, err)
	}
	return nil
}

// Recent returns the latest n entries, newest first
func (l *SQLiteLedger) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT trace_id, bucket, object_key, sender, brand, status_code, message, outputs, skipped, failed, started_at, duration_ms
		 FROM invocations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&e.TraceID, &e.Bucket, &e.Key, &e.Sender, &e.Brand, &e.StatusCode, &e.Message,
			&e.Outputs, &e.Skipped, &e.Failed, &startedAt, &durationMS); err != nil {
			return nil, err
		}
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("started_at %q: %w", startedAt, err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
