// Package eventlog provides SQLite-backed persistence for the Relay
// orchestrator's lifecycle events and failure history, plus read-only
// query access for relay-dash and the logs command.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	"relay/pkg/protocol"

	_ "modernc.org/sqlite" // SQLite driver
)

// Writer appends orchestrator events to the SQLite event log.
type Writer struct {
	db *sql.DB
}

// Open opens (or creates) the event log database and applies the schema.
// WAL mode keeps the dashboard's read-only connection from blocking
// writes.
func Open(dbPath string) (*Writer, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(protocol.SchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Writer{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (w *Writer) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Append records one lifecycle event.
func (w *Writer) Append(ctx context.Context, evType string, from, to protocol.Role, contextID, message string) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO events (type, from_role, to_role, context_id, message) VALUES (?, ?, ?, ?, ?)`,
		evType, string(from), string(to), contextID, message,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// RecordFailures snapshots a context's failure history. Call on terminal
// and blocked outcomes; the history is append-only on the context side,
// so a full snapshot per outcome is a faithful audit trail.
func (w *Writer) RecordFailures(ctx context.Context, hctx *protocol.HandoffContext) error {
	if hctx == nil || len(hctx.FailureHistory) == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failures tx: %w", err)
	}
	for _, f := range hctx.FailureHistory {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (context_id, role, reason, details, occurred_at) VALUES (?, ?, ?, ?, ?)`,
			hctx.ID, string(f.Role), f.Reason, f.Details, f.Timestamp.Format("2006-01-02 15:04:05"),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert failure record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failures tx: %w", err)
	}
	return nil
}
