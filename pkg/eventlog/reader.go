package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Event represents a single event from the orchestrator log.
type Event struct {
	ID        int64
	Type      string
	FromRole  string
	ToRole    string
	ContextID string
	Message   string
	CreatedAt time.Time
}

// QueryOpts specifies filter criteria for querying events.
type QueryOpts struct {
	// ContextID filters events to a specific unit of work.
	ContextID string

	// EventType filters to a specific event type (e.g., "transition", "blocked").
	EventType string

	// After filters events created after this time (inclusive).
	After *time.Time

	// Before filters events created before this time (inclusive).
	Before *time.Time

	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// Reader provides read-only access to the orchestrator event log.
type Reader struct {
	db *sql.DB
}

// NewReader opens the event log database in read-only mode with WAL.
// Returns an error if the database doesn't exist or cannot be opened.
func NewReader(dbPath string) (*Reader, error) {
	// Verify database file exists before attempting to open
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	// Open read-only with WAL to avoid blocking the orchestrator
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// QueryEvents retrieves events matching the given filter criteria,
// newest first. Returns an empty slice if no events match.
func (r *Reader) QueryEvents(ctx context.Context, opts QueryOpts) ([]Event, error) {
	query, args := buildQuery(opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Type, &e.FromRole, &e.ToRole, &e.ContextID, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if t, perr := time.Parse("2006-01-02 15:04:05", createdAt); perr == nil {
			e.CreatedAt = t
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LatestContextID returns the context ID of the most recent event, or
// empty when the log is empty. The status command uses it to find the
// active unit of work.
func (r *Reader) LatestContextID(ctx context.Context) (string, error) {
	var id sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT context_id FROM events ORDER BY id DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest context: %w", err)
	}
	return id.String, nil
}

func buildQuery(opts QueryOpts) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, type, from_role, to_role, COALESCE(context_id, ''), COALESCE(message, ''), created_at FROM events`)

	var clauses []string
	var args []any
	if opts.ContextID != "" {
		clauses = append(clauses, "context_id = ?")
		args = append(args, opts.ContextID)
	}
	if opts.EventType != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, opts.EventType)
	}
	if opts.After != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, opts.After.UTC().Format("2006-01-02 15:04:05"))
	}
	if opts.Before != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, opts.Before.UTC().Format("2006-01-02 15:04:05"))
	}
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY id DESC")
	if opts.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}
	return sb.String(), args
}
