package protocol

// SchemaDDL defines the SQLite schema for the Relay event log.
// Tables: events (committed transitions and escalations), failures
// (per-context failure history snapshots).
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Orchestrator lifecycle events: transitions, blocked escalations,
-- auto-resolutions, report and mode-switch warnings
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    from_role TEXT NOT NULL,
    to_role TEXT NOT NULL,
    context_id TEXT,
    message TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Failure history captured when a unit of work terminates or blocks
CREATE TABLE IF NOT EXISTS failures (
    id INTEGER PRIMARY KEY,
    context_id TEXT NOT NULL,
    role TEXT NOT NULL,
    reason TEXT NOT NULL,
    details TEXT,
    occurred_at TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_events_context ON events(context_id);
CREATE INDEX IF NOT EXISTS idx_failures_context ON failures(context_id);
`
