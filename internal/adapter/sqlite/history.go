package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/fetchd/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    gid         TEXT NOT NULL,
    owner       INTEGER NOT NULL,
    name        TEXT NOT NULL,
    state       TEXT NOT NULL,
    error       TEXT,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_downloads_owner ON downloads(owner);
CREATE INDEX IF NOT EXISTS idx_downloads_finished ON downloads(finished_at);
`

// History implements domain.History using SQLite. It is an append-only
// audit of terminal jobs; live job state never touches it.
type History struct {
	db *sql.DB
}

// New creates a history store, initializing the schema if needed.
func New(dbPath string) (*History, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Append records one terminal job.
func (h *History) Append(ctx context.Context, e domain.HistoryEntry) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO downloads (gid, owner, name, state, error, total_bytes, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GID, e.Owner, e.Name, string(e.State), e.Error, e.TotalBytes, e.StartedAt, e.FinishedAt,
	)
	return err
}

// Recent returns the most recently finished entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT gid, owner, name, state, COALESCE(error, ''), total_bytes, started_at, finished_at
		 FROM downloads ORDER BY finished_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var state string
		var started, finished time.Time
		if err := rows.Scan(&e.GID, &e.Owner, &e.Name, &state, &e.Error, &e.TotalBytes, &started, &finished); err != nil {
			return nil, err
		}
		e.State = domain.JobState(state)
		e.StartedAt = started
		e.FinishedAt = finished
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
