package monitoring

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists request events in a SQLite database for ad-hoc querying.
// Rows hold metadata only; the prompt and the rewritten variants are never
// written here.
type Store struct {
	db *sql.DB
}

// OpenStore opens the telemetry database and creates the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate telemetry db: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS request_log (
		request_id      TEXT PRIMARY KEY,
		client_ip       TEXT NOT NULL,
		provider        TEXT,
		model           TEXT,
		prompt_length   INTEGER,
		prompt_tokens   INTEGER,
		response_tokens INTEGER,
		status_code     INTEGER NOT NULL,
		success         INTEGER NOT NULL,
		degraded        INTEGER NOT NULL DEFAULT 0,
		error_category  TEXT,
		upstream_ms     INTEGER,
		total_ms        INTEGER,
		created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_request_created ON request_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_request_category ON request_log(error_category)`)
	return err
}

// InsertRequest stores one request event.
func (s *Store) InsertRequest(event *RequestEvent) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO request_log
		(request_id, client_ip, provider, model, prompt_length, prompt_tokens,
		 response_tokens, status_code, success, degraded, error_category,
		 upstream_ms, total_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RequestID, event.ClientIP, event.Provider, event.Model,
		event.PromptLength, event.PromptTokens, event.ResponseTokens,
		event.StatusCode, event.Success, event.Degraded, event.ErrorCategory,
		event.UpstreamMs, event.TotalMs)
	return err
}

// CountByCategory returns request counts grouped by error category.
// Successful requests appear under the empty category.
func (s *Store) CountByCategory() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT error_category, COUNT(*) FROM request_log GROUP BY error_category`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var category sql.NullString
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category.String] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
