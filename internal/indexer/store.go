package indexer

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// ErrStore marks index database failures.
var ErrStore = errors.New("index store error")

// Row is one indexed checklist line. Due is an ISO date and stays empty for
// tasks whose date would only come from the fallback of last resort, so the
// index never freezes a "today" that goes stale overnight.
type Row struct {
	Path      string
	Line      int
	Text      string
	Due       string
	Completed bool
}

// Store persists the task index in SQLite via Turso/libSQL.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the index database at the given path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", ErrStore, err)
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStore, err)
	}

	// The libsql driver rejects row-returning statements through Exec, so
	// the PRAGMA (which reports the resulting mode) must go through Query.
	walRows, err := db.Query("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL mode: %v", ErrStore, err)
	}
	walRows.Close()

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			path       TEXT NOT NULL,
			line       INTEGER NOT NULL,
			text       TEXT NOT NULL,
			due        TEXT NOT NULL DEFAULT '',
			completed  INTEGER NOT NULL DEFAULT 0,
			indexed_at TEXT NOT NULL,
			PRIMARY KEY (path, line)
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrStore, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAll swaps the whole index for the given rows in one transaction.
func (s *Store) ReplaceAll(rows []Row) error {
	return s.replace("", rows)
}

// ReplaceNote swaps the rows of a single note in one transaction.
func (s *Store) ReplaceNote(path string, rows []Row) error {
	if path == "" {
		return fmt.Errorf("%w: empty note path", ErrStore)
	}
	return s.replace(path, rows)
}

func (s *Store) replace(path string, rows []Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrStore, err)
	}
	defer tx.Rollback()

	if path == "" {
		_, err = tx.Exec("DELETE FROM tasks")
	} else {
		_, err = tx.Exec("DELETE FROM tasks WHERE path = ?", path)
	}
	if err != nil {
		return fmt.Errorf("%w: clearing rows: %v", ErrStore, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := tx.Exec(
			"INSERT INTO tasks (path, line, text, due, completed, indexed_at) VALUES (?, ?, ?, ?, ?, ?)",
			r.Path, r.Line, r.Text, r.Due, boolToInt(r.Completed), now,
		); err != nil {
			return fmt.Errorf("%w: inserting row: %v", ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %v", ErrStore, err)
	}
	return nil
}

// All returns every indexed row ordered by path and line.
func (s *Store) All() ([]Row, error) {
	rows, err := s.db.Query("SELECT path, line, text, due, completed FROM tasks ORDER BY path, line")
	if err != nil {
		return nil, fmt.Errorf("%w: listing rows: %v", ErrStore, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var due any
		var completed int
		if err := rows.Scan(&r.Path, &r.Line, &r.Text, &due, &completed); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrStore, err)
		}
		// The libsql driver sniffs date-shaped TEXT into time.Time; format
		// it back to the ISO date that was stored.
		switch v := due.(type) {
		case time.Time:
			r.Due = v.Format("2006-01-02")
		case string:
			r.Due = v
		case []byte:
			r.Due = string(v)
		}
		r.Completed = completed != 0
		out = append(out, r)
	}

	if out == nil {
		out = []Row{}
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
