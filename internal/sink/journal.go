package sink

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ColonelBlimp/cwtone/internal/cw"
)

// Journal appends decoded events to a SQLite table for later review.
// Inserts are synchronous so rows keep the order the decoder produced them in.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the SQLite database at path and ensures the schema exists.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS decoded_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    letter TEXT,
    code TEXT,
    observed_at INTEGER NOT NULL
);`
	_, err := db.Exec(schema)
	return err
}

func (j *Journal) Write(out cw.DecodedOutput) error {
	e := NewEvent(out)
	_, err := j.db.Exec(`
INSERT INTO decoded_events (kind, letter, code, observed_at)
VALUES (?, ?, ?, ?)`,
		e.Kind,
		e.Character,
		e.Code,
		e.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	rows, err := j.db.Query(`
SELECT kind, letter, code, observed_at FROM (
    SELECT id, kind, letter, code, observed_at
    FROM decoded_events ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e  Event
			at int64
		)
		if err := rows.Scan(&e.Kind, &e.Character, &e.Code, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Timestamp = time.Unix(0, at).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
