// Package storage keeps the dictation history in a local SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the history database.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the history database under dataDir and migrates
// the schema.
func Open(dataDir string) (*DB, error) {
	return OpenPath(filepath.Join(dataDir, "history.db"))
}

// OpenPath opens a database at an explicit path.
func OpenPath(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dictations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,

		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		language TEXT NOT NULL,

		duration_ms INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,

		text TEXT NOT NULL,
		word_count INTEGER NOT NULL,

		success BOOLEAN NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_dictations_created_at ON dictations(created_at);
	CREATE INDEX IF NOT EXISTS idx_dictations_provider ON dictations(provider);
	`

	_, err := db.conn.Exec(schema)
	return err
}
