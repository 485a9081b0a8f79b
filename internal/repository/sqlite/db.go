package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens the snapshot database at path, creating it and its parent directory if needed.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db %s: %w", path, err)
	}

	// snapshot saves are serialized by the manager; one connection is enough
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// plans and sessions reference their calendar and user rows
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure snapshot db: %w", err)
	}

	return db, nil
}
