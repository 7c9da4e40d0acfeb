package database

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverName = "sqlite3"
	MemoryPath = ":memory:"
)

var ErrEmptyPath = errors.New("empty database path")

// Open opens a sqlite database at path. The bridge writes from a single
// goroutine per side, so one connection keeps ":memory:" databases shared
// and avoids SQLITE_BUSY on files.
func Open(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}

	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
