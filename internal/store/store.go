package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version. Bump it whenever
// schema.sql changes in a way older builds cannot read.
const schemaVersion = 1

// ErrSchemaTooNew is returned by Open when the database was written by a
// build with a newer schema.
var ErrSchemaTooNew = errors.New("database schema is newer than this build")

// connPragmas configure every connection. WAL lets trace and replay read a
// database while play is still recording into it.
var connPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store records playback sessions in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the session database at path, creating it and its tables when
// missing. Opening an existing database is safe; opening one stamped with a
// newer schema fails with ErrSchemaTooNew.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// One connection: the recorder is the only writer and pragmas stay put.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	for _, pragma := range connPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, version, schemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for callers that need raw SQL, such as tests
// that tamper with recorded rows.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return value, nil
}
