package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"
	dbFileName = "leadterm.db"
)

// Store wraps the SQLite database and exposes higher-level helpers.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var (
	// ErrListingExists indicates a duplicate listing identifier.
	ErrListingExists = errors.New("listing already exists")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownTable is returned by InsertOne for tables the store does not own.
	ErrUnknownTable = errors.New("unknown table")
)

// Open bootstraps the SQLite store inside dataDir. An empty dataDir uses the
// user config directory.
func Open(ctx context.Context, dataDir string) (*Store, error) {
	path, err := resolveDBPath(dataDir)
	if err != nil {
		return nil, err
	}
	return OpenPath(ctx, path)
}

// OpenPath opens the database file at path, creating and migrating it if needed.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	// the DSN flag applies foreign keys to every pooled connection
	db, err := sql.Open(driverName, path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases DB resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func resolveDBPath(dataDir string) (string, error) {
	dir := strings.TrimSpace(dataDir)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil || base == "" {
			base = os.Getenv("HOME")
			if base == "" {
				return "", fmt.Errorf("cannot resolve data dir: %w", err)
			}
		}
		dir = filepath.Join(base, "leadterm")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create db dir: %w", err)
	}
	return filepath.Join(dir, dbFileName), nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
            id TEXT PRIMARY KEY,
            first_name TEXT NOT NULL,
            last_name TEXT,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            category TEXT NOT NULL,
            property_type TEXT,
            property_address TEXT,
            property_value REAL,
            nightly_rate REAL,
            platforms TEXT,
            furnishing TEXT,
            message TEXT,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS listings (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            city TEXT NOT NULL,
            neighborhood TEXT,
            property_type TEXT NOT NULL,
            nightly_rate REAL NOT NULL,
            description TEXT,
            amenities TEXT,
            bedrooms INTEGER,
            bathrooms INTEGER,
            guests INTEGER,
            rating REAL,
            lat REAL,
            lng REAL,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS favorites (
            owner TEXT NOT NULL,
            listing_id TEXT NOT NULL,
            created_at TEXT NOT NULL,
            PRIMARY KEY (owner, listing_id),
            FOREIGN KEY(listing_id) REFERENCES listings(id) ON DELETE CASCADE
        );`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nullIntPtr(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloatPtr(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "primary key")
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
