package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLite DB
type SQLiteDB struct {
	*sqlStore
	path string
}

func NewSQLiteDB(ctx context.Context, path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent requests.
	d.SetMaxOpenConns(1)

	s := &SQLiteDB{sqlStore: newSQLStore(d, sq.Question, isSQLiteUniqueViolation), path: path}
	if err := s.Init(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init(ctx context.Context) error {
	queries := []string{
		`PRAGMA foreign_keys = OFF;`,
		`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, email TEXT NOT NULL UNIQUE, password_hash TEXT NOT NULL, created_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS characters (seq INTEGER PRIMARY KEY AUTOINCREMENT, id TEXT NOT NULL UNIQUE, user_id TEXT NOT NULL, name TEXT NOT NULL, age INTEGER NOT NULL, gender TEXT NOT NULL, occupation TEXT NOT NULL, photos TEXT NOT NULL DEFAULT '[]', relations TEXT NOT NULL DEFAULT '[]', properties TEXT NOT NULL DEFAULT '[]', created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS relations (seq INTEGER PRIMARY KEY AUTOINCREMENT, id TEXT NOT NULL UNIQUE, name TEXT NOT NULL, description TEXT NOT NULL DEFAULT '');`,
		`CREATE TABLE IF NOT EXISTS properties (seq INTEGER PRIMARY KEY AUTOINCREMENT, id TEXT NOT NULL UNIQUE, name TEXT NOT NULL, value TEXT NOT NULL, description TEXT NOT NULL DEFAULT '');`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
