package formstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

// Dialect selects placeholder and timestamp syntax for SQLKV.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLKV stores keys as rows of a two-column table. Works with lib/pq and
// mattn/go-sqlite3.
type SQLKV struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

func NewSQLKV(db *sql.DB, table string, dialect Dialect) (*SQLKV, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &SQLKV{db: db, table: table, dialect: dialect}, nil
}

// EnsureSchema creates the table if it does not exist.
func (s *SQLKV) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case DialectPostgres:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table)
	case DialectSQLite:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, s.table)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var query string
	if s.dialect == DialectPostgres {
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	} else {
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table)
	}

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	var query string
	if s.dialect == DialectPostgres {
		query = fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.table)
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, s.table)
	}
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

func (s *SQLKV) Remove(ctx context.Context, key string) error {
	var query string
	if s.dialect == DialectPostgres {
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	} else {
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table)
	}
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}
