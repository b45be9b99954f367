// internal/common/database/sqlite.go
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"swedana-forms/internal/common/config"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient wraps a single-file database on the local device.
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLite opens (and creates) the database file in WAL mode.
func NewSQLite(cfg config.SQLiteConfig) (*SQLiteClient, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	return &SQLiteClient{DB: db}, nil
}

func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
