package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db *sqlx.DB
}

// NewSQLiteClient opens and pings a SQLite database file
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, &ConnectionError{Driver: "sqlite", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: "sqlite", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle
func (c *SQLiteClient) GetDB() *sqlx.DB {
	return c.db
}
