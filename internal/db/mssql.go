package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
)

// MSSQLClient manages the connection to SQL Server
type MSSQLClient struct {
	db *sqlx.DB
}

// NewMSSQLClient opens and pings a SQL Server connection.
// connString is a sqlserver:// URL as understood by go-mssqldb.
func NewMSSQLClient(ctx context.Context, connString string) (*MSSQLClient, error) {
	db, err := sqlx.Open("sqlserver", connString)
	if err != nil {
		return nil, &ConnectionError{Driver: "sqlserver", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: "sqlserver", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &MSSQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MSSQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle
func (c *MSSQLClient) GetDB() *sqlx.DB {
	return c.db
}
