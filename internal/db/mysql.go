package db

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sqlx.DB
}

// NewMySQLClient opens and pings a MySQL connection
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	db, err := sqlx.Open("mysql", connString)
	if err != nil {
		return nil, &ConnectionError{Driver: "mysql", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: "mysql", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle
func (c *MySQLClient) GetDB() *sqlx.DB {
	return c.db
}

// ParseDatabaseName extracts the database name from a MySQL DSN
func ParseDatabaseName(connString string) (string, error) {
	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("no database name in MySQL DSN")
	}
	return cfg.DBName, nil
}
