// Package datastore handles database operations for companies, sources,
// and their many-to-many association.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // registers the postgres driver
)

const (
	dbPingTimeout     = 5 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

// Shared datastore errors, mapped to HTTP statuses at the handler layer.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateName = errors.New("name already exists")
)

// Open connects to Postgres, applies pool limits, and verifies the
// connection with a bounded ping.
func Open(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("INFO (Datastore): Database connection successful")
	return db, nil
}
