// Package store handles all database interactions. It is the data access
// layer, keeping SQL queries separate from the refresh logic.
package store

import (
	"database/sql"
	"time"
)

// Store provides all functions to interact with the database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
