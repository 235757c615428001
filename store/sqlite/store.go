/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sqlite provides a SQLite-backed score store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Seednode/trexboard/ranking"
	"github.com/Seednode/trexboard/store"
	"github.com/Seednode/trexboard/store/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrRejected is returned when the table's row checks refuse an insert.
var ErrRejected = errors.New("score rejected by store constraints")

// Store persists score records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite score store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Top returns the best records, ties going to the earliest submission.
func (s *Store) Top(ctx context.Context, limit int) ([]ranking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, store.ErrUnconfigured
	}
	if limit <= 0 {
		return []ranking.Record{}, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT name, score, created_at
		   FROM scores
		  ORDER BY score DESC, created_at ASC, id ASC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list top scores: %w", err)
	}
	defer rows.Close()

	records := make([]ranking.Record, 0, limit)
	for rows.Next() {
		var record ranking.Record
		var createdAt int64
		if err := rows.Scan(&record.Name, &record.Score, &createdAt); err != nil {
			return nil, fmt.Errorf("list top scores: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list top scores: %w", err)
	}

	return records, nil
}

// Insert appends one score row.
func (s *Store) Insert(ctx context.Context, sub ranking.Submission) (ranking.Record, error) {
	if err := ctx.Err(); err != nil {
		return ranking.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return ranking.Record{}, store.ErrUnconfigured
	}

	createdAt := fromMillis(toMillis(s.now()))

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO scores (name, score, created_at) VALUES (?, ?, ?)`,
		sub.Name,
		sub.Score,
		toMillis(createdAt),
	)
	if err != nil {
		if isCheckViolation(err) {
			return ranking.Record{}, fmt.Errorf("insert score: %w", ErrRejected)
		}
		return ranking.Record{}, fmt.Errorf("insert score: %w", err)
	}

	return ranking.Record{
		Name:      sub.Name,
		Score:     sub.Score,
		CreatedAt: createdAt,
	}, nil
}

func isCheckViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_CHECK, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "check constraint failed")
}

var _ store.Store = (*Store)(nil)
