/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store defines the append-only score table the leaderboard reads
// from and writes to. Concrete backends live in subpackages.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/trexboard/ranking"
)

// ErrUnconfigured is returned when no backend has been set up.
var ErrUnconfigured = errors.New("score store is not configured")

// Store is an append-only table of score records.
type Store interface {
	// Top returns at most limit records, best first.
	Top(ctx context.Context, limit int) ([]ranking.Record, error)
	// Insert appends one validated submission. The store assigns CreatedAt.
	Insert(ctx context.Context, sub ranking.Submission) (ranking.Record, error)
	Close() error
}

// Memory keeps records in process. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []ranking.Record
	last    time.Time
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Top(ctx context.Context, limit int) ([]ranking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return ranking.Top(m.records, limit), nil
}

func (m *Memory) Insert(ctx context.Context, sub ranking.Submission) (ranking.Record, error) {
	if err := ctx.Err(); err != nil {
		return ranking.Record{}, err
	}
	if sub.Name == "" {
		return ranking.Record{}, ranking.ErrMissingName
	}
	if sub.Score < 0 || sub.Score > ranking.MaxScore {
		return ranking.Record{}, ranking.ErrScoreOutOfRange
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Creation times are strictly increasing so ties resolve by insert order.
	createdAt := m.now().UTC()
	if !createdAt.After(m.last) {
		createdAt = m.last.Add(time.Microsecond)
	}
	m.last = createdAt

	record := ranking.Record{
		Name:      sub.Name,
		Score:     sub.Score,
		CreatedAt: createdAt,
	}
	m.records = append(m.records, record)

	return record, nil
}

func (m *Memory) Close() error {
	return nil
}

var _ Store = (*Memory)(nil)
