/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package ranking holds the leaderboard's pure rules: how names are
// normalized, which scores are accepted, and how records are ordered.
package ranking

import (
	"cmp"
	"slices"
	"time"
)

// TopN is the length of the leaderboard view.
const TopN = 10

// Record is one persisted score. Records are never updated or deleted.
type Record struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Compare orders records by score descending, then by creation time ascending.
func Compare(a, b Record) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// Less reports whether a ranks above b.
func Less(a, b Record) bool {
	return Compare(a, b) < 0
}

// Sort orders records in place. Records that compare equal keep their
// relative order.
func Sort(records []Record) {
	slices.SortStableFunc(records, Compare)
}

// Top returns a sorted copy of at most n records.
func Top(records []Record, n int) []Record {
	if n <= 0 {
		return []Record{}
	}

	out := slices.Clone(records)
	if out == nil {
		out = []Record{}
	}
	Sort(out)

	if len(out) > n {
		out = out[:n]
	}

	return out
}
