/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package board is the leaderboard client: it fetches ranked views and submits
// finished games, talking either to a store directly or to the submission
// service over HTTP.
package board

import (
	"context"
	"errors"

	"github.com/Seednode/trexboard/ranking"
	"github.com/Seednode/trexboard/store"
)

// ErrUnconfigured is returned by FetchTop when the client has no backend.
var ErrUnconfigured = store.ErrUnconfigured

// Reason explains why a submission was not accepted.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonMissingName    Reason = "missing_name"
	ReasonMissingBackend Reason = "missing_backend"
	ReasonError          Reason = "error"
)

// SubmitResult is the outcome of one submission attempt.
type SubmitResult struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Backend is where scores are read from and written to.
type Backend interface {
	Top(ctx context.Context, n int) ([]ranking.Record, error)
	Insert(ctx context.Context, name string, score float64) error
}

// Client runs leaderboard operations against a backend. A Client without a
// backend reports itself as unconfigured instead of failing.
type Client struct {
	backend Backend
}

// New returns a client for backend, which may be nil.
func New(backend Backend) *Client {
	return &Client{backend: backend}
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.backend != nil
}

// FetchTop returns the best n records. The slice is never nil; on failure it
// is empty and the error says why.
func (c *Client) FetchTop(ctx context.Context, n int) ([]ranking.Record, error) {
	if !c.Configured() {
		return []ranking.Record{}, ErrUnconfigured
	}
	if n <= 0 {
		return []ranking.Record{}, nil
	}

	records, err := c.backend.Top(ctx, n)
	if err != nil {
		return []ranking.Record{}, err
	}

	return ranking.Top(records, n), nil
}

// FetchTopScore returns the single best score, if there is one.
func (c *Client) FetchTopScore(ctx context.Context) (int, bool) {
	records, err := c.FetchTop(ctx, 1)
	if err != nil || len(records) == 0 {
		return 0, false
	}

	return records[0].Score, true
}

// Submit tries once to persist a finished game.
func (c *Client) Submit(ctx context.Context, name string, score float64) SubmitResult {
	if ranking.NormalizeName(name) == "" {
		return SubmitResult{Reason: ReasonMissingName}
	}
	if !c.Configured() {
		return SubmitResult{Reason: ReasonMissingBackend}
	}

	if err := c.backend.Insert(ctx, name, score); err != nil {
		if errors.Is(err, ErrUnconfigured) {
			return SubmitResult{Reason: ReasonMissingBackend}
		}
		return SubmitResult{Reason: ReasonError, Message: errorMessage(err)}
	}

	return SubmitResult{OK: true}
}

// LoadStatus is the status line shown after a FetchTop call.
func LoadStatus(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnconfigured):
		return DisabledStatus
	default:
		return "Failed to load leaderboard: " + errorMessage(err)
	}
}

// DisabledStatus is shown whenever the leaderboard has no backend.
const DisabledStatus = "Leaderboard disabled (missing backend config)."

func errorMessage(err error) string {
	var verr *ranking.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

// Direct is a backend that writes straight into a store. Inserts go through
// the same validation as the submission service.
type Direct struct {
	Store store.Store
}

func (d Direct) Top(ctx context.Context, n int) ([]ranking.Record, error) {
	return d.Store.Top(ctx, n)
}

func (d Direct) Insert(ctx context.Context, name string, score float64) error {
	sub, err := ranking.ValidateSubmission(name, score)
	if err != nil {
		return err
	}

	_, err = d.Store.Insert(ctx, sub)
	return err
}
