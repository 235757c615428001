/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package supabase reads and appends scores through a hosted PostgREST
// endpoint, as exposed by a Supabase project.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/trexboard/ranking"
	"github.com/Seednode/trexboard/store"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	table        = "scores"
	maxReplySize = 1 << 20
)

// Store talks to the scores table of a Supabase project.
type Store struct {
	endpoint string
	key      string
	client   *http.Client
}

// Open returns a store for the project at projectURL, authenticated with key.
// It returns store.ErrUnconfigured if either value is missing.
func Open(projectURL, key string, client *http.Client) (*Store, error) {
	projectURL = strings.TrimSpace(projectURL)
	key = strings.TrimSpace(key)
	if projectURL == "" || key == "" {
		return nil, store.ErrUnconfigured
	}

	base, err := url.Parse(projectURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", projectURL)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Store{
		endpoint: strings.TrimSuffix(base.String(), "/") + "/rest/v1/" + table,
		key:      key,
		client:   client,
	}, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Top(ctx context.Context, limit int) ([]ranking.Record, error) {
	if limit <= 0 {
		return []ranking.Record{}, nil
	}

	query := url.Values{}
	query.Set("select", "name,score,created_at")
	query.Set("order", "score.desc,created_at.asc")
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("list top scores: %w", err)
	}

	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("list top scores: unexpected reply")
	}

	records := make([]ranking.Record, 0, limit)
	var parseErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		record, err := parseRow(row)
		if err != nil {
			parseErr = err
			return false
		}
		records = append(records, record)
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("list top scores: %w", parseErr)
	}

	return records, nil
}

func (s *Store) Insert(ctx context.Context, sub ranking.Submission) (ranking.Record, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "name", sub.Name)
	if err != nil {
		return ranking.Record{}, err
	}
	payload, err = sjson.SetBytes(payload, "score", sub.Score)
	if err != nil {
		return ranking.Record{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ranking.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	body, err := s.do(req)
	if err != nil {
		return ranking.Record{}, fmt.Errorf("insert score: %w", err)
	}

	row := gjson.GetBytes(body, "0")
	if !row.Exists() {
		// Inserted without a representation; the clock here is the best we have.
		return ranking.Record{Name: sub.Name, Score: sub.Score, CreatedAt: time.Now().UTC()}, nil
	}

	return parseRow(row)
}

func (s *Store) do(req *http.Request) ([]byte, error) {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: replyMessage(resp.StatusCode, body)}
	}

	return body, nil
}

// Error carries the message PostgREST reported for a failed request.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func replyMessage(status int, body []byte) string {
	for _, field := range []string{"message", "error_description", "error", "msg"} {
		if v := gjson.GetBytes(body, field); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return http.StatusText(status)
}

func parseRow(row gjson.Result) (ranking.Record, error) {
	name := row.Get("name")
	score := row.Get("score")
	if name.Type != gjson.String || score.Type != gjson.Number {
		return ranking.Record{}, fmt.Errorf("malformed score row %s", row.Raw)
	}

	record := ranking.Record{
		Name:  name.String(),
		Score: int(score.Int()),
	}

	if raw := row.Get("created_at").String(); raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return ranking.Record{}, fmt.Errorf("parse created_at %q: %w", raw, err)
		}
		record.CreatedAt = createdAt.UTC()
	}

	return record, nil
}

var _ store.Store = (*Store)(nil)
