/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Seednode/trexboard/ranking"
	"github.com/tidwall/gjson"
)

const maxReplySize = 1 << 20

// Remote is a backend that goes through the submission service.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote returns a backend for the service rooted at baseURL. Requests are
// bounded only by the caller's context.
func NewRemote(baseURL string, client *http.Client) (*Remote, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https: %q", baseURL)
	}

	if client == nil {
		client = &http.Client{}
	}

	return &Remote{
		base:   strings.TrimSuffix(u.String(), "/"),
		client: client,
	}, nil
}

func (r *Remote) Top(ctx context.Context, n int) ([]ranking.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/leaderboard?limit="+strconv.Itoa(n), nil)
	if err != nil {
		return nil, err
	}

	body, err := r.do(req)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Scores []ranking.Record `json:"scores"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	if reply.Scores == nil {
		reply.Scores = []ranking.Record{}
	}

	return reply.Scores, nil
}

func (r *Remote) Insert(ctx context.Context, name string, score float64) error {
	payload, err := json.Marshal(struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}{name, score})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/submit-score", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := r.do(req)
	if err != nil {
		return err
	}

	if !gjson.GetBytes(body, "ok").Bool() {
		return errors.New("submission was not acknowledged")
	}

	return nil
}

// ServiceError is a non-2xx reply from the submission service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap lets callers match a service with no store behind it against
// ErrUnconfigured.
func (e *ServiceError) Unwrap() error {
	if e.Status == http.StatusInternalServerError && strings.HasPrefix(e.Message, "Missing SUPABASE_URL") {
		return ErrUnconfigured
	}
	return nil
}

func (r *Remote) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := gjson.GetBytes(body, "error").String()
		if message == "" {
			message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, &ServiceError{Status: resp.StatusCode, Message: message}
	}

	return body, nil
}

var (
	_ Backend = (*Remote)(nil)
	_ Backend = Direct{}
)
