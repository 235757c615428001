/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/trexboard/ranking"
	"github.com/Seednode/trexboard/store"
	"github.com/Seednode/trexboard/store/supabase"
	"github.com/julienschmidt/httprouter"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	maxSubmitBody        = 16 << 10
	missingConfigMessage = "Missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY"

	corsAllowHeaders   = "authorization, x-client-info, apikey, content-type"
	submitMethods      = "POST, OPTIONS"
	leaderboardMethods = "GET, OPTIONS"
)

func corsHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
	w.Header().Set("Access-Control-Allow-Methods", methods)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) (int, error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)

	return w.Write(body)
}

func errorBody(message string) []byte {
	body, err := sjson.SetBytes([]byte(`{}`), "error", message)
	if err != nil {
		return []byte(`{"error":"Internal error"}`)
	}
	return body
}

func replyError(w http.ResponseWriter, status int, message string, errs chan<- error) {
	if _, err := writeJSON(w, status, errorBody(message)); err != nil {
		errs <- err
	}
}

func servePreflight(cfg *Config, methods string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		corsHeaders(w, methods)
		securityHeaders(cfg, w)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// submissionFields pulls name and score out of a request body. ok is false
// when the body is not JSON at all.
func submissionFields(body []byte) (name, score any, ok bool) {
	if !gjson.ValidBytes(body) {
		return nil, nil, false
	}

	payload := gjson.ParseBytes(body)
	if !payload.IsObject() {
		return nil, nil, true
	}

	return payload.Get("name").Value(), payload.Get("score").Value(), true
}

func serveSubmitScore(cfg *Config, scores store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		corsHeaders(w, submitMethods)
		securityHeaders(cfg, w)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmitBody))
		if err != nil {
			replyError(w, http.StatusBadRequest, "Invalid JSON", errs)

			return
		}

		name, score, ok := submissionFields(body)
		if !ok {
			replyError(w, http.StatusBadRequest, "Invalid JSON", errs)

			return
		}

		sub, err := ranking.ValidateSubmission(name, score)
		if err != nil {
			var verr *ranking.ValidationError
			if !errors.As(err, &verr) {
				replyError(w, http.StatusBadRequest, err.Error(), errs)

				return
			}

			logf(cfg, "SUBMIT: Rejected submission from %s (%s)", realIP(r), verr.Message)

			replyError(w, http.StatusBadRequest, verr.Message, errs)

			return
		}

		if scores == nil {
			replyError(w, http.StatusInternalServerError, missingConfigMessage, errs)

			return
		}

		if _, err := scores.Insert(r.Context(), sub); err != nil {
			if errors.Is(err, store.ErrUnconfigured) {
				replyError(w, http.StatusInternalServerError, missingConfigMessage, errs)

				return
			}

			logf(cfg, "SUBMIT: Store refused %q/%d from %s: %v", sub.Name, sub.Score, realIP(r), err)

			message := err.Error()
			var pgErr *supabase.Error
			if errors.As(err, &pgErr) {
				message = pgErr.Message
			}

			replyError(w, http.StatusBadRequest, message, errs)

			return
		}

		written, err := writeJSON(w, http.StatusOK, []byte(`{"ok":true}`))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SUBMIT: Recorded %q/%d (%s) from %s in %s",
			sub.Name,
			sub.Score,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// leaderboardLimit reads ?limit=, clamped to the size of the board.
func leaderboardLimit(r *http.Request) int {
	limit, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil {
		return ranking.TopN
	}

	return min(max(limit, 1), ranking.TopN)
}

func serveLeaderboard(cfg *Config, scores store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		corsHeaders(w, leaderboardMethods)
		securityHeaders(cfg, w)

		if scores == nil {
			replyError(w, http.StatusInternalServerError, missingConfigMessage, errs)

			return
		}

		records, err := scores.Top(r.Context(), leaderboardLimit(r))
		if err != nil {
			logf(cfg, "LEADERBOARD: Store error for %s: %v", realIP(r), err)

			replyError(w, http.StatusBadGateway, err.Error(), errs)

			return
		}

		body, err := json.Marshal(struct {
			Scores []ranking.Record `json:"scores"`
		}{ranking.Top(records, len(records))})
		if err != nil {
			errs <- err

			replyError(w, http.StatusInternalServerError, "Internal error", errs)

			return
		}

		written, err := writeJSON(w, http.StatusOK, body)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "LEADERBOARD: %d rows (%s) to %s in %s",
			len(records),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveMethodNotAllowed answers JSON for the API routes and plain text
// everywhere else.
func serveMethodNotAllowed(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, cfg.prefix)

		securityHeaders(cfg, w)

		switch path {
		case "/submit-score":
			corsHeaders(w, submitMethods)
		case "/leaderboard":
			corsHeaders(w, leaderboardMethods)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		_, _ = writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	}
}

func registerScoreAPI(cfg *Config, mux *httprouter.Router, scores store.Store, errs chan<- error) {
	mux.POST(cfg.prefix+"/submit-score", serveSubmitScore(cfg, scores, errs))
	mux.OPTIONS(cfg.prefix+"/submit-score", servePreflight(cfg, submitMethods))

	mux.GET(cfg.prefix+"/leaderboard", serveLeaderboard(cfg, scores, errs))
	mux.OPTIONS(cfg.prefix+"/leaderboard", servePreflight(cfg, leaderboardMethods))

	mux.MethodNotAllowed = serveMethodNotAllowed(cfg)
}
