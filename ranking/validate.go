/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ranking

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// MaxScore is the highest score the leaderboard accepts.
const MaxScore = 999999

var (
	ErrMissingName     = errors.New("missing name")
	ErrInvalidScore    = errors.New("invalid score")
	ErrScoreOutOfRange = errors.New("score out of range")
)

// ValidationError is returned for user-correctable submission problems. Message
// is the text reported back to the submitting client.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, message string) error {
	return &ValidationError{Err: err, Message: message}
}

// Submission is a score that passed validation and may be persisted.
type Submission struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ValidateSubmission is the single acceptance gate for incoming scores. Both
// arguments are loosely typed values as decoded from a client payload.
func ValidateSubmission(name, score any) (Submission, error) {
	normalized := NormalizeName(NameString(name))
	if normalized == "" {
		return Submission{}, invalid(ErrMissingName, "Missing name")
	}

	value, ok := CoerceScore(score)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return Submission{}, invalid(ErrInvalidScore, "Invalid score")
	}

	truncated := math.Trunc(value)
	if truncated < 0 || truncated > MaxScore {
		return Submission{}, invalid(ErrScoreOutOfRange, "Score out of range")
	}

	return Submission{Name: normalized, Score: int(truncated)}, nil
}

// CoerceScore converts a decoded JSON value into a number. The second result is
// false when the value has no numeric reading at all.
func CoerceScore(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		return parseNumeric(string(t))
	case string:
		return parseNumeric(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil || strings.Contains(s, "_") {
				return 0, false
			}
			return float64(n), true
		}
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	// ParseFloat is laxer than a decimal literal: it takes "inf", "nan", hex
	// floats and digit separators.
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}

	return f, true
}
