/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ranking

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Rex", "Rex"},
		{"  Rex  ", "Rex"},
		{"Tiny\t\n  Rex", "Tiny Rex"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
		{"abcdefghijklmnopqrs  tuvwxyz", "abcdefghijklmnopqrs"},
		{"ñandú ñandú ñandú ñandú", "ñandú ñandú ñandú ña"},
		{"\ufeffRex\ufeff", "Rex"},
		{"Tiny\u00a0\u2003\u3000Rex", "Tiny Rex"},
		{"Tiny\u2028\u2029Rex", "Tiny Rex"},
		{"a\u0085b", "a\u0085b"},
		{"\u0085Rex", "\u0085Rex"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNameProperties(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		" a ",
		"a  b   c",
		" lead and trail ",
		strings.Repeat("x ", 30),
		strings.Repeat(" y", 30),
		"nineteen characters x",
		"日本語の名前はとても長いかもしれませんね本当に",
	}

	for _, in := range inputs {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName not idempotent for %q: %q then %q", in, once, twice)
		}
		if n := utf8.RuneCountInString(once); n > MaxNameLength {
			t.Errorf("NormalizeName(%q) has %d characters", in, n)
		}
		if strings.TrimSpace(once) != once {
			t.Errorf("NormalizeName(%q) = %q keeps outer whitespace", in, once)
		}
		if strings.Contains(once, "  ") {
			t.Errorf("NormalizeName(%q) = %q keeps doubled whitespace", in, once)
		}
	}
}

func TestValidateSubmission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		inName    any
		inScore   any
		wantErr   error
		wantName  string
		wantScore int
	}{
		{name: "integer", inName: "Rex", inScore: float64(120), wantName: "Rex", wantScore: 120},
		{name: "numeric string truncates", inName: "Rex", inScore: "42.9", wantName: "Rex", wantScore: 42},
		{name: "negative fraction truncates to zero", inName: "Rex", inScore: -0.5, wantName: "Rex", wantScore: 0},
		{name: "upper bound", inName: "Rex", inScore: float64(MaxScore), wantName: "Rex", wantScore: MaxScore},
		{name: "fraction above bound truncates", inName: "Rex", inScore: 999999.99, wantName: "Rex", wantScore: MaxScore},
		{name: "hex string", inName: "Rex", inScore: "0x10", wantName: "Rex", wantScore: 16},
		{name: "empty string is zero", inName: "Rex", inScore: "", wantName: "Rex", wantScore: 0},
		{name: "boolean", inName: "Rex", inScore: true, wantName: "Rex", wantScore: 1},
		{name: "name normalized", inName: "  Tiny   Rex ", inScore: 1.0, wantName: "Tiny Rex", wantScore: 1},
		{name: "numeric name", inName: float64(7), inScore: 1.0, wantName: "7", wantScore: 1},
		{name: "over range", inName: "Rex", inScore: float64(1000000), wantErr: ErrScoreOutOfRange},
		{name: "negative", inName: "Rex", inScore: float64(-1), wantErr: ErrScoreOutOfRange},
		{name: "word", inName: "Rex", inScore: "abc", wantErr: ErrInvalidScore},
		{name: "infinity", inName: "Rex", inScore: "Infinity", wantErr: ErrInvalidScore},
		{name: "go spelling of infinity", inName: "Rex", inScore: "inf", wantErr: ErrInvalidScore},
		{name: "absent score", inName: "Rex", inScore: nil, wantErr: ErrInvalidScore},
		{name: "object score", inName: "Rex", inScore: map[string]any{}, wantErr: ErrInvalidScore},
		{name: "blank name", inName: "   ", inScore: 10.0, wantErr: ErrMissingName},
		{name: "absent name", inName: nil, inScore: 10.0, wantErr: ErrMissingName},
		{name: "name checked first", inName: "", inScore: "abc", wantErr: ErrMissingName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSubmission(tt.inName, tt.inScore)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Message == "" {
					t.Fatalf("err = %#v, want *ValidationError with message", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName || got.Score != tt.wantScore {
				t.Fatalf("got %+v, want {%s %d}", got, tt.wantName, tt.wantScore)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	t.Parallel()

	_, err := ValidateSubmission("Rex", float64(1000000))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Message != "Score out of range" {
		t.Fatalf("message = %q, want %q", verr.Message, "Score out of range")
	}
}

func TestTopOrdersByScoreThenCreation(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	t1, t2, t3, t4 := base, base.Add(time.Second), base.Add(2*time.Second), base.Add(3*time.Second)

	records := []Record{
		{Name: "a", Score: 50, CreatedAt: t1},
		{Name: "b", Score: 80, CreatedAt: t3},
		{Name: "c", Score: 80, CreatedAt: t2},
		{Name: "d", Score: 30, CreatedAt: t4},
	}

	got := Top(records, TopN)

	want := []string{"c", "b", "a", "d"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, got[i].Name, name)
		}
	}
	if records[0].Name != "a" {
		t.Fatal("Top must not reorder its input")
	}
}

func TestTopLimits(t *testing.T) {
	t.Parallel()

	records := make([]Record, 0, 15)
	for i := 0; i < 15; i++ {
		records = append(records, Record{Name: "p", Score: i})
	}

	if got := Top(records, TopN); len(got) != TopN || got[0].Score != 14 {
		t.Fatalf("Top(15 records, 10) = %d records starting at %d", len(got), got[0].Score)
	}
	if got := Top(records, 0); got == nil || len(got) != 0 {
		t.Fatalf("Top(n=0) = %v, want empty slice", got)
	}
	if got := Top(nil, 3); got == nil || len(got) != 0 {
		t.Fatalf("Top(nil) = %v, want empty slice", got)
	}
}
