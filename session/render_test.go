/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"testing"

	"github.com/Seednode/trexboard/ranking"
)

func TestRenderEmptyBoard(t *testing.T) {
	t.Parallel()

	rows := Render(nil, &Highlight{Name: "Rex", Score: 1})
	if len(rows) != 1 || !rows[0].Placeholder || rows[0].Name != emptyBoardText {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Highlighted {
		t.Fatal("placeholder must never be highlighted")
	}
}

func TestRenderNumbersAndHighlightsExactMatch(t *testing.T) {
	t.Parallel()

	records := []ranking.Record{
		{Name: "Rex", Score: 130},
		{Name: "Rex", Score: 120},
		{Name: "rex", Score: 120},
		{Name: "", Score: 100},
	}

	rows := Render(records, &Highlight{Name: "Rex", Score: 120})

	for i, row := range rows {
		if row.Rank != i+1 {
			t.Fatalf("row %d rank = %d", i, row.Rank)
		}
		if want := i == 1; row.Highlighted != want {
			t.Fatalf("row %d highlighted = %v, want %v", i, row.Highlighted, want)
		}
	}
	if rows[3].Name != anonymousName {
		t.Fatalf("blank name rendered as %q", rows[3].Name)
	}
}

func TestRenderWithoutHighlight(t *testing.T) {
	t.Parallel()

	for _, row := range Render([]ranking.Record{{Name: "Rex", Score: 0}}, nil) {
		if row.Highlighted {
			t.Fatalf("row %+v highlighted without a highlight", row)
		}
	}
}
