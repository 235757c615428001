/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "github.com/Seednode/trexboard/ranking"

const (
	emptyBoardText = "No scores yet."
	anonymousName  = "Anonymous"
)

// Highlight marks the record this session submitted last.
type Highlight struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Row is one rendered leaderboard line.
type Row struct {
	Rank        int    `json:"rank,omitempty"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Highlighted bool   `json:"highlighted,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Render numbers records from 1 and marks the row matching hl. Matching is by
// exact name and score, so identical submissions from two players both light up.
func Render(records []ranking.Record, hl *Highlight) []Row {
	if len(records) == 0 {
		return []Row{{Name: emptyBoardText, Placeholder: true}}
	}

	rows := make([]Row, 0, len(records))
	for i, record := range records {
		name := record.Name
		if name == "" {
			name = anonymousName
		}

		rows = append(rows, Row{
			Rank:        i + 1,
			Name:        name,
			Score:       record.Score,
			Highlighted: hl != nil && hl.Name != "" && record.Name == hl.Name && record.Score == hl.Score,
		})
	}

	return rows
}
