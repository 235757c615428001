/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// Event is input delivered to a Controller by the page or the game.
type Event interface {
	event()
}

// Key identifies a pressed key by what the overlay cares about.
type Key string

const (
	KeySpace Key = "space"
	KeyUp    Key = "up"
)

// StartsGame reports whether the key is one of the start keys.
func (k Key) StartsGame() bool {
	return k == KeySpace || k == KeyUp
}

// NameInput is sent on every edit of the name field.
type NameInput struct {
	Value string
}

// KeyDown is a key press outside the game's own handling. NameFocused is set
// while the name field has focus.
type KeyDown struct {
	Key         Key
	NameFocused bool
}

// StartClicked is the start button, carrying the name field's contents.
type StartClicked struct {
	Value string
}

// GameOverEvent is raised by the game with the final score.
type GameOverEvent struct {
	Score float64
}

// RestartEvent is raised by the game when a new run is set up.
type RestartEvent struct{}

// RefreshEvent asks for a fresh leaderboard.
type RefreshEvent struct{}

func (NameInput) event()     {}
func (KeyDown) event()       {}
func (StartClicked) event()  {}
func (GameOverEvent) event() {}
func (RestartEvent) event()  {}
func (RefreshEvent) event()  {}
