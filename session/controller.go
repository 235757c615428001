/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session drives the leaderboard overlay around a running game: name
// entry, start gating, game-over submission and leaderboard refreshes.
package session

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/Seednode/trexboard/board"
	"github.com/Seednode/trexboard/ranking"
)

// State is the overlay's position in the play cycle.
type State int

const (
	AwaitingName State = iota
	Ready
	Playing
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingName:
		return "awaiting_name"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	startTitle    = "Press Space to start"
	gameOverTitle = "Game Over"
	restartHint   = "Press Space to restart."
	nameRequired  = "Enter your name first."

	submittingStatus  = "Submitting score..."
	submittedStatus   = "Score submitted."
	noNameStatus      = "Enter your name to submit scores."
	submitFailedLabel = "Failed to submit score: "
	loadingStatus     = "Loading leaderboard..."
)

// Board is the part of the leaderboard client a session uses.
type Board interface {
	FetchTop(ctx context.Context, n int) ([]ranking.Record, error)
	FetchTopScore(ctx context.Context) (int, bool)
	Submit(ctx context.Context, name string, score float64) board.SubmitResult
}

// Game is the running game as seen from the overlay.
type Game interface {
	// Start begins play.
	Start()
	// SetHighScore shows a new best score. Values only ever increase.
	SetHighScore(score int)
}

type nopGame struct{}

func (nopGame) Start()           {}
func (nopGame) SetHighScore(int) {}

// View is a snapshot of everything the overlay displays.
type View struct {
	State              State  `json:"state"`
	OverlayVisible     bool   `json:"overlay_visible"`
	Title              string `json:"title"`
	Status             string `json:"status"`
	SubmitStatus       string `json:"submit_status"`
	LeaderboardVisible bool   `json:"leaderboard_visible"`
	LeaderboardStatus  string `json:"leaderboard_status"`
	Rows               []Row  `json:"rows"`
	NameField          string `json:"name_field"`
	NameSet            bool   `json:"name_set"`
	NameSaved          bool   `json:"name_saved"`
	FocusName          bool   `json:"focus_name"`
	HighScore          int    `json:"high_score"`
}

// Controller owns one player's overlay. All state is touched only from the
// goroutine running Run; store calls run detached and report back through it.
type Controller struct {
	board    Board
	game     Game
	identity *Identity
	publish  func(View)

	events  chan Event
	results chan func()

	view      View
	highlight *Highlight
	round     uint64
	fetches   atomic.Uint64
	shownSeq  uint64
}

// New returns a controller in its load state. publish receives a copy of the
// view after every change and must not block for long.
func New(b Board, g Game, identity *Identity, publish func(View)) *Controller {
	if identity == nil {
		identity = LoadIdentity(nil)
	}
	if g == nil {
		g = nopGame{}
	}
	if publish == nil {
		publish = func(View) {}
	}

	c := &Controller{
		board:    b,
		game:     g,
		identity: identity,
		publish:  publish,
		events:   make(chan Event, 16),
		results:  make(chan func(), 16),
	}

	c.view = View{
		State:          AwaitingName,
		OverlayVisible: true,
		Title:          startTitle,
		Rows:           Render(nil, nil),
		NameField:      identity.Name(),
	}
	c.syncName()

	return c
}

// Events is where the game and the page deliver input.
func (c *Controller) Events() chan<- Event {
	return c.events
}

// Run processes events until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.emit()

	c.detach(ctx, func(ctx context.Context) func() {
		score, ok := c.board.FetchTopScore(ctx)
		return func() {
			if ok {
				c.mergeHighScore(score)
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.view.FocusName = false
			c.handle(ctx, ev)
			c.emit()
		case apply := <-c.results:
			c.view.FocusName = false
			apply()
			c.emit()
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case NameInput:
		c.view.NameField = ranking.NormalizeName(ev.Value)

	case KeyDown:
		c.keyDown(ev)

	case StartClicked:
		if c.view.State == Playing {
			// The run already has its name.
			return
		}
		c.view.NameField = ranking.NormalizeName(ev.Value)
		c.identity.Set(c.view.NameField)
		c.syncName()
		if c.view.State == GameOver {
			c.resetOverlay()
		}
		c.tryStart()

	case GameOverEvent:
		c.gameOver(ctx, ev.Score)

	case RestartEvent:
		c.resetOverlay()

	case RefreshEvent:
		c.view.LeaderboardVisible = true
		c.refresh(ctx, c.round)
	}
}

func (c *Controller) keyDown(ev KeyDown) {
	// Keys typed into the name field belong to the field.
	if ev.NameFocused || !c.view.OverlayVisible || !ev.Key.StartsGame() {
		return
	}

	if c.identity.Name() == "" {
		c.askForName()
		return
	}

	if c.view.State == GameOver {
		// The game restarts itself and reports back with a RestartEvent.
		return
	}

	c.tryStart()
}

func (c *Controller) askForName() {
	c.view.Status = nameRequired
	c.view.FocusName = true
}

func (c *Controller) tryStart() {
	if c.identity.Name() == "" {
		c.askForName()
		return
	}

	c.view.OverlayVisible = false
	c.view.Status = ""
	c.view.State = Playing
	c.game.Start()
}

func (c *Controller) gameOver(ctx context.Context, score float64) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return
	}

	c.round++
	round := c.round
	name := c.identity.Name()

	c.view.State = GameOver
	c.view.OverlayVisible = true
	c.view.LeaderboardVisible = true
	c.view.Title = gameOverTitle
	c.view.Status = restartHint
	c.view.SubmitStatus = ""
	if name != "" {
		c.view.SubmitStatus = submittingStatus
	}

	c.detach(ctx, func(ctx context.Context) func() {
		result := c.board.Submit(ctx, name, score)
		c.post(ctx, func() {
			c.applySubmit(round, name, score, result)
		})
		return c.fetch(ctx, round)
	})
}

func (c *Controller) applySubmit(round uint64, name string, score float64, result board.SubmitResult) {
	if result.OK {
		c.mergeHighScore(int(math.Trunc(score)))
	}
	if round != c.round {
		return
	}

	switch {
	case result.OK:
		c.view.SubmitStatus = submittedStatus
		c.highlight = &Highlight{Name: name, Score: int(math.Trunc(score))}
	case result.Reason == board.ReasonMissingName:
		c.view.SubmitStatus = noNameStatus
	case result.Reason == board.ReasonMissingBackend:
		c.view.SubmitStatus = board.DisabledStatus
	default:
		c.view.SubmitStatus = submitFailedLabel + result.Message
	}
}

func (c *Controller) refresh(ctx context.Context, round uint64) {
	c.detach(ctx, func(ctx context.Context) func() {
		return c.fetch(ctx, round)
	})
}

// fetch runs on a detached goroutine and returns the update to apply.
func (c *Controller) fetch(ctx context.Context, round uint64) func() {
	seq := c.fetches.Add(1)
	c.post(ctx, func() {
		if round == c.round && seq > c.shownSeq {
			c.view.LeaderboardStatus = loadingStatus
		}
	})

	records, err := c.board.FetchTop(ctx, ranking.TopN)

	return func() {
		// An older fetch must not replace a newer one.
		if seq < c.shownSeq {
			return
		}
		c.shownSeq = seq
		c.view.Rows = Render(records, c.highlight)
		if round == c.round {
			c.view.LeaderboardStatus = board.LoadStatus(err)
		}
	}
}

func (c *Controller) resetOverlay() {
	c.round++
	c.view.OverlayVisible = true
	c.view.Title = startTitle
	c.view.Status = ""
	c.view.SubmitStatus = ""
	c.view.LeaderboardStatus = ""
	c.view.LeaderboardVisible = false
	c.highlight = nil
	c.view.Rows = Render(nil, nil)
	c.view.State = AwaitingName
	c.syncName()
}

func (c *Controller) syncName() {
	c.view.NameSet = c.identity.Name() != ""
	c.view.NameSaved = c.view.NameSet && !c.identity.Degraded()
	if c.view.NameSet && c.view.State == AwaitingName {
		c.view.State = Ready
	}
}

func (c *Controller) mergeHighScore(score int) {
	if score <= c.view.HighScore {
		return
	}
	c.view.HighScore = score
	c.game.SetHighScore(score)
}

// detach runs work off the loop. The returned function is applied on the loop.
func (c *Controller) detach(ctx context.Context, work func(ctx context.Context) func()) {
	go func() {
		if apply := work(ctx); apply != nil {
			c.post(ctx, apply)
		}
	}()
}

func (c *Controller) post(ctx context.Context, apply func()) {
	select {
	case c.results <- apply:
	case <-ctx.Done():
	}
}

func (c *Controller) emit() {
	v := c.view
	v.Rows = append([]Row(nil), c.view.Rows...)
	c.publish(v)
}
