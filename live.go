/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Live overlay sessions
//
// Each browser tab opens a websocket to /play/ws and gets its own session
// controller. The page forwards what the player does (name edits, key presses,
// the start button) and what the game reports (game over, restart). The server
// answers with overlay views, a start signal for the game and high score
// updates.
//
// Players are identified by cookie, and their names are kept per player id in
// the name database so a returning player skips the name prompt.

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/trexboard/board"
	"github.com/Seednode/trexboard/session"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from the page
type ClientMessage struct {
	Type        string   `json:"type"`                   // "name_input", "key", "start", "game_over", "restart", "refresh"
	Value       string   `json:"value,omitempty"`        // name_input / start
	Key         string   `json:"key,omitempty"`          // key
	NameFocused bool     `json:"name_focused,omitempty"` // key
	Score       *float64 `json:"score,omitempty"`        // game_over
}

// event maps a page message onto a session event.
func (m ClientMessage) event() (session.Event, bool) {
	switch m.Type {
	case "name_input":
		return session.NameInput{Value: m.Value}, true
	case "key":
		return session.KeyDown{Key: session.Key(m.Key), NameFocused: m.NameFocused}, true
	case "start":
		return session.StartClicked{Value: m.Value}, true
	case "game_over":
		if m.Score == nil {
			return nil, false
		}
		return session.GameOverEvent{Score: *m.Score}, true
	case "restart":
		return session.RestartEvent{}, true
	case "refresh":
		return session.RefreshEvent{}, true
	default:
		return nil, false
	}
}

// Messages sent to the page
type ViewMessage struct {
	Type string       `json:"type"` // "view"
	View session.View `json:"view"`
}

type SimpleMessage struct {
	Type string `json:"type"` // "start_game"
}

type HighScoreMessage struct {
	Type  string `json:"type"` // "high_score"
	Score int    `json:"score"`
}

// Client is one open overlay. It doubles as the session's view of the game,
// which lives in the browser.
type Client struct {
	ctx      context.Context
	conn     *websocket.Conn
	send     chan any
	playerID string
}

func (c *Client) deliver(msg any) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	}
}

func (c *Client) Start() {
	c.deliver(SimpleMessage{Type: "start_game"})
}

func (c *Client) SetHighScore(score int) {
	c.deliver(HighScoreMessage{Type: "high_score", Score: score})
}

func (c *Client) publish(v session.View) {
	c.deliver(ViewMessage{Type: "view", View: v})
}

func (c *Client) readPump(events chan<- session.Event) {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		ev, ok := msg.event()
		if !ok {
			// ignore unknown types
			continue
		}

		select {
		case events <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// NameDirectory hands out the name store for each player id.
type NameDirectory interface {
	For(playerID string) session.NameStore
}

// memoryDirectory keeps names until the server exits.
type memoryDirectory struct {
	mu    sync.Mutex
	names map[string]*session.MemoryNames
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{names: make(map[string]*session.MemoryNames)}
}

func (d *memoryDirectory) For(playerID string) session.NameStore {
	d.mu.Lock()
	defer d.mu.Unlock()

	names, ok := d.names[playerID]
	if !ok {
		names = &session.MemoryNames{}
		d.names[playerID] = names
	}

	return names
}

// Lobby tracks the open connections so they can be closed on shutdown.
type Lobby struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func newLobby() *Lobby {
	return &Lobby{clients: make(map[*Client]struct{})}
}

func (l *Lobby) join(c *Client) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.clients[c] = struct{}{}

	return len(l.clients)
}

func (l *Lobby) leave(c *Client) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.clients, c)

	return len(l.clients)
}

func (l *Lobby) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for c := range l.clients {
		_ = c.conn.Close()
		delete(l.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "trexboard_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveLive(cfg *Config, lobby *Lobby, scores *board.Client, names NameDirectory) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "LIVE: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		startTime := time.Now()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := &Client{
			ctx:      ctx,
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		identity := session.LoadIdentity(names.For(playerID))
		if identity.Degraded() {
			logf(cfg, "LIVE: Name storage unavailable for %s, keeping names in memory", playerID)
		}

		ctrl := session.New(scores, client, identity, client.publish)

		logf(cfg, "LIVE: %s joined from %s (%d connected)", playerID, realIP(r), lobby.join(client))

		go client.writePump()
		go func() {
			_ = ctrl.Run(ctx)
		}()

		client.readPump(ctrl.Events())

		logf(cfg, "LIVE: %s left after %s (%d connected)",
			playerID,
			time.Since(startTime).Round(time.Second),
			lobby.leave(client),
		)
	}
}

// qrHandler generates a PNG QR code pointing at the game page.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/"

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// registerLive sets up routes so that:
//   - $prefix/play/ws → websocket for one overlay session
//   - $prefix/qr      → PNG QR code for the game page
func registerLive(cfg *Config, mux *httprouter.Router, lobby *Lobby, scores *board.Client, names NameDirectory) {
	mux.GET(cfg.prefix+"/play/ws", serveLive(cfg, lobby, scores, names))

	mux.GET(cfg.prefix+"/qr", qrHandler(cfg))
}
