// Package chatui mirrors the conversation to browser chat windows over a
// websocket and forwards typed input back to the session.
package chatui

import (
	_ "embed"
	"encoding/json"
	log "log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"riya/internal/transcript"
)

// Event kinds sent by a chat window.
const (
	EventSend = "send"
	EventMic  = "mic"
)

// Event is input from a chat window: typed text or a microphone toggle.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	On   bool   `json:"on,omitempty"`
}

const (
	sendBuffer   = 32
	eventsBuffer = 16
)

//go:embed index.html
var indexHTML []byte

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans entries out to every connected window. New windows first
// receive the history.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	history  func() []transcript.Entry
	events   chan Event
	upgrader websocket.Upgrader
}

// NewHub builds a Hub. history may be nil.
func NewHub(history func() []transcript.Entry) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		history: history,
		events:  make(chan Event, eventsBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Events delivers window input. Events are dropped while the buffer is full.
func (h *Hub) Events() <-chan Event { return h.events }

// Handler serves the chat page on / and the websocket on /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
	return mux
}

// Broadcast sends e to every window. Windows that can't keep up are
// disconnected.
func (h *Hub) Broadcast(e transcript.Entry) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error("Failed to encode chat entry", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Warn("Chat window too slow, dropping", "remote", c.conn.RemoteAddr().String())
			h.drop(c)
		}
	}
}

// Close disconnects every window and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	log.Info("Chat window connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(c)
	h.readLoop(c)
}

// register queues the history for c before any live entry can reach it.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	var backlog [][]byte
	if h.history != nil {
		for _, e := range h.history() {
			if b, err := json.Marshal(e); err == nil {
				backlog = append(backlog, b)
			}
		}
	}
	if len(backlog) > cap(c.send) {
		c.send = make(chan []byte, len(backlog)+sendBuffer)
	}
	for _, b := range backlog {
		c.send <- b
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug("Chat write failed", "err", err)
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
			break
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.drop(c)
		h.mu.Unlock()
		log.Info("Chat window disconnected", "remote", c.conn.RemoteAddr().String())
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Chat read failed", "err", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Warn("Bad chat event", "err", err)
			continue
		}
		if ev.Type != EventSend && ev.Type != EventMic {
			log.Warn("Unknown chat event", "type", ev.Type)
			continue
		}

		select {
		case h.events <- ev:
		default:
			log.Warn("Chat events backlog full, dropping", "type", ev.Type)
		}
	}
}
