// Package dashboard exposes the ledger summary over HTTP: a JSON snapshot
// endpoint and a WebSocket that receives the refreshed summary after every
// decision cycle.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gw/contrarian-trader/internal/ledger"
)

// client is one WebSocket subscriber. The websocket package allows a
// single concurrent writer per connection, so every write holds mu: the
// initial snapshot runs on the HTTP handler goroutine while broadcasts
// arrive from the bot goroutine.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type Server struct {
	store    *ledger.Store
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

func New(store *ledger.Store) *Server {
	return &Server{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]bool),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Summary(r.Context())
	if err != nil {
		slog.Error("summary query failed", "err", err)
		http.Error(w, "summary unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		slog.Debug("summary encode failed", "err", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	// Initial snapshot so a fresh client does not wait for the next cycle.
	if sum, err := s.store.Summary(r.Context()); err == nil {
		s.write(c, sum)
	}

	// Drain (and discard) client frames to detect disconnects.
	go func() {
		defer s.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast recomputes the summary and pushes it to every connected client.
func (s *Server) Broadcast(ctx context.Context) {
	sum, err := s.store.Summary(ctx)
	if err != nil {
		slog.Warn("dashboard broadcast skipped", "err", err)
		return
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.write(c, sum)
	}
}

func (s *Server) write(c *client, sum ledger.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(sum); err != nil {
		s.drop(c)
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		c.conn.Close()
	}
	s.mu.Unlock()
}