// Package ws streams loop snapshots to websocket clients. It is the
// reference consumer of the mailbox: it polls at its own pace and only ever
// sees the freshest state, so a stalled client can never back-pressure the
// realtime loop.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kskhost/internal/state"
)

type Server struct {
	mu      sync.Mutex
	mailbox *state.Mailbox
	clients map[*websocket.Conn]bool
	log     zerolog.Logger

	frameID uint64
	start   time.Time
}

func NewServer(mb *state.Mailbox, logger zerolog.Logger) *Server {
	return &Server{
		mailbox: mb,
		clients: map[*websocket.Conn]bool{},
		log:     logger,
		start:   time.Now(),
	}
}

// Run polls the mailbox every interval and broadcasts whatever is fresh.
// Returns when done closes.
func (s *Server) Run(interval time.Duration, done <-chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			snap, ok := s.mailbox.Poll()
			if !ok {
				continue
			}
			s.broadcast(snap)
		}
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.start).Seconds(),
		"clients":  len(s.clients),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) broadcast(snap state.Snapshot) {
	b, err := json.Marshal(NewFrame(s.frameID+1, snap))
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
		}
	}
}
