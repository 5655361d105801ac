// Package monitor streams generation summaries to websocket subscribers.
// It is read-only observability for training runs; the engine itself never
// opens sockets.
package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Time allowed to write an update to a subscriber before it is dropped.
const writeWait = 1 * time.Second

// GenerationUpdate is one generation's summary as published to clients.
type GenerationUpdate struct {
	Generation int    `json:"generation"`
	Task       string `json:"task"`
	BestScore  int64  `json:"best_score"`
	Teams      int    `json:"teams"`
	RootTeams  int    `json:"root_teams"`
	Learners   int    `json:"learners"`
}

// Server fans generation updates out to any number of websocket clients.
// A client whose write fails or misses the writeWait deadline is dropped,
// so each slow client holds up Publish for at most writeWait.
type Server struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewServer builds a monitor server. A nil logger discards.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP mux exposing the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWebsocket)
	return mux
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("monitor client connected", "remote", conn.RemoteAddr())

	// Drain (and discard) client messages so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Publish sends the update to every connected client.
func (s *Server) Publish(u GenerationUpdate) {
	payload, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("marshal update", "err", err)
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug("dropping slow monitor client", "err", err)
			s.drop(conn)
		}
	}
}

// ListenAndServe serves the websocket endpoint on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
