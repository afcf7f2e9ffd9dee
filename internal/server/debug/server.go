// Package debug streams machine trace events to websocket clients for live
// inspection of a running bot. It consumes the engine's observer hook and
// never reaches into engine internals.
package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/modstate/modstate/internal/core/machine"
	"github.com/modstate/modstate/internal/core/observability/log"
)

const clientBuffer = 64

// Server fans trace events out to connected websocket clients. Slow clients
// are dropped rather than allowed to back-pressure the tick path.
type Server struct {
	logger   *log.Logger
	upgrader websocket.Upgrader
	events   chan machine.TraceEvent

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewServer builds a debug server. Wire Observer() into the machine and run
// Run on its own goroutine.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		events:   make(chan machine.TraceEvent, 256),
		clients:  make(map[string]*client),
	}
}

// Observer returns a machine.Observer feeding this server. Events are
// dropped when the buffer is full; tracing must never stall a tick.
func (s *Server) Observer() machine.Observer {
	return chanObserver{ch: s.events}
}

type chanObserver struct {
	ch chan<- machine.TraceEvent
}

func (o chanObserver) StateEntered(e machine.TraceEvent) { o.push(e) }
func (o chanObserver) StateExited(e machine.TraceEvent)  { o.push(e) }
func (o chanObserver) MachineIdle(e machine.TraceEvent)  { o.push(e) }

func (o chanObserver) push(e machine.TraceEvent) {
	select {
	case o.ch <- e:
	default:
	}
}

// Run pumps trace events to all connected clients until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		case e := <-s.events:
			b, err := json.Marshal(e)
			if err != nil {
				s.logger.Warn("marshal trace event", log.Err(err))
				continue
			}
			s.broadcast(b)
		}
	}
}

func (s *Server) broadcast(b []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- b:
		default:
			// Slow client; skip this frame.
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP upgrades the connection and streams trace frames until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Err(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuffer)}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("debug client connected", log.String("client", c.id))

	// Reader: drain and detect disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(c)
				return
			}
		}
	}()

	// Writer.
	for b := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.drop(c)
			return
		}
	}
	_ = conn.Close()
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	s.mu.Unlock()
	_ = c.conn.Close()
	s.logger.Info("debug client disconnected", log.String("client", c.id))
}
