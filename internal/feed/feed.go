// Package feed streams zone occupancy events to websocket observers.
// It is the collaborator side of the engine's EventSink contract: the
// core never knows about the network, it just calls the sink.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/zonekit/internal/zone"
)

// Event is the wire format of one occupancy notification.
type Event struct {
	Type     string    `json:"type"` // enter, inside, exit
	AgentID  string    `json:"agent_id"`
	ZoneID   int32     `json:"zone_id"`
	ZoneName string    `json:"zone_name"`
	Time     time.Time `json:"time"`
}

// Server broadcasts events to all connected websocket clients. Sends
// are non-blocking: a client whose buffer is full loses events rather
// than stalling the tick's event dispatch.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

const clientBuffer = 256

// NewServer creates an event feed server.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the websocket endpoint upgrading observers and
// streaming events until the client disconnects.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}

		c := &client{conn: conn, out: make(chan []byte, clientBuffer)}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		total := len(s.clients)
		s.mu.Unlock()
		slog.Debug("feed observer connected", "remote", conn.RemoteAddr(), "total", total)

		// Writer goroutine.
		go func() {
			for b := range c.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					break
				}
			}
			conn.Close()
		}()

		// Reader loop: we expect nothing from observers, just detect
		// disconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		// Закрытие канала под мьютексом исключает send-after-close
		// из broadcast.
		s.mu.Lock()
		delete(s.clients, c)
		close(c.out)
		remaining := len(s.clients)
		s.mu.Unlock()
		slog.Debug("feed observer disconnected", "remote", conn.RemoteAddr(), "remaining", remaining)
	}
}

// ClientCount returns the number of connected observers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast fans the payload out to every client without blocking.
func (s *Server) broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encoding feed event", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			// Медленный наблюдатель теряет событие, тик не ждёт.
		}
	}
}

// OnEnter implements zone.EventSink.
func (s *Server) OnEnter(agentID string, z *zone.Zone) {
	s.broadcast(Event{Type: "enter", AgentID: agentID, ZoneID: z.ID(), ZoneName: z.Name(), Time: time.Now()})
}

// OnInside implements zone.EventSink.
func (s *Server) OnInside(agentID string, z *zone.Zone) {
	s.broadcast(Event{Type: "inside", AgentID: agentID, ZoneID: z.ID(), ZoneName: z.Name(), Time: time.Now()})
}

// OnExit implements zone.EventSink.
func (s *Server) OnExit(agentID string, z *zone.Zone) {
	s.broadcast(Event{Type: "exit", AgentID: agentID, ZoneID: z.ID(), ZoneName: z.Name(), Time: time.Now()})
}
