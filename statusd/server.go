package statusd

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teranos/netsukuku/logger"
)

// LevelStatus is one hierarchy level's status snapshot.
type LevelStatus struct {
	Level      int    `json:"level"`
	QSPNID     uint32 `json:"qspn_id"`
	Phase      string `json:"phase"`
	IsBnode    bool   `json:"is_bnode"`
	NeighborCt int    `json:"neighbor_count"`
}

// Snapshot is the full /status JSON payload.
type Snapshot struct {
	Device    string        `json:"device"`
	UptimeSec float64       `json:"uptime_seconds"`
	Levels    []LevelStatus `json:"levels"`
}

// Provider supplies the live snapshot statusd serves. The engine package
// implements it; statusd depends only on this narrow interface to avoid an
// import cycle with the engine's collaborators.
type Provider interface {
	Snapshot() Snapshot
}

// Server serves /status and /ws over HTTP.
type Server struct {
	provider       Provider
	hub            *Hub
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewServer constructs a Server backed by provider, fanning round events
// from hub out to WebSocket subscribers.
func NewServer(provider Provider, hub *Hub, allowedOrigins []string) *Server {
	s := &Server{provider: provider, hub: hub, allowedOrigins: allowedOrigins}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Mux builds the HTTP handler tree.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "https://localhost") {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.provider.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logger.Logger.Errorw("status encode failed", logger.FieldError, err.Error())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Debugw("websocket upgrade failed", logger.FieldError, err.Error())
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	ch := make(chan RoundEvent, 32)
	s.hub.Register(id, ch)
	defer s.hub.Unregister(id)

	pings := time.NewTicker(30 * time.Second)
	defer pings.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-pings.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
