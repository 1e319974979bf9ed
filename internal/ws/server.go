package ws

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	hub      *Hub
	upgrader *websocket.Upgrader
	log      *slog.Logger
}

func NewServer(hub *Hub, allowedOrigins []string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub: hub,
		upgrader: &websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: log.With("component", "ws"),
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients), any origin when the list contains "*", and exact matches otherwise.
func originChecker(allowed []string) func(r *http.Request) bool {
	all := slices.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return all || origin == "" || slices.Contains(allowed, origin)
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading to websocket", "remote", r.RemoteAddr, "error", err)
		return
	}

	connectionID := uuid.NewString()
	s.log.Info("client connected", "connection_id", connectionID, "remote", r.RemoteAddr)

	conn := NewConnection(s.hub, ws, connectionID, s.log)
	if err := conn.Handle(r.Context()); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.log.Debug("connection closed with error", "connection_id", connectionID, "error", err)
	}
	s.log.Info("client disconnected", "connection_id", connectionID)
}
