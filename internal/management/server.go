// ABOUTME: Management API for runtime config, health and traffic monitoring
// ABOUTME: Provides endpoints for health checks, effective config, counters and the message log

package management

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/harper/rpcline/internal/config"
	"github.com/harper/rpcline/internal/db"
	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/logger"
	"github.com/harper/rpcline/internal/session"
)

const timeLayout = "2006-01-02 15:04:05"

type Server struct {
	config     *config.Config
	dispatcher *jsonrpc.Dispatcher
	sessionMgr *session.Manager
	db         *db.DB
	started    time.Time
	mux        *http.ServeMux
	log        *logger.Logger
}

// NewServer wires the API. database may be nil when the message log is off.
func NewServer(cfg *config.Config, d *jsonrpc.Dispatcher, mgr *session.Manager, database *db.DB) *Server {
	s := &Server{
		config:     cfg,
		dispatcher: d,
		sessionMgr: mgr,
		db:         database,
		started:    time.Now(),
		mux:        http.NewServeMux(),
		log:        logger.With("management"),
	}

	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/connections", s.handleConnections)
	s.mux.HandleFunc("/api/connections/{id}/messages", s.handleMessages)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("error encoding response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"methods":        s.dispatcher.Methods(),
	}
	s.writeJSON(w, health)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		out, err := s.config.YAML()
		if err != nil {
			http.Error(w, "failed to render config", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
		return
	}
	s.writeJSON(w, s.config)
}

type statsResponse struct {
	jsonrpc.Stats
	ActiveConnections int   `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, statsResponse{
		Stats:             s.dispatcher.Stats(),
		ActiveConnections: s.sessionMgr.ActiveCount(),
		TotalConnections:  s.sessionMgr.TotalCount(),
	})
}

type connectionResponse struct {
	ID         string  `json:"id"`
	Transport  string  `json:"transport"`
	RemoteAddr string  `json:"remoteAddr,omitempty"`
	OpenedAt   string  `json:"openedAt"`
	ClosedAt   *string `json:"closedAt,omitempty"`
	IsActive   bool    `json:"isActive"`
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "message log is disabled", http.StatusServiceUnavailable)
		return
	}

	// Enable CORS for web interface
	w.Header().Set("Access-Control-Allow-Origin", "*")

	conns, err := s.db.GetAllConnections()
	if err != nil {
		s.log.Error("failed to get connections: %v", err)
		http.Error(w, "failed to get connections", http.StatusInternalServerError)
		return
	}

	response := make([]connectionResponse, 0, len(conns))
	for _, c := range conns {
		var closedAt *string
		if c.ClosedAt != nil {
			closedAtStr := c.ClosedAt.Format(timeLayout)
			closedAt = &closedAtStr
		}

		response = append(response, connectionResponse{
			ID:         c.ID,
			Transport:  c.Transport,
			RemoteAddr: c.RemoteAddr,
			OpenedAt:   c.OpenedAt.Format(timeLayout),
			ClosedAt:   closedAt,
			IsActive:   c.ClosedAt == nil,
		})
	}
	s.writeJSON(w, response)
}

type messageResponse struct {
	Direction   db.MessageDirection `json:"direction"`
	MessageType string              `json:"messageType"`
	Method      string              `json:"method,omitempty"`
	ID          string              `json:"id,omitempty"`
	Raw         string              `json:"raw"`
	Timestamp   string              `json:"timestamp"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "message log is disabled", http.StatusServiceUnavailable)
		return
	}

	messages, err := s.db.GetConnectionMessages(r.PathValue("id"))
	if err != nil {
		s.log.Error("failed to get messages: %v", err)
		http.Error(w, "failed to get messages", http.StatusInternalServerError)
		return
	}

	response := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, messageResponse{
			Direction:   m.Direction,
			MessageType: m.MessageType,
			Method:      m.Method,
			ID:          m.JSONRPCID,
			Raw:         m.RawMessage,
			Timestamp:   m.Timestamp.Format(timeLayout),
		})
	}
	s.writeJSON(w, response)
}
