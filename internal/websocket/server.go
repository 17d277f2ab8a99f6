// ABOUTME: WebSocket transport carrying one JSON-RPC line per text message
// ABOUTME: Upgrades requests on the configured path and runs a session per connection

package websocket

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harper/rpcline/internal/logger"
	"github.com/harper/rpcline/internal/session"
)

const transportWebSocket = "websocket"

type Server struct {
	sessionMgr   *session.Manager
	maxLineBytes int64
	fallback     http.Handler
	upgrader     websocket.Upgrader
	log          *logger.Logger
}

type Option func(*Server)

// WithAllowedOrigins accepts upgrades whose Origin header is listed, in
// addition to same-origin requests and clients that send no Origin at all.
// "*" accepts every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
				return true
			}
			return sameOrigin(r, origin)
		}
	}
}

// sameOrigin is gorilla's default check: the Origin host must equal the Host header.
func sameOrigin(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// NewServer returns a handler upgrading every request to a websocket.
// Non-upgrade requests go to fallback when set. Without WithAllowedOrigins
// only same-origin browsers may connect.
func NewServer(mgr *session.Manager, maxLineBytes int, fallback http.Handler, opts ...Option) *Server {
	s := &Server{
		sessionMgr:   mgr,
		maxLineBytes: int64(maxLineBytes),
		fallback:     fallback,
		log:          logger.With("ws"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.fallback != nil && !websocket.IsWebSocketUpgrade(r) {
		s.fallback.ServeHTTP(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}

	s.handleConnection(r.Context(), conn)
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	if s.maxLineBytes > 0 {
		conn.SetReadLimit(s.maxLineBytes)
	}

	// Hijacked connections outlive http.Server.Shutdown; close them ourselves.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	lc := &lineConn{conn: conn}
	if err := s.sessionMgr.Serve(ctx, transportWebSocket, conn.RemoteAddr().String(), lc, lc); err != nil {
		return
	}

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
}

// lineConn adapts a websocket connection to the session line interfaces.
type lineConn struct {
	conn *websocket.Conn
}

// ReadLine returns the next text or binary message. A normal close from the
// peer reads as io.EOF.
func (c *lineConn) ReadLine() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return "", io.EOF
		}
		return "", err
	}
	return string(data), nil
}

func (c *lineConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}
