// ABOUTME: Plain HTTP transport answering POSTed JSON-RPC lines
// ABOUTME: Each request body runs as one short-lived session; responses come back newline terminated

package http

import (
	"bufio"
	"bytes"
	"errors"
	"net/http"

	"github.com/harper/rpcline/internal/logger"
	"github.com/harper/rpcline/internal/session"
)

const transportHTTP = "http"

type Server struct {
	sessionMgr   *session.Manager
	maxBodyBytes int64
	log          *logger.Logger
}

func NewServer(mgr *session.Manager, maxBodyBytes int) *Server {
	return &Server{
		sessionMgr:   mgr,
		maxBodyBytes: int64(maxBodyBytes),
		log:          logger.With("http"),
	}
}

// ServeHTTP answers a POST whose body holds one or more lines. The response
// body holds one line per produced response; when every line was a
// notification the status is 204 with no body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer func() { _ = body.Close() }()

	var out bytes.Buffer
	reader := session.NewScannerReader(body, int(s.maxBodyBytes))
	err := s.sessionMgr.Serve(r.Context(), transportHTTP, r.RemoteAddr, reader, session.NewStreamWriter(&out))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, bufio.ErrTooLong) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.log.Warn("request from %s failed: %v", r.RemoteAddr, err)
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}

	if out.Len() == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// JSON-RPC errors still return 200
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Bytes()); err != nil {
		s.log.Warn("error writing response: %v", err)
	}
}
