// ABOUTME: TCP line server accepting connections and running one session per connection
// ABOUTME: Enforces the connection limit and closes every connection on shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/harper/rpcline/internal/logger"
	"github.com/harper/rpcline/internal/session"
)

const transportTCP = "tcp"

type Server struct {
	addr           string
	maxConnections int
	maxLineBytes   int
	sessionMgr     *session.Manager
	log            *logger.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// Options mirror the server section of the configuration.
type Options struct {
	Addr           string
	MaxConnections int // 0 = unlimited
	MaxLineBytes   int
}

func NewServer(opts Options, mgr *session.Manager) *Server {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 1 << 20
	}
	return &Server{
		addr:           opts.Addr,
		maxConnections: opts.MaxConnections,
		maxLineBytes:   opts.MaxLineBytes,
		sessionMgr:     mgr,
		log:            logger.With("tcp"),
		conns:          make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It closes ln and every
// open connection before returning, and waits for their sessions to end.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("listening on %s", ln.Addr())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeAll()
	})
	defer stop()
	defer s.wg.Wait()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTemporary(err) {
				backoff = nextBackoff(backoff)
				s.log.Warn("accept error: %v; retrying in %v", err, backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			s.closeAll()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		if !s.track(conn) {
			s.log.Warn("connection limit %d reached, rejecting %s", s.maxConnections, conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

// Accept retry delays: 5ms doubling up to 1s.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}

// isTemporary reports errors such as EMFILE that a later Accept may not hit.
func isTemporary(err error) bool {
	var ne interface{ Temporary() bool }
	return errors.As(err, &ne) && ne.Temporary()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	r := session.NewScannerReader(conn, s.maxLineBytes)
	w := session.NewStreamWriter(conn)
	// Serve logs the failure with the connection id.
	_ = s.sessionMgr.Serve(ctx, transportTCP, conn.RemoteAddr().String(), r, w)
}

// track registers conn unless the connection limit is reached.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxConnections > 0 && len(s.conns) >= s.maxConnections {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// OpenConnections returns the number of connections currently being served.
func (s *Server) OpenConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
