// ABOUTME: Session manager tracking active connections across transports
// ABOUTME: Assigns connection ids, records open/close in the message log, runs sessions

package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harper/rpcline/internal/db"
	"github.com/harper/rpcline/internal/logger"
)

type Manager struct {
	handler  Handler
	db       *db.DB
	sessions map[string]*Session
	mu       sync.RWMutex
	total    atomic.Int64
}

// NewManager creates a manager. database may be nil to disable the message log.
func NewManager(h Handler, database *db.DB) *Manager {
	return &Manager{
		handler:  h,
		db:       database,
		sessions: make(map[string]*Session),
	}
}

func newConnectionID() string {
	return "conn_" + uuid.New().String()[:8]
}

// CreateSession registers a new session for one connection.
func (m *Manager) CreateSession(transport, remoteAddr string, r LineReader, w LineWriter) (*Session, error) {
	id := newConnectionID()
	sess := &Session{
		ID:         id,
		Transport:  transport,
		RemoteAddr: remoteAddr,
		OpenedAt:   time.Now(),
		DB:         m.db,
		reader:     r,
		writer:     w,
		handler:    m.handler,
		log:        logger.With(id),
	}

	if m.db != nil {
		if err := m.db.OpenConnection(id, transport, remoteAddr); err != nil {
			return nil, fmt.Errorf("failed to log connection: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	m.total.Add(1)

	sess.log.Info("%s connection opened from %s", transport, remoteAddr)
	return sess, nil
}

func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	sess, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("session not found: %s", id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.db != nil {
		if err := m.db.CloseConnection(id); err != nil {
			// The connection is gone either way; only the log entry is stale.
			sess.log.Warn("failed to log connection close: %v", err)
		}
	}

	sess.log.Info("connection closed after %d lines in, %d lines out", sess.LinesIn(), sess.LinesOut())
	return nil
}

// Serve creates a session, runs it to completion and closes it.
func (m *Manager) Serve(ctx context.Context, transport, remoteAddr string, r LineReader, w LineWriter) error {
	sess, err := m.CreateSession(transport, remoteAddr, r, w)
	if err != nil {
		return err
	}
	defer func() { _ = m.CloseSession(sess.ID) }()

	if err := sess.Run(ctx); err != nil {
		sess.log.Warn("connection error: %v", err)
		return err
	}
	return nil
}

func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, exists := m.sessions[id]
	return sess, exists
}

// ActiveSessions returns the open sessions ordered by opening time.
func (m *Manager) ActiveSessions() []*Session {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].OpenedAt.Before(list[j].OpenedAt)
	})
	return list
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// TotalCount is the number of sessions created since start.
func (m *Manager) TotalCount() int64 {
	return m.total.Load()
}
