// ABOUTME: Session is one connection's sequential read-dispatch-write line loop
// ABOUTME: Transports inject the line reader and writer; the loop owns no sockets

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/harper/rpcline/internal/db"
	"github.com/harper/rpcline/internal/logger"
)

// LineReader returns the next complete input line without its terminator.
// It returns io.EOF when the peer is done.
type LineReader interface {
	ReadLine() (string, error)
}

// LineWriter emits one complete output line.
type LineWriter interface {
	WriteLine(line string) error
}

// Handler turns an input line into at most one output line.
// *jsonrpc.Dispatcher implements it.
type Handler interface {
	HandleLine(line string) (string, bool)
}

type Session struct {
	ID         string
	Transport  string
	RemoteAddr string
	OpenedAt   time.Time
	DB         *db.DB

	reader  LineReader
	writer  LineWriter
	handler Handler
	log     *logger.Logger

	linesIn  atomic.Int64
	linesOut atomic.Int64
}

func (s *Session) LinesIn() int64 {
	return s.linesIn.Load()
}

func (s *Session) LinesOut() int64 {
	return s.linesOut.Load()
}

// Run processes lines until the reader reports io.EOF (nil is returned), a
// read or write fails (the error is returned), or ctx is done. Each line is
// fully handled and its response written before the next read.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := s.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.linesIn.Add(1)
		s.logMessage(db.DirectionClientToServer, line)

		out, ok := s.handler.HandleLine(line)
		if !ok {
			s.log.Debug("no response for %s", preview(line))
			continue
		}
		s.log.Debug("%s -> %s", preview(line), preview(out))
		s.logMessage(db.DirectionServerToClient, out)

		if err := s.writer.WriteLine(out); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		s.linesOut.Add(1)
	}
}

func (s *Session) logMessage(direction db.MessageDirection, line string) {
	if s.DB == nil {
		return
	}
	if err := s.DB.LogMessage(s.ID, direction, line); err != nil {
		s.log.Warn("failed to log %s message: %v", direction, err)
	}
}

const previewBytes = 100

// preview shortens line for debug logs without splitting a UTF-8 sequence.
func preview(line string) string {
	if len(line) <= previewBytes {
		return line
	}
	cut := previewBytes
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "..."
}
