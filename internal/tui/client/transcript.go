// ABOUTME: Transcript of lines exchanged with the server during a TUI run
// ABOUTME: Implements a FIFO with a configurable history limit
package client

import (
	"fmt"
	"sync"
	"time"
)

type EntryKind int

const (
	EntrySent EntryKind = iota
	EntryReceived
	EntrySystem
	EntryError
)

func (k EntryKind) String() string {
	switch k {
	case EntrySent:
		return "Sent"
	case EntryReceived:
		return "Received"
	case EntrySystem:
		return "System"
	case EntryError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (k EntryKind) Icon() string {
	switch k {
	case EntrySent:
		return "→"
	case EntryReceived:
		return "←"
	case EntrySystem:
		return "•"
	case EntryError:
		return "!"
	default:
		return "?"
	}
}

type Entry struct {
	Kind      EntryKind
	Text      string
	Summary   string // short form shown instead of Text, if set
	Timestamp time.Time
}

type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewTranscript keeps at most limit entries; limit <= 0 means unbounded.
func NewTranscript(limit int) *Transcript {
	return &Transcript{limit: limit}
}

func (t *Transcript) Add(kind EntryKind, text string) {
	t.add(Entry{Kind: kind, Text: text, Timestamp: time.Now()})
}

// AddResponse records a server line with its summary.
func (t *Transcript) AddResponse(resp Response) {
	summary := resp.Summary
	if len(resp.Matched) > 0 {
		summary += fmt.Sprintf(" (%s)", resp.Latency.Round(time.Millisecond))
	}
	for _, id := range resp.Unknown {
		if id != "null" {
			summary += " [unexpected id " + id + "]"
		}
	}
	t.add(Entry{Kind: EntryReceived, Text: resp.Line, Summary: summary, Timestamp: time.Now()})
}

func (t *Transcript) add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, e)
	if t.limit > 0 && len(t.entries) > t.limit {
		t.entries = t.entries[len(t.entries)-t.limit:]
	}
}

// Entries returns a copy, oldest first.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}
