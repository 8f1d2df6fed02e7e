package practice

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

// Log is the ordered, append-only record of a conversation. It never
// reorders or deletes entries.
type Log struct {
	mu      sync.RWMutex
	entries []chat.Entry
	now     func() time.Time
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{
		entries: make([]chat.Entry, 0, 16),
		now:     time.Now,
	}
}

// Append stores a copy of entry and returns it with its final timestamp and
// position. CreatedAt is filled in when zero and never precedes the previous
// entry's.
func (l *Log) Append(entry chat.Entry) (chat.Entry, int, error) {
	if !entry.Origin.Valid() {
		return chat.Entry{}, -1, fmt.Errorf("%w: unknown origin %q", ErrInvalidEntry, entry.Origin)
	}
	if strings.TrimSpace(entry.Body) == "" {
		return chat.Entry{}, -1, fmt.Errorf("%w: empty body", ErrInvalidEntry)
	}

	entry = entry.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	if n := len(l.entries); n > 0 {
		if last := l.entries[n-1].CreatedAt; entry.CreatedAt.Before(last) {
			entry.CreatedAt = last
		}
	}

	l.entries = append(l.entries, entry)
	return entry.Clone(), len(l.entries) - 1, nil
}

// Entries returns a copy of the log in order.
func (l *Log) Entries() []chat.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]chat.Entry, len(l.entries))
	for i, entry := range l.entries {
		copied[i] = entry.Clone()
	}
	return copied
}
