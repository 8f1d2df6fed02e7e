package practice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

// DefaultTurnLimit is the number of participant turns in one conversation.
const DefaultTurnLimit = 5

// Session holds the identity, turn counter and completion flag of one
// conversation, and owns its log. The turn count only grows and completed
// only ever flips from false to true. Outside this package a Session is
// read-only; the owning Orchestrator applies every change on its loop.
type Session struct {
	mu        sync.RWMutex
	id        string
	createdAt time.Time
	turnCount int
	turnLimit int
	completed bool
	discarded bool
	log       *Log
	listener  func(Event)
}

// NewSession creates an unstarted session. A non-positive limit falls back
// to DefaultTurnLimit.
func NewSession(turnLimit int) *Session {
	if turnLimit <= 0 {
		turnLimit = DefaultTurnLimit
	}
	return &Session{
		turnLimit: turnLimit,
		log:       NewLog(),
	}
}

// start obtains a session id from the backend. The id is assigned once;
// calling start on a started session is a no-op. Failures leave the session
// unstarted so start can be retried.
func (s *Session) start(ctx context.Context, creator SessionCreator) error {
	s.mu.RLock()
	started, discarded := s.id != "", s.discarded
	s.mu.RUnlock()

	if discarded {
		return ErrSessionDiscarded
	}
	if started {
		return nil
	}

	handle, err := creator.CreateSession(ctx)
	if err != nil {
		return &SessionInitError{Err: err}
	}
	if strings.TrimSpace(handle.ID) == "" {
		return &SessionInitError{Err: ErrMissingSessionID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return ErrSessionDiscarded
	}
	if s.id == "" {
		s.id = handle.ID
		s.createdAt = handle.CreatedAt
		if s.createdAt.IsZero() {
			s.createdAt = time.Now().UTC()
		}
	}
	return nil
}

// appendEntry adds entry to the log and notifies the observer.
func (s *Session) appendEntry(entry chat.Entry) (chat.Entry, error) {
	s.mu.RLock()
	discarded, listener, id := s.discarded, s.listener, s.id
	s.mu.RUnlock()
	if discarded {
		return chat.Entry{}, ErrSessionDiscarded
	}

	stored, index, err := s.log.Append(entry)
	if err != nil {
		return chat.Entry{}, err
	}

	if listener != nil {
		copied := stored.Clone()
		listener(Event{Kind: EventEntryAppended, SessionID: id, Entry: &copied, Index: index})
	}
	return stored, nil
}

// recordTurn advances the turn counter by one and reports the new count and
// whether this call completed the session. This is the only place the turn
// limit completes a conversation.
func (s *Session) recordTurn() (int, bool, error) {
	s.mu.Lock()
	if s.discarded {
		s.mu.Unlock()
		return 0, false, ErrSessionDiscarded
	}
	s.turnCount++
	count, limit := s.turnCount, s.turnLimit
	justCompleted := false
	if count >= limit && !s.completed {
		s.completed = true
		justCompleted = true
	}
	listener, id := s.listener, s.id
	s.mu.Unlock()

	if listener != nil {
		listener(Event{Kind: EventTurnRecorded, SessionID: id, TurnCount: count, TurnLimit: limit})
		if justCompleted {
			listener(Event{Kind: EventCompleted, SessionID: id, TurnCount: count, TurnLimit: limit})
		}
	}
	return count, justCompleted, nil
}

// markCompleted ends the conversation early. It returns true only for the
// call that actually completed the session.
func (s *Session) markCompleted() bool {
	s.mu.Lock()
	if s.discarded || s.completed {
		s.mu.Unlock()
		return false
	}
	s.completed = true
	listener, id, count, limit := s.listener, s.id, s.turnCount, s.turnLimit
	s.mu.Unlock()

	if listener != nil {
		listener(Event{Kind: EventCompleted, SessionID: id, TurnCount: count, TurnLimit: limit})
	}
	return true
}

// ID returns the session id, empty until Start succeeds.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CreatedAt returns when the backend opened the session.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// Started reports whether a session id has been assigned.
func (s *Session) Started() bool {
	return s.ID() != ""
}

func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnCount
}

func (s *Session) TurnLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnLimit
}

func (s *Session) Completed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// Discarded reports whether the owning orchestrator has let go of the session.
func (s *Session) Discarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discarded
}

// Entries returns a copy of the log.
func (s *Session) Entries() []chat.Entry {
	return s.log.Entries()
}

func (s *Session) snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		SessionID: s.id,
		TurnCount: s.turnCount,
		TurnLimit: s.turnLimit,
		Completed: s.completed,
	}
	s.mu.RUnlock()
	snap.Entries = s.log.Entries()
	return snap
}

func (s *Session) setListener(fn func(Event)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// discard detaches the session from its orchestrator; later writes fail.
func (s *Session) discard() {
	s.mu.Lock()
	s.discarded = true
	s.listener = nil
	s.mu.Unlock()
}
