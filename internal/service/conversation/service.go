// Package conversation is the in-process conversation backend: it opens
// sessions, answers participant turns with coach feedback and a character
// reply, and writes the closing impression.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/analysis/impression"
	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/internal/practice"
	"github.com/zhouzirui/tennokoe/internal/service/coach"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message is empty")
)

// Responder writes the character's lines.
type Responder interface {
	Reply(ctx context.Context, character persona.Persona, prior []chat.Entry, text string) string
	Impression(ctx context.Context, character persona.Persona, transcript []chat.Entry, affinity float64) string
}

// Reviewer writes the coach's feedback.
type Reviewer interface {
	Review(ctx context.Context, character persona.Persona, prior []chat.Entry, text string) coach.Feedback
}

type session struct {
	handle     chat.SessionHandle
	transcript []chat.Entry
}

// Service keeps every open conversation in memory.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	character persona.Persona
	responder Responder
	reviewer  Reviewer
	log       *logrus.Entry
	now       func() time.Time
}

var _ practice.Gateway = (*Service)(nil)

// NewService returns a backend in which every session talks to character.
func NewService(character persona.Persona, responder Responder, reviewer Reviewer) *Service {
	return &Service{
		sessions:  make(map[string]*session),
		character: character,
		responder: responder,
		reviewer:  reviewer,
		log:       logging.New("conversation"),
		now:       time.Now,
	}
}

// Character returns the persona sessions talk to.
func (s *Service) Character() persona.Persona {
	return s.character
}

// CreateSession opens an anonymous session.
func (s *Service) CreateSession(ctx context.Context) (chat.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return chat.SessionHandle{}, err
	}

	handle := chat.SessionHandle{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.sessions[handle.ID] = &session{handle: handle, transcript: make([]chat.Entry, 0, 16)}
	s.mu.Unlock()

	s.log.WithField("session_id", handle.ID).Info("session created")
	return handle, nil
}

// GetSession returns the handle of an open session.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.SessionHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return chat.SessionHandle{}, ErrSessionNotFound
	}
	return sess.handle, nil
}

// ExchangeTurn answers one participant turn. prior is the client's view of
// the log before this turn and is what the character and the coach see.
func (s *Service) ExchangeTurn(ctx context.Context, sessionID, text string, prior []chat.Entry) (chat.TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.TurnResult{}, ErrEmptyMessage
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return chat.TurnResult{}, err
	}

	feedback := s.reviewer.Review(ctx, s.character, prior, text)
	reply := s.responder.Reply(ctx, s.character, prior, text)
	if err := ctx.Err(); err != nil {
		return chat.TurnResult{}, err
	}

	entries := []chat.Entry{s.stamp(chat.ParticipantEntry(text)), s.stamp(chat.CharacterEntry(reply))}
	if strings.TrimSpace(feedback.Text) != "" {
		entries = append(entries, s.stamp(chat.CoachEntry(feedback.Text, feedback.Tags)))
	}
	if err := s.record(sessionID, entries...); err != nil {
		return chat.TurnResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"source":     feedback.Source,
		"tags":       feedback.Tags,
	}).Debug("turn exchanged")

	return chat.TurnResult{
		CharacterReply: reply,
		CoachFeedback:  feedback.Text,
		DetectedTags:   append([]string(nil), feedback.Tags...),
	}, nil
}

// EndSession scores the stored transcript and asks the character for her
// impression. The session stays open so the summary can be refreshed.
func (s *Service) EndSession(ctx context.Context, sessionID string) (chat.Summary, error) {
	transcript, err := s.Transcript(ctx, sessionID)
	if err != nil {
		return chat.Summary{}, err
	}

	var participant []string
	for _, entry := range transcript {
		if entry.Origin == chat.OriginParticipant {
			participant = append(participant, entry.Body)
		}
	}

	report := impression.Evaluate(participant)
	narrative := s.responder.Impression(ctx, s.character, transcript, report.AffinityScore)
	if err := ctx.Err(); err != nil {
		return chat.Summary{}, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"affinity":   report.AffinityScore,
		"moments":    len(report.MemorableMoments),
	}).Info("session summarized")

	return chat.Summary{
		NarrativeText:    narrative,
		EmotionScores:    report.EmotionScores,
		MemorableMoments: report.MemorableMoments,
		AffinityScore:    report.AffinityScore,
	}, nil
}

// Transcript returns a copy of what the backend recorded for a session.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := make([]chat.Entry, len(sess.transcript))
	for i, entry := range sess.transcript {
		copied[i] = entry.Clone()
	}
	return copied, nil
}

// DeleteSession forgets a session. Deleting an unknown session is not an
// error.
func (s *Service) DeleteSession(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Service) record(sessionID string, entries ...chat.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.transcript = append(sess.transcript, entries...)
	return nil
}

func (s *Service) stamp(entry chat.Entry) chat.Entry {
	entry.CreatedAt = s.now().UTC()
	return entry
}
