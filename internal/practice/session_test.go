package practice

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

func TestNewSessionDefaultsTurnLimit(t *testing.T) {
	assert.Equal(t, DefaultTurnLimit, NewSession(0).TurnLimit())
	assert.Equal(t, 3, NewSession(3).TurnLimit())
}

func TestRecordTurnCompletesOnceAtLimit(t *testing.T) {
	s := NewSession(2)
	var completions int
	s.setListener(func(ev Event) {
		if ev.Kind == EventCompleted {
			completions++
		}
	})

	turn, reached, err := s.recordTurn()
	require.NoError(t, err)
	assert.Equal(t, 1, turn)
	assert.False(t, reached)
	assert.False(t, s.Completed())

	turn, reached, err = s.recordTurn()
	require.NoError(t, err)
	assert.Equal(t, 2, turn)
	assert.True(t, reached)
	assert.True(t, s.Completed())

	_, reached, err = s.recordTurn()
	require.NoError(t, err)
	assert.False(t, reached)
	assert.True(t, s.Completed())
	assert.Equal(t, 1, completions)
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := NewSession(5)
	var completions int
	s.setListener(func(ev Event) {
		if ev.Kind == EventCompleted {
			completions++
		}
	})

	assert.True(t, s.markCompleted())
	assert.False(t, s.markCompleted())
	assert.True(t, s.Completed())
	assert.Equal(t, 1, completions)

	_, reached, err := s.recordTurn()
	require.NoError(t, err)
	assert.False(t, reached, "already completed sessions never complete again")
}

func TestSessionStart(t *testing.T) {
	gw := newFakeGateway()
	s := NewSession(5)
	assert.False(t, s.Started())

	require.NoError(t, s.start(context.Background(), gw))
	assert.Equal(t, "session-1", s.ID())
	assert.False(t, s.CreatedAt().IsZero())

	require.NoError(t, s.start(context.Background(), gw))
	assert.Equal(t, "session-1", s.ID())
}

func TestSessionStartErrors(t *testing.T) {
	gw := newFakeGateway()
	gw.sessionID = ""
	s := NewSession(5)

	err := s.start(context.Background(), gw)
	var initErr *SessionInitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, ErrMissingSessionID)
	assert.False(t, s.Started())

	boom := errors.New("dial tcp: refused")
	gw.setCreateErr(boom)
	err = s.start(context.Background(), gw)
	assert.ErrorIs(t, err, boom)

	s.discard()
	assert.ErrorIs(t, s.start(context.Background(), gw), ErrSessionDiscarded)
}

func TestDiscardedSessionRejectsWrites(t *testing.T) {
	s := NewSession(5)
	_, err := s.appendEntry(chat.ParticipantEntry("hi"))
	require.NoError(t, err)

	s.discard()
	_, err = s.appendEntry(chat.CharacterEntry("late"))
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	_, _, err = s.recordTurn()
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	assert.False(t, s.markCompleted())
	assert.Len(t, s.Entries(), 1)
}

func TestAppendEntryNotifiesListener(t *testing.T) {
	s := NewSession(5)
	var got []Event
	s.setListener(func(ev Event) { got = append(got, ev) })

	_, err := s.appendEntry(chat.CoachEntry("slow down", []string{"pace"}))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, EventEntryAppended, got[0].Kind)
	assert.Equal(t, 0, got[0].Index)
	require.NotNil(t, got[0].Entry)
	assert.Equal(t, []string{"pace"}, got[0].Entry.Tags)
}

func TestSessionExportsOnlyReaders(t *testing.T) {
	readers := []string{"CreatedAt", "Completed", "Discarded", "Entries", "ID", "Started", "TurnCount", "TurnLimit"}

	typ := reflect.TypeOf(&Session{})
	var exported []string
	for i := 0; i < typ.NumMethod(); i++ {
		exported = append(exported, typ.Method(i).Name)
	}
	assert.ElementsMatch(t, readers, exported, "sessions change only through the orchestrator")
}
