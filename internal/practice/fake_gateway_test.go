package practice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

type fakeGateway struct {
	mu sync.Mutex

	createErr error
	sessionID string
	sessions  int

	exchange      func(turn int, text string, prior []chat.Entry) (chat.TurnResult, error)
	exchangeCalls int
	priors        [][]chat.Entry
	blockExchange bool
	cancelled     int

	endErr    error
	endCalls  int
	narrative string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessionID: "session"}
}

func (g *fakeGateway) CreateSession(ctx context.Context) (chat.SessionHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return chat.SessionHandle{}, g.createErr
	}
	g.sessions++
	id := g.sessionID
	if id != "" {
		id = fmt.Sprintf("%s-%d", g.sessionID, g.sessions)
	}
	return chat.SessionHandle{ID: id, CreatedAt: time.Now().UTC()}, nil
}

func (g *fakeGateway) ExchangeTurn(ctx context.Context, sessionID, text string, prior []chat.Entry) (chat.TurnResult, error) {
	g.mu.Lock()
	g.exchangeCalls++
	turn := g.exchangeCalls
	g.priors = append(g.priors, prior)
	block, exchange := g.blockExchange, g.exchange
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		g.mu.Lock()
		g.cancelled++
		g.mu.Unlock()
		return chat.TurnResult{}, ctx.Err()
	}
	if exchange != nil {
		return exchange(turn, text, prior)
	}
	return chat.TurnResult{
		CharacterReply: fmt.Sprintf("reply %d", turn),
		CoachFeedback:  fmt.Sprintf("feedback %d", turn),
		DetectedTags:   []string{"warm"},
	}, nil
}

func (g *fakeGateway) EndSession(ctx context.Context, sessionID string) (chat.Summary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endCalls++
	if g.endErr != nil {
		return chat.Summary{}, g.endErr
	}
	scores := chat.NewEmotionScores()
	scores.Set("fun", 80)
	scores.Set("comfort", 120)
	narrative := g.narrative
	if narrative == "" {
		narrative = fmt.Sprintf("summary %d", g.endCalls)
	}
	return chat.Summary{
		NarrativeText:    narrative,
		EmotionScores:    scores,
		MemorableMoments: []string{"laughed together"},
		AffinityScore:    72,
	}, nil
}

func (g *fakeGateway) counts() (exchanges, ends int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exchangeCalls, g.endCalls
}

func (g *fakeGateway) setEndErr(err error) {
	g.mu.Lock()
	g.endErr = err
	g.mu.Unlock()
}

func (g *fakeGateway) setCreateErr(err error) {
	g.mu.Lock()
	g.createErr = err
	g.mu.Unlock()
}

func (g *fakeGateway) cancelledCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}
