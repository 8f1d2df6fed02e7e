package practice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

const (
	DefaultRevealDelay  = 800 * time.Millisecond
	DefaultSummaryDelay = time.Second
	defaultEventBuffer  = 256
)

// Options tunes the pacing of an Orchestrator.
type Options struct {
	// RevealDelay is how long a character reply stays staged before it is
	// appended to the log.
	RevealDelay time.Duration
	// SummaryDelay separates the final character reply from the automatic
	// summary request.
	SummaryDelay time.Duration
	// EventBuffer is the capacity of the Events channel. Events are dropped
	// when nobody drains it.
	EventBuffer int
	Logger      *logrus.Entry
}

// DefaultOptions returns the pacing used by the interactive front ends.
func DefaultOptions() Options {
	return Options{
		RevealDelay:  DefaultRevealDelay,
		SummaryDelay: DefaultSummaryDelay,
		EventBuffer:  defaultEventBuffer,
	}
}

// Orchestrator drives one practice conversation: it accepts participant
// turns, relays them to the gateway, stages the replies and requests the
// closing summary.
//
// Every mutation of the session, the log and the state happens on a single
// loop goroutine. Gateway calls and presentation delays run off the loop and
// post their continuation back tagged with the generation they were issued
// in; Close and Restart move to a new generation so late continuations are
// dropped.
type Orchestrator struct {
	gw   Gateway
	opts Options
	log  *logrus.Entry

	cmds      chan func()
	events    chan Event
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	session *Session
	state   State
	summary *chat.Summary

	// loop-owned
	gen              uint64
	genCtx           context.Context
	genCancel        context.CancelFunc
	timers           map[uint64]*time.Timer
	nextTimer        uint64
	announced        bool
	summaryRequested bool
	summaryPending   bool
	closed           bool
}

// NewOrchestrator takes ownership of session and starts the loop. Call Close
// to release it.
func NewOrchestrator(session *Session, gw Gateway, opts Options) *Orchestrator {
	if session == nil {
		session = NewSession(DefaultTurnLimit)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.RevealDelay < 0 {
		opts.RevealDelay = 0
	}
	if opts.SummaryDelay < 0 {
		opts.SummaryDelay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("practice")
	}

	o := &Orchestrator{
		gw:     gw,
		opts:   opts,
		log:    logger,
		cmds:   make(chan func()),
		events: make(chan Event, opts.EventBuffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		state:  StateIdle,
		timers: make(map[uint64]*time.Timer),
	}
	o.genCtx, o.genCancel = context.WithCancel(context.Background())
	o.install(session)

	go o.run()
	return o
}

// Events delivers state changes to a presentation layer. The channel is
// closed once the orchestrator is closed.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns the current orchestration state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Summary returns the last retrieved summary, or nil. The value is shared
// and must be treated as read-only.
func (o *Orchestrator) Summary() *chat.Summary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.summary
}

// Snapshot reads everything a presentation layer renders.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	session, state, summary := o.session, o.state, o.summary
	o.mu.RUnlock()

	snap := session.snapshot()
	snap.State = state
	snap.Summary = summary
	return snap
}

// Start opens the session on the gateway. It is safe to call again after a
// failure; a started session is left untouched.
func (o *Orchestrator) Start(ctx context.Context) error {
	var (
		session *Session
		gen     uint64
		genCtx  context.Context
	)
	err := o.exec(ctx, func() error {
		if o.closed {
			return ErrClosed
		}
		session, gen, genCtx = o.session, o.gen, o.genCtx
		return nil
	})
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(genCtx, cancel)
	defer stop()

	if err := session.start(callCtx, o.gw); err != nil {
		o.log.WithError(err).Warn("practice session could not be started")
		return err
	}

	return o.exec(ctx, func() error {
		if o.closed {
			return ErrClosed
		}
		if gen != o.gen {
			return ErrSessionDiscarded
		}
		if !o.announced {
			o.announced = true
			o.log.WithField("session_id", session.ID()).Info("practice session started")
			o.emit(Event{Kind: EventSessionStarted, TurnLimit: session.TurnLimit()})
		}
		return nil
	})
}

// SubmitTurn records a participant turn and hands it to the gateway. The
// participant entry is in the log when SubmitTurn returns; the coach feedback
// and the character reply follow asynchronously. ctx only bounds the wait for
// the loop; the gateway call belongs to the session.
func (o *Orchestrator) SubmitTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTurn
	}

	return o.exec(ctx, func() error {
		if o.closed {
			return ErrClosed
		}
		session := o.session
		if !session.Started() {
			return ErrSessionNotStarted
		}
		if session.Completed() {
			return ErrSessionCompleted
		}
		switch o.currentState() {
		case StateAwaitingRemoteTurn, StateStagingCharacterReply:
			return ErrTurnInFlight
		case StateRequestingSummary:
			return ErrSummaryInFlight
		}

		prior := session.Entries()
		if _, err := session.appendEntry(chat.ParticipantEntry(text)); err != nil {
			return err
		}
		turn, reachedLimit, err := session.recordTurn()
		if err != nil {
			return err
		}
		o.setState(StateAwaitingRemoteTurn)

		gen, callCtx, sessionID := o.gen, o.genCtx, session.ID()
		o.log.WithFields(logrus.Fields{"session_id": sessionID, "turn": turn}).Debug("turn submitted")

		go func() {
			result, err := o.gw.ExchangeTurn(callCtx, sessionID, text, prior)
			o.post(gen, func() {
				o.finishExchange(turn, reachedLimit, result, err)
			})
		}()
		return nil
	})
}

// RequestSummary ends the conversation early and asks the gateway for the
// impression report. It may be repeated once a summary exists to refresh it.
func (o *Orchestrator) RequestSummary(ctx context.Context) error {
	return o.exec(ctx, func() error {
		if o.closed {
			return ErrClosed
		}
		if !o.session.Started() {
			return ErrSessionNotStarted
		}
		if o.summaryPending {
			return ErrSummaryInFlight
		}
		if o.currentState() == StateAwaitingRemoteTurn {
			return ErrTurnInFlight
		}
		o.beginSummary(false)
		return nil
	})
}

// Restart discards the current session, including anything staged or in
// flight, and starts a fresh one with the same turn limit.
func (o *Orchestrator) Restart(ctx context.Context) error {
	err := o.exec(ctx, func() error {
		if o.closed {
			return ErrClosed
		}
		limit := o.session.TurnLimit()
		o.resetGeneration()
		o.session.discard()
		o.install(NewSession(limit))
		return nil
	})
	if err != nil {
		return err
	}
	return o.Start(ctx)
}

// Close cancels outstanding gateway calls, drops staged replies and stops
// the loop. The session is discarded and rejects further writes.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		_ = o.exec(context.Background(), func() error {
			o.closed = true
			o.resetGeneration()
			o.session.discard()
			return nil
		})
		close(o.done)
		<-o.exited
	})
	return nil
}

func (o *Orchestrator) run() {
	defer close(o.exited)
	defer close(o.events)

	for {
		select {
		case fn := <-o.cmds:
			fn()
		case <-o.done:
			return
		}
	}
}

// exec runs fn on the loop and waits for its result.
func (o *Orchestrator) exec(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case o.cmds <- func() { result <- fn() }:
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

// post hands a continuation issued in generation gen back to the loop. It
// is dropped when the generation has moved on.
func (o *Orchestrator) post(gen uint64, fn func()) {
	wrapped := func() {
		if o.closed || gen != o.gen {
			o.log.WithFields(logrus.Fields{"generation": gen, "current": o.gen}).Debug("dropping stale continuation")
			return
		}
		fn()
	}
	select {
	case o.cmds <- wrapped:
	case <-o.done:
	}
}

// schedule runs fn on the loop after d unless the generation changes first.
func (o *Orchestrator) schedule(d time.Duration, fn func()) {
	id := o.nextTimer
	o.nextTimer++
	gen := o.gen
	o.timers[id] = time.AfterFunc(d, func() {
		o.post(gen, func() {
			delete(o.timers, id)
			fn()
		})
	})
}

func (o *Orchestrator) resetGeneration() {
	for id, timer := range o.timers {
		timer.Stop()
		delete(o.timers, id)
	}
	o.genCancel()
	o.gen++
	o.genCtx, o.genCancel = context.WithCancel(context.Background())
}

// install makes session the current one and resets per-session flags.
func (o *Orchestrator) install(session *Session) {
	o.announced = false
	o.summaryRequested = false
	o.summaryPending = false

	o.mu.Lock()
	o.session = session
	o.summary = nil
	from := o.state
	o.state = StateIdle
	o.mu.Unlock()

	session.setListener(o.emit)
	if from != StateIdle {
		o.emit(Event{Kind: EventStateChanged, From: from, To: StateIdle})
	}
}

func (o *Orchestrator) currentState() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	from := o.state
	if from == to {
		o.mu.Unlock()
		return
	}
	if !from.CanTransition(to) {
		o.mu.Unlock()
		o.log.WithFields(logrus.Fields{"from": from, "to": to}).Error("illegal state transition ignored")
		return
	}
	o.state = to
	o.mu.Unlock()

	o.emit(Event{Kind: EventStateChanged, From: from, To: to})
}

func (o *Orchestrator) finishExchange(turn int, reachedLimit bool, result chat.TurnResult, err error) {
	session := o.session
	if err != nil {
		exchangeErr := &ExchangeError{SessionID: session.ID(), Turn: turn, Err: err}
		o.log.WithError(err).WithFields(logrus.Fields{
			"session_id": session.ID(),
			"turn":       turn,
		}).Warn("turn exchange failed")
		o.setState(StateIdle)
		o.emit(Event{
			Kind:      EventExchangeFailed,
			TurnCount: turn,
			TurnLimit: session.TurnLimit(),
			Err:       exchangeErr,
		})
		return
	}

	if feedback := strings.TrimSpace(result.CoachFeedback); feedback != "" {
		if _, err := session.appendEntry(chat.CoachEntry(feedback, result.DetectedTags)); err != nil {
			o.log.WithError(err).Error("append coach feedback")
		}
	}

	o.setState(StateStagingCharacterReply)
	reply := result.CharacterReply
	o.schedule(o.opts.RevealDelay, func() {
		o.revealReply(turn, reachedLimit, reply)
	})
}

func (o *Orchestrator) revealReply(turn int, reachedLimit bool, reply string) {
	session := o.session
	if strings.TrimSpace(reply) == "" {
		o.log.WithFields(logrus.Fields{"session_id": session.ID(), "turn": turn}).Warn("gateway returned an empty character reply")
	} else if _, err := session.appendEntry(chat.CharacterEntry(reply)); err != nil {
		o.log.WithError(err).Error("append character reply")
	}

	if o.currentState() == StateStagingCharacterReply {
		o.setState(StateIdle)
	}

	if reachedLimit && !o.summaryRequested {
		o.schedule(o.opts.SummaryDelay, func() {
			if o.summaryRequested {
				return
			}
			o.beginSummary(true)
		})
	}
}

func (o *Orchestrator) beginSummary(automatic bool) {
	session := o.session
	o.summaryRequested = true
	o.summaryPending = true
	session.markCompleted()
	o.setState(StateRequestingSummary)

	gen, callCtx, sessionID := o.gen, o.genCtx, session.ID()
	o.log.WithFields(logrus.Fields{"session_id": sessionID, "automatic": automatic}).Info("requesting summary")

	go func() {
		summary, err := o.gw.EndSession(callCtx, sessionID)
		o.post(gen, func() {
			o.finishSummary(automatic, summary, err)
		})
	}()
}

func (o *Orchestrator) finishSummary(automatic bool, summary chat.Summary, err error) {
	o.summaryPending = false
	session := o.session

	if err != nil {
		summaryErr := &SummaryError{SessionID: session.ID(), Automatic: automatic, Err: err}
		o.log.WithError(err).WithField("session_id", session.ID()).Warn("summary request failed")
		if o.Summary() != nil {
			o.setState(StateSummaryReady)
		} else {
			o.setState(StateIdle)
		}
		o.emit(Event{Kind: EventSummaryFailed, Err: summaryErr})
		return
	}

	normalized := summary.Normalize()
	o.mu.Lock()
	o.summary = &normalized
	o.mu.Unlock()

	o.setState(StateSummaryReady)
	o.emit(Event{Kind: EventSummaryReady, Summary: &normalized})
}

// emit publishes ev without blocking the loop.
func (o *Orchestrator) emit(ev Event) {
	ev.Generation = o.gen
	if ev.SessionID == "" && o.session != nil {
		ev.SessionID = o.session.ID()
	}
	select {
	case o.events <- ev:
	default:
		o.log.WithField("kind", ev.Kind).Warn("event buffer full, dropping event")
	}
}
