package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

const pollInterval = 20 * time.Millisecond

// driver is the part of *practice.Orchestrator the front ends use.
type driver interface {
	Events() <-chan practice.Event
	Snapshot() practice.Snapshot
	SubmitTurn(ctx context.Context, text string) error
	RequestSummary(ctx context.Context) error
	Restart(ctx context.Context) error
	Close() error
}

var (
	youColor   = color.New(color.FgGreen, color.Bold)
	herColor   = color.New(color.FgMagenta, color.Bold)
	coachColor = color.New(color.FgCyan)
	errColor   = color.New(color.FgRed)
	dimColor   = color.New(color.Faint)
)

type linePrinter struct {
	mu            sync.Mutex
	out           io.Writer
	characterName string
}

func (p *linePrinter) println(c *color.Color, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = c.Fprintf(p.out, format+"\n", args...)
}

func (p *linePrinter) entry(e chat.Entry) {
	name := speaker(e.Origin, p.characterName)
	switch e.Origin {
	case chat.OriginParticipant:
		p.println(youColor, "%s: %s", name, e.Body)
	case chat.OriginCharacter:
		p.println(herColor, "%s: %s", name, e.Body)
	default:
		p.println(coachColor, "[%s] %s", name, strings.ReplaceAll(e.Body, "\n", "\n  "))
	}
}

// runLine drives orch from line-oriented input until EOF, /quit or ctx ends.
// Commands: /end asks for the summary, /restart starts over. Each line waits
// for the previous turn to settle so piped scripts run in order. runLine
// closes orch before returning.
func runLine(ctx context.Context, in io.Reader, out io.Writer, orch driver, characterName string) error {
	p := &linePrinter{out: out, characterName: characterName}
	var failed atomic.Bool

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range orch.Events() {
			if terminal(ev) {
				failed.Store(true)
			}
			switch ev.Kind {
			case practice.EventSessionStarted:
				failed.Store(false)
				p.println(dimColor, "Conversation started: %d turns. Type /end to finish early, /restart to start over.", ev.TurnLimit)
			case practice.EventEntryAppended:
				if ev.Entry != nil {
					p.entry(*ev.Entry)
				}
			case practice.EventCompleted:
				p.println(dimColor, "That was the last turn.")
			case practice.EventExchangeFailed, practice.EventSummaryFailed:
				p.println(errColor, "%s", describe(ev.Err))
			case practice.EventSummaryReady:
				if ev.Summary != nil {
					p.mu.Lock()
					_, _ = fmt.Fprintln(p.out)
					for _, l := range summaryLines(*ev.Summary, characterName) {
						_, _ = fmt.Fprintln(p.out, l)
					}
					p.mu.Unlock()
				}
			}
		}
	}()
	defer func() {
		_ = orch.Close()
		<-printed
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	busy := func(snap practice.Snapshot) bool {
		switch snap.State {
		case practice.StateAwaitingRemoteTurn, practice.StateStagingCharacterReply, practice.StateRequestingSummary:
			return true
		}
		return false
	}

	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			return waitFor(ctx, orch, func(snap practice.Snapshot) bool {
				return settled(snap, failed.Load())
			})
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := waitFor(ctx, orch, func(snap practice.Snapshot) bool { return !busy(snap) }); err != nil {
			return nil
		}

		var err error
		switch line {
		case "/quit":
			return nil
		case "/end":
			err = orch.RequestSummary(ctx)
		case "/restart":
			err = orch.Restart(ctx)
		default:
			err = orch.SubmitTurn(ctx, line)
		}
		if err != nil {
			p.println(errColor, "%s", describe(err))
		}
	}
}

func waitFor(ctx context.Context, orch driver, cond func(practice.Snapshot) bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if cond(orch.Snapshot()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
