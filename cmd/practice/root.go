package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/tennokoe/internal/app"
	"github.com/zhouzirui/tennokoe/internal/config"
	"github.com/zhouzirui/tennokoe/internal/gateway/remote"
	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

type rootOptions struct {
	server       string
	local        bool
	turns        int
	character    string
	plain        bool
	logLevel     string
	logFile      string
	revealDelay  time.Duration
	summaryDelay time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice a short conversation and get coached along the way",
		Long: `Starts a practice conversation with the configured character.

Each of your turns gets a coaching note followed by the character's reply.
After the last turn, or when you end early, the character tells you how the
conversation felt to her.

Examples:
  practice                         # talk to the backend at PRACTICE_SERVER_URL
  practice --local                 # run the conversation backend in-process
  practice --turns 3 --plain       # line mode, three turns`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "", "backend base URL (default PRACTICE_SERVER_URL)")
	flags.BoolVar(&opts.local, "local", false, "run the conversation backend in-process instead of over HTTP")
	flags.IntVar(&opts.turns, "turns", 0, "turns before the conversation ends (default PRACTICE_TURN_LIMIT)")
	flags.StringVar(&opts.character, "character", "", "persona id to talk to with --local (default PRACTICE_CHARACTER)")
	flags.BoolVar(&opts.plain, "plain", false, "use line mode even on a terminal")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.DurationVar(&opts.revealDelay, "reveal-delay", -1, "pause before the character's reply appears (default PRACTICE_REVEAL_DELAY)")
	flags.DurationVar(&opts.summaryDelay, "summary-delay", -1, "pause before the closing summary is requested (default PRACTICE_SUMMARY_DELAY)")

	return cmd
}

func runPractice(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyFlags(cfg, opts)

	if err := logging.Configure(opts.logLevel, false); err != nil {
		return err
	}
	tui := !opts.plain && isTerminal(os.Stdin) && isTerminal(os.Stdout)
	closeLog, err := redirectLogs(opts.logFile, tui)
	if err != nil {
		return err
	}
	defer closeLog()

	gateway, characterName, err := buildGateway(ctx, cfg, opts.local)
	if err != nil {
		return err
	}

	orch := practice.NewOrchestrator(practice.NewSession(cfg.Practice.TurnLimit), gateway, app.PracticeOptions(cfg.Practice))
	if err := orch.Start(ctx); err != nil {
		_ = orch.Close()
		return fmt.Errorf("could not open a practice session: %w", err)
	}

	if tui {
		return runTUI(ctx, orch, characterName)
	}
	return runLine(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), orch, characterName)
}

func applyFlags(cfg *config.Config, opts *rootOptions) {
	if opts.server != "" {
		cfg.Practice.ServerURL = opts.server
	}
	if opts.turns > 0 {
		cfg.Practice.TurnLimit = opts.turns
	}
	if opts.character != "" {
		cfg.Practice.CharacterID = opts.character
	}
	if opts.revealDelay >= 0 {
		cfg.Practice.RevealDelay = opts.revealDelay
	}
	if opts.summaryDelay >= 0 {
		cfg.Practice.SummaryDelay = opts.summaryDelay
	}
}

// buildGateway returns the backend to talk to and the character's display
// name. Over HTTP the name is best effort; sessions work without it.
func buildGateway(ctx context.Context, cfg *config.Config, local bool) (practice.Gateway, string, error) {
	if !local {
		client := remote.New(cfg.Practice.ServerURL)
		name := "Her"
		if p, err := client.ActivePersona(ctx); err == nil && p.Name != "" {
			name = p.Name
		}
		return client, name, nil
	}
	backend, err := app.NewBackend(ctx, cfg, nil)
	if err != nil {
		return nil, "", err
	}
	return backend.Conversation, backend.Character.Name, nil
}

func redirectLogs(path string, tui bool) (func(), error) {
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logging.SetOutput(f)
		return func() { _ = f.Close() }, nil
	case tui:
		logging.SetOutput(io.Discard)
	}
	return func() {}, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
