// Package logging hands out component loggers backed by logrus.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure sets the level and output format shared by every component logger.
func Configure(level string, json bool) error {
	lvl := logrus.InfoLevel
	if raw := strings.TrimSpace(level); raw != "" {
		parsed, err := logrus.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", raw, err)
		}
		lvl = parsed
	}
	root.SetLevel(lvl)

	if json {
		root.SetFormatter(&logrus.JSONFormatter{})
	} else {
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetOutput redirects all component loggers, e.g. away from a TUI's screen.
func SetOutput(w io.Writer) {
	root.SetOutput(w)
}

// New returns a logger tagged with the given component name.
func New(component string) *logrus.Entry {
	return root.WithField("component", component)
}
