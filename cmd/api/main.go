package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/tennokoe/internal/app"
	"github.com/zhouzirui/tennokoe/internal/config"
	"github.com/zhouzirui/tennokoe/internal/handler"
	"github.com/zhouzirui/tennokoe/internal/logging"
)

var log = logging.New("api")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("no .env file, using process environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.JSON); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	backend, err := app.NewBackend(ctx, cfg, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to build conversation backend")
	}

	router := handler.NewRouter(handler.Dependencies{
		Personas:       backend.Personas,
		Conversation:   backend.Conversation,
		TurnLimit:      cfg.Practice.TurnLimit,
		Practice:       app.PracticeOptions(cfg.Practice),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AIEnabled:      backend.AI.Enabled(),
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.WithField("addr", serverCfg.Addr).Info("practice backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
