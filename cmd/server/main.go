package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/config"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/httpapi"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/hub"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ids"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/logging"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() {
		// Sync fails on some terminals; only report it alongside a real error.
		if syncErr := log.Sync(); err != nil {
			err = multierr.Append(err, syncErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(context.Background(), hub.Options{
		IDs:             ids.NewRandom(cfg.CodeLength),
		MinParticipants: cfg.MinParticipants,
		MaxParticipants: cfg.MaxParticipants,
		InboxSize:       cfg.InboxSize,
		Logger:          log,
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		WS: ws.Options{
			OutboxSize:     cfg.OutboxSize,
			WriteTimeout:   cfg.WSWriteTimeout,
			PingInterval:   cfg.WSPingInterval,
			OriginPatterns: cfg.AllowedOrigins,
		},
		Logger: log,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(sctx)
		h.Shutdown()
		return shutdownErr
	})

	return g.Wait()
}
