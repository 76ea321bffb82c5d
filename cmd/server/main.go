package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/config"
	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/DoyleJ11/draft-rooms/internal/httpapi"
	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"github.com/DoyleJ11/draft-rooms/internal/logging"
	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/store"
	"github.com/DoyleJ11/draft-rooms/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	modes := engine.DefaultModes()
	if cfg.DraftModesFile != "" {
		if modes, err = engine.LoadModes(cfg.DraftModesFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		recorder lobby.Recorder
		history  httpapi.HistoryReader
	)
	if cfg.DatabaseURL != "" {
		h, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer h.Close()
		recorder, history = h, h
		log.Info("match history enabled")
	}

	reg := registry.New(ctx, registry.Options{
		Modes:      modes,
		OutboxSize: cfg.OutboxSize,
		IdleTTL:    cfg.IdleRoomTTL,
		Recorder:   recorder,
		Logger:     log,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Registry:    reg,
			Logger:      log,
			CORSOrigins: cfg.CORSOrigins,
			History:     history,
			WS: ws.Config{
				WriteTimeout: cfg.WriteTimeout,
				PingInterval: cfg.PingInterval,
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.Int("modes", len(modes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reg.Run(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		// Lobbies close first so websocket handlers return and Shutdown can drain.
		reg.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
