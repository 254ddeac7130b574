package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/deps"
	"shortlink/internal/http/server"
	"shortlink/internal/logger"
	"shortlink/internal/services/codegen"
	"shortlink/internal/services/url_shortener"

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
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := deps.OpenStore(ctx, log, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open storage")
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	links, closeCache, err := deps.Links(ctx, log, *cfg, store)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to redis")
		return err
	}
	defer closeCache()

	codes, err := codegen.New(cfg.CodeAlphabet, cfg.CodeLength, cfg.MaxRetries)
	if err != nil {
		return err
	}

	svc := url_shortener.NewServiceURLShortener(links, codes, log, url_shortener.Options{
		BaseURL:           cfg.BaseURL,
		DefaultExpiryDays: cfg.DefaultExpiryDays,
		MaxExpiryDays:     cfg.MaxExpiryDays,
	})

	srv, err := server.NewServer(log, *cfg, svc)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
