// FILE: main.go
// Package main – process entrypoint.
//
// Wiring follows the teacher's main.go shape: load settings, construct
// the long-lived collaborators explicitly (§9 "model as explicit
// construction at process start"), start the scheduler as a background
// goroutine, serve HTTP in the foreground, and shut down cleanly on
// SIGINT/SIGTERM via signal.NotifyContext (the teacher's own pattern).
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
)

func main() {
	loadBotEnv()

	settings, err := LoadSettings()
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.Error())
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}

	log := newLogger(settings.LogLevel, settings.LogFormat)
	log.Info("nirvana: starting", "rest_base", settings.RESTBase, "timeframes", settings.Timeframes, "top_n", settings.TopN)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market := NewMarketDataClient(settings.RESTBase, settings.BackoffMaxRetries, settings.BackoffJitter)
	defer market.Close()

	selector := NewSymbolSelector(market, log)
	universe := selector.GetTopNUSDT(ctx, settings.TopN)
	log.Info("nirvana: active universe loaded", "count", len(universe))

	engine := LoadInferenceEngine(settings, log)
	if !engine.Loaded() {
		log.Warn("nirvana: inference engine degraded at startup; /signal will return PASS")
	}

	var sink *SignalSink
	if settings.MongoURI != "" {
		s, err := NewSignalSink(ctx, settings.MongoURI)
		if err != nil {
			log.Warn("nirvana: signal persistence disabled", "error", err)
		} else {
			sink = s
			defer sink.Close(context.Background())
		}
	}

	scheduler := NewScheduler(settings, market, engine, sink, log, universe)
	go scheduler.Run(ctx)

	service := NewSignalService(settings, market, engine, log)
	server := &http.Server{
		Addr:    ":8080",
		Handler: service.Mux(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("nirvana: serving", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("nirvana: server error", "error", err)
		os.Exit(1)
	}
	log.Info("nirvana: shutdown complete")
}
