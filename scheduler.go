// FILE: scheduler.go
// Package main – Scheduler Loop (C7, §4.7), replacing the teacher's
// single-product live.go trading loop with a multi-symbol, multi-timeframe
// evaluation cycle.
//
// Bounded concurrency is implemented with golang.org/x/sync/semaphore
// (acquire/release around each per-symbol task) rather than a hand-rolled
// worker pool, since the pack already depends on golang.org/x/sync for
// this exact purpose. Per-task failures are isolated at the task boundary
// (§7 "Propagation policy") and never abort the cycle.
package main

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

const schedulerConcurrency = 10

// Scheduler drives the evaluation pipeline continuously across the active
// universe (§4.7). It holds read-only references to C2's client and C6's
// engine; it owns no other mutable state besides the cycle counter.
type Scheduler struct {
	settings Settings
	market   *MarketDataClient
	engine   *InferenceEngine
	log      *slog.Logger
	persist  *SignalSink // optional, may be nil

	universe []string
	cycle    int
}

// NewScheduler constructs a Scheduler. universe is loaded once by the
// caller via SymbolSelector before Run is invoked (§4.7 step 1).
func NewScheduler(settings Settings, market *MarketDataClient, engine *InferenceEngine, persist *SignalSink, log *slog.Logger, universe []string) *Scheduler {
	return &Scheduler{settings: settings, market: market, engine: engine, persist: persist, log: log, universe: universe}
}

// Run executes cycles until ctx is cancelled or settings.EnableScheduler
// becomes false at a yield point (§5 "Cancellation"). It always returns
// cleanly; callers close the market client themselves.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.settings.EnableScheduler {
		s.log.Info("scheduler: disabled at startup, not running")
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		s.cycle++
		s.log.Info("scheduler: cycle start", "cycle", s.cycle, "symbols", len(s.universe))

		for _, tf := range s.settings.Timeframes {
			if ctx.Err() != nil {
				return
			}
			s.runTimeframe(ctx, tf)
		}

		mtxSchedulerCycles.Inc()
		s.log.Info("scheduler: cycle complete", "cycle", s.cycle)

		if !s.sleepInterval(ctx) {
			return
		}
		if !s.settings.EnableScheduler {
			s.log.Info("scheduler: disabled between cycles, exiting")
			return
		}
	}
}

// runTimeframe evaluates every symbol in the universe for one timeframe
// under a semaphore of capacity schedulerConcurrency (§4.7 step 2). Unless
// ctx is cancelled, it does not return until every task for this timeframe
// has finished, preserving the "timeframes run serially" ordering guarantee
// (§5); on cancellation it returns without waiting for in-flight tasks.
func (s *Scheduler) runTimeframe(ctx context.Context, tf Timeframe) {
	sem := semaphore.NewWeighted(schedulerConcurrency)
	done := make(chan struct{}, len(s.universe))

	for _, symbol := range s.universe {
		symbol := symbol
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			s.runTask(ctx, symbol, tf)
		}()
	}

	for range s.universe {
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

// runTask evaluates one (symbol, timeframe) pair. Any error is logged and
// swallowed — a per-task failure never propagates to the cycle (§7).
func (s *Scheduler) runTask(ctx context.Context, symbol string, tf Timeframe) {
	warmup := 100
	limit := s.settings.SeqLen + warmup

	candles, err := s.market.GetKlines(ctx, symbol, string(tf), limit, nil, nil)
	if err != nil {
		mtxSchedulerTaskErrors.WithLabelValues("fetch").Inc()
		s.log.Warn("scheduler: fetch failed", "symbol", symbol, "timeframe", tf, "error", err)
		return
	}

	signal, err := s.engine.Predict(candles, false, "")
	if err != nil {
		mtxSchedulerTaskErrors.WithLabelValues("predict").Inc()
		s.log.Warn("scheduler: prediction skipped", "symbol", symbol, "timeframe", tf, "error", err)
		return
	}

	mtxDecisions.WithLabelValues(string(signal.Decision)).Inc()
	s.log.Info("scheduler: signal", "symbol", symbol, "timeframe", tf,
		"decision", signal.Decision, "confidence", signal.Confidence, "probability", signal.Probability)

	if s.persist != nil {
		if err := s.persist.Save(ctx, symbol, string(tf), signal); err != nil {
			s.log.Warn("scheduler: persistence failed", "symbol", symbol, "timeframe", tf, "error", err)
		}
	}
}

func (s *Scheduler) sleepInterval(ctx context.Context) bool {
	timer := time.NewTimer(time.Duration(s.settings.FetchIntervalSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
