package main

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRunExitsImmediatelyWhenDisabled(t *testing.T) {
	settings := testSettings()
	settings.EnableScheduler = false
	settings.Timeframes = []Timeframe{Timeframe1h}

	market := NewMarketDataClient("http://127.0.0.1:0", 1, 0)
	defer market.Close()
	engine := &InferenceEngine{settings: settings, log: testLogger(), state: EngineDegraded}

	s := NewScheduler(settings, market, engine, nil, testLogger(), []string{"BTCUSDT"})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit promptly when scheduler disabled")
	}
}

func TestSchedulerRunRespectsCancellation(t *testing.T) {
	settings := testSettings()
	settings.EnableScheduler = true
	settings.FetchIntervalSeconds = 60
	settings.Timeframes = []Timeframe{Timeframe1h}

	market := NewMarketDataClient("http://127.0.0.1:0", 1, 0)
	defer market.Close()
	engine := &InferenceEngine{settings: settings, log: testLogger(), state: EngineDegraded}

	s := NewScheduler(settings, market, engine, nil, testLogger(), []string{"BTCUSDT"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not exit promptly after cancellation")
	}
}
