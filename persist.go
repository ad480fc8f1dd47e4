// FILE: persist.go
// Package main – Optional signal-persistence sink (§4.7 "optionally
// persist to a queue/database (treated as external)").
//
// Adapted from ndrandal-feed-simulator's internal/persist Store: connect
// with options.Client().ApplyURI, ping once, derive the database name
// from the URI path. Persistence is explicitly out of the core per
// spec.md §1, so failures here never affect the Signal returned to a
// caller — SignalSink.Save is best-effort and its errors are only logged
// by the calling scheduler task.
package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SignalSink is an optional write-behind store for emitted Signals.
type SignalSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// signalDocument is the persisted shape of one emitted Signal.
type signalDocument struct {
	Symbol      string    `bson:"symbol"`
	Timeframe   string    `bson:"timeframe"`
	Decision    string    `bson:"decision"`
	Confidence  float64   `bson:"confidence"`
	Probability float64   `bson:"probability"`
	Uncertainty *float64  `bson:"uncertainty,omitempty"`
	ModelID     string    `bson:"model_id"`
	Reasoning   []string  `bson:"reasoning"`
	EmittedAt   time.Time `bson:"emitted_at"`
}

// NewSignalSink connects to uri and returns a sink backed by the
// "signals" collection of the database named in the URI path (default
// "nirvana"). Returns an error if the server cannot be pinged.
func NewSignalSink(ctx context.Context, uri string) (*SignalSink, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	dbName := "nirvana"
	if u, err := url.Parse(uri); err == nil {
		if p := strings.TrimPrefix(u.Path, "/"); p != "" {
			dbName = p
		}
	}
	db := client.Database(dbName)
	return &SignalSink{client: client, coll: db.Collection("signals")}, nil
}

// Close disconnects the underlying client. Idempotent.
func (s *SignalSink) Close(ctx context.Context) {
	if s != nil && s.client != nil {
		_ = s.client.Disconnect(ctx)
	}
}

// Save writes one Signal document. Best-effort: callers log failures and
// continue (§4.7 persistence is "treated as external").
func (s *SignalSink) Save(ctx context.Context, symbol, timeframe string, sig Signal) error {
	doc := signalDocument{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Decision:    string(sig.Decision),
		Confidence:  sig.Confidence,
		Probability: sig.Probability,
		Uncertainty: sig.Uncertainty,
		ModelID:     sig.ModelID,
		Reasoning:   sig.Reasoning,
		EmittedAt:   time.Now().UTC(),
	}
	_, err := s.coll.InsertOne(ctx, doc)
	return err
}
