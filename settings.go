// FILE: settings.go
// Package main – Typed, environment-backed configuration (C1).
//
// Settings is read once at process start into an immutable record. The
// .env parse step uses godotenv (the teacher's own hand-rolled reader is
// replaced because the full variable list below is too large to hand-list
// in an allow-map); the typed getEnv*/getEnvInt accessors keep the
// teacher's env.go idiom.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds every tunable value recognized by the core (§4.1, §6).
type Settings struct {
	RESTBase string
	WSBase   string
	ModelDir string

	SeqLen     int
	Timeframes []Timeframe
	TopN       int

	FetchIntervalSeconds int
	ThreshBuy            float64
	MinIndicatorConf     float64

	BackoffMaxRetries int
	BackoffJitter     float64

	EnableScheduler bool

	LogLevel  string
	LogFormat string // "json" or "text"

	DataCacheDir string
	MongoURI     string
}

// loadBotEnv reads ./.env (and ../.env, teacher's search order) into the
// process environment without overriding variables already set.
func loadBotEnv() {
	for _, path := range []string{".env", "../.env"} {
		_ = godotenv.Load(path) // missing files are not an error
	}
}

// LoadSettings reads the process environment (after loadBotEnv) into a
// Settings value, failing with ConfigurationError on malformed input. An
// unrecognized ENABLE_SCHEDULER value is not an error: it takes the default.
func LoadSettings() (Settings, error) {
	s := Settings{
		RESTBase:             getEnv("REST_BASE", "https://api.binance.com"),
		WSBase:               getEnv("WS_BASE", "wss://stream.binance.com:9443"),
		ModelDir:             getEnv("MODEL_DIR", "artifacts/model"),
		SeqLen:               getEnvInt("SEQ_LEN", 128),
		TopN:                 getEnvInt("TOP_N", 100),
		FetchIntervalSeconds: getEnvInt("FETCH_INTERVAL_SECONDS", 60),
		ThreshBuy:            getEnvFloat("THRESH_BUY", 0.60),
		MinIndicatorConf:     getEnvFloat("MIN_INDICATOR_CONF", 3),
		BackoffMaxRetries:    getEnvInt("BACKOFF_MAX_RETRIES", 5),
		BackoffJitter:        getEnvFloat("BACKOFF_JITTER", 0.3),
		EnableScheduler:      getEnvBool("ENABLE_SCHEDULER", true),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		DataCacheDir:         getEnv("DATA_CACHE_DIR", "data/cache"),
		MongoURI:             getEnv("MONGODB_URI", ""),
	}

	for _, key := range []string{"SEQ_LEN", "TOP_N", "FETCH_INTERVAL_SECONDS", "BACKOFF_MAX_RETRIES", "THRESH_BUY", "MIN_INDICATOR_CONF", "BACKOFF_JITTER"} {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		var err error
		switch key {
		case "THRESH_BUY", "MIN_INDICATOR_CONF", "BACKOFF_JITTER":
			_, err = strconv.ParseFloat(v, 64)
		default:
			_, err = strconv.Atoi(v)
		}
		if err != nil {
			return Settings{}, &ConfigurationError{Field: key, Cause: err}
		}
	}

	tfs, err := parseTimeframes(getEnv("TIMEFRAMES", "15m,1h,4h,1d"))
	if err != nil {
		return Settings{}, &ConfigurationError{Field: "TIMEFRAMES", Cause: err}
	}
	s.Timeframes = tfs

	if s.SeqLen <= 0 {
		return Settings{}, &ConfigurationError{Field: "SEQ_LEN", Cause: fmt.Errorf("must be positive, got %d", s.SeqLen)}
	}
	if s.TopN <= 0 {
		return Settings{}, &ConfigurationError{Field: "TOP_N", Cause: fmt.Errorf("must be positive, got %d", s.TopN)}
	}
	if s.LogFormat != "json" && s.LogFormat != "text" {
		return Settings{}, &ConfigurationError{Field: "LOG_FORMAT", Cause: fmt.Errorf("must be json or text, got %q", s.LogFormat)}
	}
	return s, nil
}

func parseTimeframes(raw string) ([]Timeframe, error) {
	var out []Timeframe
	for _, part := range strings.Split(raw, ",") {
		tf := strings.TrimSpace(part)
		if tf == "" {
			continue
		}
		if !ValidTimeframe(tf) {
			return nil, fmt.Errorf("unrecognized timeframe %q", tf)
		}
		out = append(out, Timeframe(tf))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timeframes configured")
	}
	return out, nil
}

// --------- typed env accessors (teacher's env.go idiom) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
