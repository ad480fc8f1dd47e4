package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearNirvanaEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REST_BASE", "WS_BASE", "MODEL_DIR", "SEQ_LEN", "TOP_N", "TIMEFRAMES",
		"FETCH_INTERVAL_SECONDS", "THRESH_BUY", "MIN_INDICATOR_CONF",
		"BACKOFF_MAX_RETRIES", "BACKOFF_JITTER", "ENABLE_SCHEDULER",
		"LOG_LEVEL", "LOG_FORMAT", "DATA_CACHE_DIR", "MONGODB_URI",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearNirvanaEnv(t)
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, 128, s.SeqLen)
	assert.Equal(t, 100, s.TopN)
	assert.Equal(t, 60, s.FetchIntervalSeconds)
	assert.InDelta(t, 0.60, s.ThreshBuy, 1e-9)
	assert.Equal(t, []Timeframe{Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d}, s.Timeframes)
	assert.Equal(t, "json", s.LogFormat)
}

func TestLoadSettingsRejectsUnknownTimeframe(t *testing.T) {
	clearNirvanaEnv(t)
	t.Setenv("TIMEFRAMES", "15m,7m")
	_, err := LoadSettings()
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TIMEFRAMES", cfgErr.Field)
}

func TestLoadSettingsRejectsBadLogFormat(t *testing.T) {
	clearNirvanaEnv(t)
	t.Setenv("LOG_FORMAT", "xml")
	_, err := LoadSettings()
	require.Error(t, err)
}

func TestLoadSettingsRejectsNonPositiveSeqLen(t *testing.T) {
	clearNirvanaEnv(t)
	t.Setenv("SEQ_LEN", "0")
	_, err := LoadSettings()
	require.Error(t, err)
}
