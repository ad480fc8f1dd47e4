package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newUnthrottledClient builds an httpClient against srv with the 1 req/sec
// pacing limiter replaced by an unbounded one, so retry-timing assertions
// measure only backoff sleeps, not inter-request pacing.
func newUnthrottledClient(srv *httptest.Server, maxRetries int, jitter float64, timeout time.Duration) *httpClient {
	return &httpClient{
		baseURL:    srv.URL,
		hc:         &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: maxRetries,
		jitter:     jitter,
	}
}

func TestGetSucceedsOnFirstTry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 3, 0, 5*time.Second)
	body, err := c.get(context.Background(), "/api/v3/klines", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestGetRetriesOn429ThenSucceeds implements spec.md §8 scenario 5: three
// consecutive 429s with backoff_max_retries=3, backoff_jitter=0, followed by
// a 4th attempt that succeeds. Total attempts must be 4 (maxRetries+1), and
// elapsed wait before the 4th attempt must be at least 2^0+2^1+2^2 = 7s.
func TestGetRetriesOn429ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 3, 0, 5*time.Second)

	start := time.Now()
	body, err := c.get(context.Background(), "/api/v3/klines", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, elapsed, 7*time.Second)
}

func TestGetExhaustsRetriesOnPersistent429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 2, 0, 5*time.Second)
	_, err := c.get(context.Background(), "/api/v3/klines", nil)
	require.Error(t, err)

	var unavailable *UpstreamUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts) // maxRetries(2) + 1
	assert.Equal(t, http.StatusTooManyRequests, unavailable.LastStatus)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 3, 0, 5*time.Second)
	body, err := c.get(context.Background(), "/api/v3/klines", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestGetFailsImmediatelyOn4xx covers the non-retryable path: a 4xx other
// than 429 surfaces UpstreamClientError on the first attempt, no retries.
func TestGetFailsImmediatelyOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 3, 0, 5*time.Second)
	_, err := c.get(context.Background(), "/api/v3/klines", nil)
	require.Error(t, err)

	var clientErr *UpstreamClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusNotFound, clientErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestGetRetriesOnTimeoutWithJitter covers §5's rule that a timed-out
// request enters the same backoff path as a 429 (exponential with jitter),
// not the plain 5xx curve. The server's handler sleeps past the client's
// timeout on the first call, then responds immediately on the second.
func TestGetRetriesOnTimeoutWithJitter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			time.Sleep(150 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 2, 0.3, 50*time.Millisecond)
	body, err := c.get(context.Background(), "/api/v3/klines", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetRespectsContextCancellationDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newUnthrottledClient(srv, 5, 0, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.get(ctx, "/api/v3/klines", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
