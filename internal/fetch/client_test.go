package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client against handler with instant, recorded sleeps.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) (*Client, *httptest.Server, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var slept []time.Duration
	opts.HTTPClient = server.Client()
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return New(opts), server, &slept
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		budget   int
	}{
		{name: "first attempt", failures: 0, budget: 20},
		{name: "succeeds on attempt 5", failures: 4, budget: 20},
		{name: "succeeds on last attempt", failures: 19, budget: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c, server, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if int(calls.Add(1)) <= tt.failures {
					http.Error(w, "upstream busy", http.StatusServiceUnavailable)
					return
				}
				_, _ = w.Write([]byte(`{"count":0,"results":[],"next":null}`))
			}, Options{Retry: RetryPolicy{MaxAttempts: tt.budget, MinWait: 2 * time.Second, MaxWait: 30 * time.Second}})

			resp, err := c.Get(context.Background(), server.URL+"/courses", nil)
			require.NoError(t, err)
			assert.JSONEq(t, `{"count":0,"results":[],"next":null}`, string(resp.Body))
			assert.Equal(t, tt.failures+1, int(calls.Load()))
			assert.Len(t, *slept, tt.failures)
			for _, d := range *slept {
				assert.GreaterOrEqual(t, d, 2*time.Second)
				assert.Less(t, d, 30*time.Second)
			}
		})
	}
}

func TestGet_ExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	c, server, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}, Options{Retry: RetryPolicy{MaxAttempts: 5}})

	_, err := c.Get(context.Background(), server.URL+"/programs", nil)
	require.Error(t, err)

	assert.ErrorIs(t, err, domainerrors.ErrFetchFailed)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "nope")

	assert.Equal(t, int32(5), calls.Load(), "no attempts beyond the budget")
	assert.Len(t, *slept, 4, "no sleep after the final attempt")
}

func TestGet_InvalidJSONIsRetried(t *testing.T) {
	var calls atomic.Int32
	c, server, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, Options{Retry: RetryPolicy{MaxAttempts: 3}})

	_, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_InvalidJSONExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	c, server, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}, Options{Retry: RetryPolicy{MaxAttempts: 2}})

	_, err := c.Get(context.Background(), server.URL+"/courses", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrFetchFailed)
	assert.ErrorIs(t, err, ErrInvalidJSON)
	assert.Contains(t, err.Error(), server.URL+"/courses")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_SendsCredentialHeader(t *testing.T) {
	var got string
	c, server, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}, Options{})

	_, err := c.Get(context.Background(), server.URL, http.Header{"Authorization": []string{"JWT abc"}})
	require.NoError(t, err)
	assert.Equal(t, "JWT abc", got)
}

func TestGet_SnapshotReplay(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	handler := func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Cache-Status", "MISS")
		_, _ = w.Write([]byte(`{"count":1}`))
	}

	// First run records.
	c, server, _ := newTestClient(t, handler, Options{Snapshots: snapshot.New(dir, true)})
	url := server.URL + "/currency"
	_, err := c.Get(context.Background(), url, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	// Second run, fresh store on the same directory, replays.
	replay := New(Options{HTTPClient: server.Client(), Snapshots: snapshot.New(dir, true)})
	resp, err := replay.Get(context.Background(), url, nil)
	require.NoError(t, err)

	assert.True(t, resp.FromSnapshot)
	assert.JSONEq(t, `{"count":1}`, string(resp.Body))
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache-Status"))
	assert.Equal(t, int32(1), calls.Load(), "replay must not touch the network")
}

func TestGet_ContextCanceledStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Options{
		HTTPClient: server.Client(),
		Retry:      RetryPolicy{MaxAttempts: 20},
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	})

	_, err := c.Get(ctx, server.URL, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON(t *testing.T) {
	c, server, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":2,"next":"http://x/?page=2"}`))
	}, Options{})

	type page struct {
		Count int     `json:"count"`
		Next  *string `json:"next"`
	}
	got, resp, err := GetJSON[page](context.Background(), c, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
	require.NotNil(t, got.Next)
	assert.Equal(t, "http://x/?page=2", *got.Next)
	assert.NotNil(t, resp)
}

func TestUniformJitter(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := uniformJitter(2*time.Second, 30*time.Second)
		require.GreaterOrEqual(t, d, 2*time.Second)
		require.Less(t, d, 30*time.Second)
	}
	assert.Equal(t, time.Second, uniformJitter(time.Second, time.Second))
}
