// Package fetch performs credentialed JSON GETs with snapshot replay and
// jittered retries.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/snapshot"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 20
	defaultMinWait     = 2 * time.Second
	defaultMaxWait     = 30 * time.Second
	userAgent          = "catalog-source/1.0"
)

// RetryPolicy bounds the attempts for one URL.
type RetryPolicy struct {
	MaxAttempts int
	// Waits between attempts are drawn uniformly from [MinWait, MaxWait).
	MinWait time.Duration
	MaxWait time.Duration
}

// DefaultRetryPolicy is 20 attempts with 2s to 30s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: defaultMaxAttempts, MinWait: defaultMinWait, MaxWait: defaultMaxWait}
}

// Snapshots is the replay store consulted before the network.
type Snapshots interface {
	Exists(url string) (bool, error)
	Load(url string) (*snapshot.Entry, error)
	Save(url string, e *snapshot.Entry) error
}

// Response is a successful JSON response.
type Response struct {
	URL          string
	Header       http.Header
	Body         []byte
	FromSnapshot bool
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	HTTPClient *http.Client
	Snapshots  Snapshots
	Retry      RetryPolicy
	Logger     *logger.Logger

	// Sleep and Jitter are replaced in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(lo, hi time.Duration) time.Duration
}

// Client issues GET requests. Safe for concurrent use.
type Client struct {
	http      *http.Client
	snapshots Snapshots
	retry     RetryPolicy
	logger    *logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	jitter    func(lo, hi time.Duration) time.Duration
}

// New creates a fetch client.
func New(opts Options) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		snapshots: opts.Snapshots,
		retry:     opts.Retry,
		logger:    opts.Logger,
		sleep:     opts.Sleep,
		jitter:    opts.Jitter,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.snapshots == nil {
		c.snapshots = snapshot.Disabled()
	}
	if c.retry.MaxAttempts <= 0 {
		c.retry = DefaultRetryPolicy()
	}
	if c.logger == nil {
		c.logger = logger.Discard()
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.jitter == nil {
		c.jitter = uniformJitter
	}
	return c
}

// Get fetches url with the given credential header.
//
// A recorded snapshot is returned without touching the network. Otherwise
// failures are retried up to the policy budget; exhausting it returns a
// FETCH_FAILED error wrapping the last failure.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	if ok, err := c.snapshots.Exists(url); err != nil {
		c.logger.Warn("snapshot lookup failed", "url", url, "error", err)
	} else if ok {
		entry, err := c.snapshots.Load(url)
		if err == nil {
			c.logger.Debug("using snapshotted data", "url", url)
			return &Response{URL: url, Header: entry.Header, Body: entry.Data, FromSnapshot: true}, nil
		}
		c.logger.Warn("snapshot load failed", "url", url, "error", err)
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, url, header)
		if err == nil {
			if err := c.snapshots.Save(url, &snapshot.Entry{Header: resp.Header, Data: resp.Body}); err != nil {
				c.logger.Warn("snapshot save failed", "url", url, "error", err)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"error", err,
		)
		if attempt >= c.retry.MaxAttempts {
			return nil, domainerrors.FetchFailedf("failed fetching %s after %d attempts", url, attempt).WithCause(err)
		}

		wait := c.jitter(c.retry.MinWait, c.retry.MaxWait)
		c.logger.Debug("sleeping before retry", "url", url, "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// GetJSON fetches url and decodes the body into T.
func GetJSON[T any](ctx context.Context, c *Client, url string, header http.Header) (T, *Response, error) {
	var out T
	resp, err := c.Get(ctx, url, header)
	if err != nil {
		return out, nil, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, resp, fmt.Errorf("decode %s: %w", url, err)
	}
	return out, resp, nil
}

func (c *Client) do(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", url, ErrInvalidJSON)
	}
	return &Response{URL: url, Header: resp.Header.Clone(), Body: body}, nil
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
