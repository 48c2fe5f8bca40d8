// Package httpclient implements the throttled HTTP client shared by the
// registry and tarball fetchers (§4.2, §4.3, §5 Resource bounds: "at most
// max(cpu_count, 16) concurrent outbound HTTP requests").
//
// Grounded on the teacher's APIClient (`internal/client/client.go`): a
// retryablehttp.Client with explicit RetryWaitMin/RetryWaitMax/RetryMax and a
// custom CheckRetry policy that distinguishes permanent failures (TLS trust,
// 4xx other than 429) from transient ones (429, 5xx, network errors). This
// package adds the semaphore bound the teacher's client has no equivalent of,
// since the teacher only ever drives a handful of cache upload/download
// requests at a time.
package httpclient

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// minPermits is the floor on concurrent requests regardless of how few CPUs
// the host reports, matching the spec's `max(cpu_count, 16)`.
const minPermits = 16

// Client is a retrying HTTP client bounded to a fixed number of concurrent
// in-flight requests.
type Client struct {
	http *retryablehttp.Client
	sem  *semaphore.Weighted
}

// Opts configures a Client's retry behavior.
type Opts struct {
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RetryMax     int
	Timeout      time.Duration
}

// DefaultOpts mirrors the teacher's cache client tuning, widened slightly
// since package tarballs are larger payloads than cache artifacts.
func DefaultOpts() Opts {
	return Opts{
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 10 * time.Second,
		RetryMax:     4,
		Timeout:      60 * time.Second,
	}
}

// New constructs a Client with a semaphore sized to max(NumCPU, 16) permits.
func New(logger hclog.Logger, opts Opts) *Client {
	permits := int64(runtime.NumCPU())
	if permits < minPermits {
		permits = minPermits
	}

	retryClient := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		RetryWaitMin: opts.RetryWaitMin,
		RetryWaitMax: opts.RetryWaitMax,
		RetryMax:     opts.RetryMax,
		Backoff:      retryablehttp.DefaultBackoff,
		Logger:       logger,
	}
	retryClient.CheckRetry = checkRetry

	return &Client{
		http: retryClient,
		sem:  semaphore.NewWeighted(permits),
	}
}

// checkRetry classifies failures the way the teacher's client does:
// context cancellation and TLS trust failures are permanent, 429/5xx and
// network errors are retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode == 0 || (resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented) {
		return true, errors.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return false, nil
}

// Get performs a throttled GET, blocking until a permit is available or ctx
// is cancelled.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.GetWithHeaders(ctx, url, nil)
}

// GetWithHeaders performs a throttled GET with additional request headers,
// the form the registry client uses to set `user-agent`/`content-type`
// (§4.3 "Wire").
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "failed to acquire request permit")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.sem.Release(1)
		return nil, errors.Wrapf(err, "failed to build request for %s", url)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	c.sem.Release(1)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}
	return resp, nil
}
