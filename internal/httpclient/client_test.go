package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/apierr"
)

func newTestClient(t *testing.T, opts Options) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	opts.BaseURL = "http://api.test"
	opts.HTTPClient = &http.Client{Transport: mt}
	c := New(opts)
	c.backoff = func(context.Context, time.Duration) error { return nil } // no real backoff in tests
	return c, mt
}

func TestRetryOn500ThenSuccess(t *testing.T) {
	c, mt := newTestClient(t, Options{RetryAttempts: 3, RetryDelay: time.Millisecond})

	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		calls++
		if calls <= 2 {
			return httpmock.NewStringResponse(500, "boom"), nil
		}
		return httpmock.NewStringResponse(200, `{"ok":true}`), nil
	})

	resp, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/quotes"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 3, calls, "two retries after two 500s")
}

func TestRetryExhaustionSurfacesOriginalError(t *testing.T) {
	c, mt := newTestClient(t, Options{RetryAttempts: 3, RetryDelay: time.Millisecond})

	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(503, "down"), nil
	})

	_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/quotes"})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, apierr.CodeServer, apierr.From(err).Code)
}

func TestNoRetryOnClientErrors(t *testing.T) {
	for _, tc := range []struct {
		status int
		code   apierr.Code
	}{
		{400, apierr.CodeInvalidInput},
		{401, apierr.CodeUnauthorized},
		{403, apierr.CodeForbidden},
		{404, apierr.CodeNotFound},
		{409, apierr.CodeDuplicate},
	} {
		c, mt := newTestClient(t, Options{RetryAttempts: 3, RetryDelay: time.Millisecond})
		calls := 0
		mt.RegisterResponder("GET", "http://api.test/v1/thing", func(*http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(tc.status, "nope"), nil
		})

		_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/thing"})
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, 1, calls, "status %d must not be retried", tc.status)
		assert.Equal(t, tc.code, apierr.From(err).Code)
	}
}

func TestRateLimitIsRetried(t *testing.T) {
	c, mt := newTestClient(t, Options{RetryAttempts: 2, RetryDelay: time.Millisecond})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(429, "slow down"), nil
		}
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	resp, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/quotes"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 2, calls)
}

func TestBackoffAbortsOnContextCancel(t *testing.T) {
	mt := httpmock.NewMockTransport()
	c := New(Options{
		BaseURL:       "http://api.test",
		HTTPClient:    &http.Client{Transport: mt},
		RetryAttempts: 3,
		RetryDelay:    time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		cancel()
		return httpmock.NewStringResponse(500, "boom"), nil
	})

	start := time.Now()
	_, err := c.Do(ctx, &Request{Method: "GET", Resource: "/v1/quotes"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancelled context must not wait out the backoff")
}

func TestNetworkErrorIsRetried(t *testing.T) {
	c, mt := newTestClient(t, Options{RetryAttempts: 2, RetryDelay: time.Millisecond})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/quotes"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheShortCircuitsWithinTTL(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/products", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `[]`), nil
	})

	req := &Request{Method: "GET", Resource: "/v1/products"}
	first, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 1, calls, "second read must be served from cache")
}

func TestCacheExpiryRefetches(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: 20 * time.Millisecond})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/products", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `[]`), nil
	})

	req := &Request{Method: "GET", Resource: "/v1/products"}
	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
	assert.Equal(t, 2, calls, "expired entry must refetch")
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	calls := 0
	mt.RegisterResponder("GET", `=~^http://api\.test/v1/products`, func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `[]`), nil
	})

	_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/products", Query: url.Values{"page": {"1"}}})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/products", Query: url.Values{"page": {"2"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different params are different cache entries")
}

func TestCacheKeyTreatsNilAndEmptyQueryAlike(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/products", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `[]`), nil
	})

	_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/products", Query: url.Values{}})
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/products"})
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Equal(t, 1, calls, "nil and empty query are the same read")
}

func TestNoCacheBypassesCache(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	calls := 0
	mt.RegisterResponder("GET", "http://api.test/v1/products", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `[]`), nil
	})

	req := &Request{Method: "GET", Resource: "/v1/products", NoCache: true}
	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
	assert.Equal(t, 2, calls)

	// a NoCache read must not have populated the cache either
	resp, err = c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/products"})
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
}

func TestWritesAreNotCached(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	calls := 0
	mt.RegisterResponder("POST", "http://api.test/v1/quotes", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(200, `{}`), nil
	})

	req := &Request{Method: "POST", Resource: "/v1/quotes", Body: map[string]string{"customer_name": "Acme"}}
	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInterceptorOrderAndAbort(t *testing.T) {
	c, mt := newTestClient(t, Options{})
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", httpmock.NewStringResponder(200, "ok"))

	var order []string
	c.UseRequest(func(r *Request) error {
		order = append(order, "req1")
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set("X-Trace", "abc")
		return nil
	})
	c.UseRequest(func(*Request) error {
		order = append(order, "req2")
		return nil
	})
	c.UseResponse(func(*Response) error {
		order = append(order, "resp1")
		return nil
	})

	_, err := c.Do(context.Background(), &Request{Method: "GET", Resource: "/v1/quotes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"req1", "req2", "resp1"}, order)

	// a failing request interceptor aborts before the network
	boom := errors.New("abort")
	c.UseRequest(func(*Request) error { return boom })
	calls := len(order)
	_, err = c.Do(context.Background(), &Request{Method: "POST", Resource: "/v1/quotes"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, order, calls+2, "earlier interceptors still ran, response chain did not")
}

func TestCacheHitRunsResponseInterceptors(t *testing.T) {
	c, mt := newTestClient(t, Options{CacheTTL: time.Minute})
	mt.RegisterResponder("GET", "http://api.test/v1/quotes", httpmock.NewStringResponder(200, "ok"))

	seen := 0
	c.UseResponse(func(*Response) error {
		seen++
		return nil
	})

	req := &Request{Method: "GET", Resource: "/v1/quotes"}
	_, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, seen, "interceptors run for cache hits too")
}
