// Package httpclient centralizes outbound calls with interceptor chains, a
// TTL read cache and bounded retry, so API callers do not reimplement those
// policies individually.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/apierr"
)

// RequestInterceptor may mutate the outgoing request. Returning an error
// aborts the chain and the call.
type RequestInterceptor func(*Request) error

// ResponseInterceptor may mutate the response. Cache hits pass through the
// chain the same as network responses.
type ResponseInterceptor func(*Response) error

// Request is a logical API request before transport concerns apply.
type Request struct {
	Method   string
	Resource string
	Query    url.Values
	Header   http.Header
	Body     any

	// NoCache skips the read cache for this request, both lookup and store.
	NoCache bool
}

// Response is the interceptor-visible result of a request.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	FromCache bool
}

// Options configures a Client. Zero values get defaults.
type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	RetryAttempts int
	RetryDelay    time.Duration
	CacheTTL      time.Duration
}

// Client holds its own cache and interceptor lists; construct one per process
// (or per test) instead of sharing hidden package state.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
	delay    time.Duration
	cacheTTL time.Duration
	cache    *gocache.Cache

	reqInterceptors  []RequestInterceptor
	respInterceptors []ResponseInterceptor

	// backoff waits between attempts; swappable for tests
	backoff func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Client {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		http:     opts.HTTPClient,
		attempts: opts.RetryAttempts,
		delay:    opts.RetryDelay,
		cacheTTL: opts.CacheTTL,
		cache:    gocache.New(opts.CacheTTL, 10*time.Minute),
		backoff:  waitBackoff,
	}
}

// waitBackoff sleeps for d unless the context ends first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UseRequest appends a request interceptor; execution order is append order.
func (c *Client) UseRequest(i RequestInterceptor) { c.reqInterceptors = append(c.reqInterceptors, i) }

// UseResponse appends a response interceptor.
func (c *Client) UseResponse(i ResponseInterceptor) {
	c.respInterceptors = append(c.respInterceptors, i)
}

// cacheKey identifies a read by method, resource and serialized parameters.
// Nil and empty query values produce the same key.
func cacheKey(req *Request) string {
	if len(req.Query) == 0 {
		return req.Method + " " + req.Resource
	}
	return req.Method + " " + req.Resource + "?" + req.Query.Encode()
}

// Do executes the request with interceptors, caching and retry applied.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	for _, i := range c.reqInterceptors {
		if err := i(req); err != nil {
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}

	cacheable := req.Method == http.MethodGet && !req.NoCache
	key := cacheKey(req)
	if cacheable {
		if v, ok := c.cache.Get(key); ok {
			cached := v.(*Response)
			cacheHits.Inc()
			resp := &Response{Status: cached.Status, Header: cached.Header, Body: cached.Body, FromCache: true}
			if err := c.applyResponseInterceptors(resp); err != nil {
				return nil, err
			}
			return resp, nil
		}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Set(key, resp, c.cacheTTL)
	}
	if err := c.applyResponseInterceptors(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) applyResponseInterceptors(resp *Response) error {
	for _, i := range c.respInterceptors {
		if err := i(resp); err != nil {
			return fmt.Errorf("response interceptor: %w", err)
		}
	}
	return nil
}

// send runs the retry loop: network failures, 5xx and 429 retry with linear
// backoff (delay*attempt); other statuses return immediately.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp, err := c.sendOnce(ctx, req)
		if err == nil {
			requests.WithLabelValues("success").Inc()
			return resp, nil
		}
		lastErr = err

		ae := apierr.From(err)
		if !apierr.Retryable(ae.Code) {
			log.Debug().Str("method", req.Method).Str("resource", req.Resource).
				Str("code", string(ae.Code)).Msg("request failed, not retryable")
			requests.WithLabelValues("failure").Inc()
			return nil, err
		}
		log.Warn().Err(err).Str("method", req.Method).Str("resource", req.Resource).
			Int("attempt", attempt).Int("max_attempts", c.attempts).Msg("request failed, will retry")
		if attempt < c.attempts {
			retries.Inc()
			if err := c.backoff(ctx, c.delay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	requests.WithLabelValues("failure").Inc()
	return nil, lastErr
}

func (c *Client) sendOnce(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInvalidInput, "encode request body", err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + req.Resource
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidInput, "build request", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		// transport-level failure, always retryable
		return nil, apierr.Wrap(apierr.CodeServer, "network error", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeServer, "read response body", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, apierr.FromStatus(httpResp.StatusCode,
			fmt.Sprintf("%s %s returned %d", req.Method, req.Resource, httpResp.StatusCode))
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}
