package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// maxUpstreamBody caps how much of an upstream answer is read.
const maxUpstreamBody = 1 << 20

var (
	ErrNotConfigured = errors.New("upstream not configured")
	ErrBreakerOpen   = errors.New("circuit breaker open")
)

// StatusError is an upstream answer that could not be used as a result.
type StatusError struct {
	Upstream string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s upstream status %d", e.Upstream, e.Status)
}

// Upstream wraps HTTP calls to one upstream endpoint behind a circuit breaker.
type Upstream struct {
	name    string
	base    string
	path    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retries int
	backoff func() backoff.BackOff
	metrics *Metrics
}

// NewUpstream builds a client for base+path. retries counts extra attempts
// after a transport error; 0 means exactly one request per call.
func NewUpstream(name, base, path string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, retries int, m *Metrics) *Upstream {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if retries < 0 {
		retries = 0
	}
	return &Upstream{
		name:    name,
		base:    base,
		path:    path,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		retries: retries,
		backoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 100 * time.Millisecond
			bo.MaxInterval = 2 * time.Second
			return bo
		},
		metrics: m,
	}
}

func (u *Upstream) Name() string { return u.name }

func (u *Upstream) URL() string { return u.base + u.path }

func (u *Upstream) Configured() bool { return u != nil && u.base != "" }

// PostJSON posts in as JSON and decodes the answer into out. Non-2xx answers
// carrying a JSON body are decoded too (the advisor reports bad input as
// 400 + {"error"}) and returned without error; the caller gets the status.
func (u *Upstream) PostJSON(ctx context.Context, in, out any) (int, error) {
	if !u.Configured() {
		return 0, fmt.Errorf("%s: %w", u.nameOrDefault(), ErrNotConfigured)
	}
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("%s encode error: %w", u.name, err)
	}
	return u.call(ctx, http.MethodPost, body, out, true)
}

// GetJSON fetches and decodes a 2xx answer. An unconfigured upstream is
// optional: out is left untouched and no error is returned.
func (u *Upstream) GetJSON(ctx context.Context, out any) error {
	if !u.Configured() {
		return nil
	}
	_, err := u.call(ctx, http.MethodGet, nil, out, false)
	return err
}

func (u *Upstream) call(ctx context.Context, method string, body []byte, out any, acceptClientErrors bool) (int, error) {
	start := time.Now()
	res, err := u.breaker.Execute(func() (any, error) {
		return u.attempt(ctx, method, body, out, acceptClientErrors)
	})
	status, _ := res.(int)

	outcome := "ok"
	switch {
	case isBreakerRejection(err):
		outcome = "breaker_open"
		err = fmt.Errorf("%s: %w", u.name, ErrBreakerOpen)
	case err != nil:
		outcome = "error"
	}
	u.metrics.observeUpstream(u.name, outcome, time.Since(start).Seconds())
	return status, err
}

// attempt runs the request, retrying transport errors only.
func (u *Upstream) attempt(ctx context.Context, method string, body []byte, out any, acceptClientErrors bool) (int, error) {
	var status int
	op := func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.URL(), rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := u.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%s request error: %w", u.name, err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
		if err != nil {
			return fmt.Errorf("%s read error: %w", u.name, err)
		}

		ok := status >= 200 && status < 300
		if !ok && !(acceptClientErrors && status >= 400 && status < 500) {
			return backoff.Permanent(&StatusError{Upstream: u.name, Status: status})
		}
		if err := json.Unmarshal(raw, out); err != nil {
			if !ok {
				return backoff.Permanent(&StatusError{Upstream: u.name, Status: status})
			}
			return backoff.Permanent(fmt.Errorf("%s decode error: %w", u.name, err))
		}
		return nil
	}

	var b backoff.BackOff = backoff.WithMaxRetries(u.backoff(), uint64(u.retries))
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	return status, err
}

func (u *Upstream) nameOrDefault() string {
	if u == nil || u.name == "" {
		return "upstream"
	}
	return u.name
}
