// Package resilience holds the single retry policy shared by every outbound call.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultMaxRetries = 2
	DefaultDelay      = time.Second
)

// StatusError is returned when a response status is not accepted by the policy.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string { return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code) }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Policy describes how an operation is retried. The wait before retry n is
// Delay*n (linear).
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	// Retryable reports whether a failed attempt should be retried.
	// Nil means every error except Permanent ones. The loop always ends once
	// the caller's context is done.
	Retryable func(error) bool
	// Accept reports whether a response status counts as success for DoHTTP.
	// Nil means 2xx.
	Accept func(status int) bool
}

func Default() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, Delay: DefaultDelay}
}

// WithAccept returns a copy of p using accept for response statuses.
func (p Policy) WithAccept(accept func(int) bool) Policy {
	p.Accept = accept
	return p
}

func (p Policy) backoff() retry.Backoff {
	var attempt int64
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * p.Delay, false
	})
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), linear)
}

// retryable reports whether err is worth another attempt. Per-attempt
// timeouts such as http.Client.Timeout are retried; only the caller's own ctx
// ends the loop early.
func (p Policy) retryable(err error) bool {
	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}

func (p Policy) accepts(status int) bool {
	if p.Accept != nil {
		return p.Accept(status)
	}
	return status >= 200 && status < 300
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if p.retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	var perm permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// DoHTTP sends the request produced by build, rebuilding it for every attempt.
// A response with a non-accepted status is drained, closed and retried; once
// retries are exhausted a *StatusError is returned. The caller owns the body
// of the returned response.
func (p Policy) DoHTTP(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	err := p.Do(ctx, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return Permanent(err)
		}
		r, err := client.Do(req)
		if err != nil {
			return err
		}
		if !p.accepts(r.StatusCode) {
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return &StatusError{Code: r.StatusCode, URL: req.URL.Redacted()}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
