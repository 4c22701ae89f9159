// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/evidence-engine/internal/logging"
)

// RetryBaseDelay is the first backoff interval. Tests override this to
// avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// RetryMaxDelay caps a single backoff wait, including Retry-After hints.
var RetryMaxDelay = 2 * time.Minute

const defaultMaxRetries = 5

// Retryable reports whether a response status is worth retrying: 429 and
// any 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry executes an HTTP request and retries on retryable statuses
// and transport errors with exponential backoff. The delay starts at
// RetryBaseDelay and doubles each attempt. A numeric Retry-After header
// replaces the computed delay. Both are capped at RetryMaxDelay.
//
// When maxRetries is 0 the default (5) is used. Request bodies are
// replayed through req.GetBody, so requests built with
// http.NewRequestWithContext over a bytes.Reader retry safely. If the
// context is cancelled during a wait the function returns ctx.Err().
// After exhausting retries the last response is returned so the caller
// can inspect it, or the last transport error when there was none.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= maxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
		}

		wait := backoff(attempt)
		fields := map[string]any{"url": req.URL.Redacted(), "attempt": attempt + 1, "max": maxRetries}
		if resp != nil {
			if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				wait = min(ra, RetryMaxDelay)
			}
			fields["status"] = resp.StatusCode
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			fields["error"] = err
		}
		logging.Log.WithFields(fields).Warnf("request failed, retrying in %v", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < attempt && d < RetryMaxDelay; i++ {
		d *= 2
	}
	return min(d, RetryMaxDelay)
}

// retryAfter parses the delay-seconds form of Retry-After.
func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
