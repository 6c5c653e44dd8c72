package ai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Doer is the subset of *http.Client used by providers
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoWithRetry sends req and retries network failures, 429s and 5xx answers
// up to retry.MaxRetries extra times. A nil retry config sends exactly once.
// The caller owns the returned response body.
func DoWithRetry(client Doer, req *http.Request, retry *RetryConfig, provider string) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, NewProviderErrorWithCause(ErrTypeInternal, "failed to read request body", provider, err)
		}
		_ = req.Body.Close()
	}

	attempts := retry.Attempts()
	ctx := req.Context()

	for attempt := 0; attempt < attempts; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := client.Do(req)
		last := attempt == attempts-1

		if err != nil {
			if ctx.Err() != nil {
				return nil, NewProviderErrorWithCause(ErrTypeTimeout, "request cancelled", provider, ctx.Err())
			}
			if last {
				return nil, NewProviderErrorWithCause(ErrTypeNetwork, "request failed", provider, err)
			}
			if werr := sleepCtx(ctx, retry.Backoff(attempt)); werr != nil {
				return nil, NewProviderErrorWithCause(ErrTypeTimeout, "request cancelled", provider, werr)
			}
			continue
		}

		if last || !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		wait := retry.Backoff(attempt)
		if resp.StatusCode == http.StatusTooManyRequests {
			if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
				wait = time.Duration(s) * time.Second
			}
		}
		_ = resp.Body.Close()

		if werr := sleepCtx(ctx, wait); werr != nil {
			return nil, NewProviderErrorWithCause(ErrTypeTimeout, "request cancelled", provider, werr)
		}
	}

	return nil, NewProviderError(ErrTypeNetwork, "max retries exceeded", provider)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
