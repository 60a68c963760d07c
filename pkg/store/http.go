package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP is a Fetcher that retrieves configurations over HTTP(S). Paths are
// treated as full URLs. A 404 response maps to ErrNotFound; 5xx responses
// and transport errors are retried with exponential backoff.
type HTTP struct {
	client   *http.Client
	attempts int
	delay    time.Duration
}

// NewHTTP creates an HTTP fetcher. A nil client uses a 30 second timeout.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{client: client, attempts: 3, delay: time.Second}
}

// retryableError marks a failure worth retrying (transport error or 5xx).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Fetch downloads the document at url.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := h.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return &retryableError{err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", url, ErrNotFound)
		case resp.StatusCode >= 500:
			return &retryableError{fmt.Errorf("%s: status %d", url, resp.StatusCode)}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s: status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &retryableError{err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// retry runs fn up to h.attempts times, doubling the delay between retries.
// Only retryableError values trigger another attempt.
func (h *HTTP) retry(ctx context.Context, fn func() error) error {
	delay := h.delay
	var lastErr error

	for i := 0; i < h.attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*retryableError)) {
			return err
		}

		if i < h.attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
