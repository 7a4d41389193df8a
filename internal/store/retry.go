package store

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"coursehub/api-gateway/models"
)

var errEmptyRepresentation = errors.New("store returned an empty representation")

const (
	maxStoreAttempts = 3
	retryBaseDelay   = 250 * time.Millisecond
)

// withRetry runs fn, retrying timeout and connection failures a bounded number
// of times with a short doubling delay before surfacing. Non-retryable
// failures (constraint violations, decode errors) surface immediately. The
// returned error is always a *models.StoreError or nil.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var last *models.StoreError
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			c.log.WithFields(map[string]interface{}{
				"op":      op,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("Retrying store call after retryable failure")
			select {
			case <-ctx.Done():
				return &models.StoreError{Kind: models.StoreTimeout, Op: op, Err: ctx.Err()}
			case <-c.sleep(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		last = &models.StoreError{Kind: classifyKind(err), Op: op, Err: err}
		if !last.Retryable() {
			return last
		}
	}
	return last
}

// classifyKind buckets an adapter failure into the store error taxonomy. The
// postgrest client surfaces transport and database failures as opaque errors,
// so classification inspects the error chain and message.
func classifyKind(err error) models.StoreErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.StoreTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.StoreTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded"):
		return models.StoreTimeout
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof"):
		return models.StoreConnection
	case strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "violates") ||
		strings.Contains(msg, "constraint"):
		return models.StoreConstraint
	default:
		return models.StoreOther
	}
}
