// Package retry implements exponential backoff restricted to transient
// network failures. Parse errors, empty-but-well-formed responses and
// client-side API errors pass through on the first attempt.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"time"
)

// DefaultAttempts is the usual retry budget for provider calls.
const DefaultAttempts = 3

// ErrEmptyHistory marks an empty history response from the market
// provider. The provider silently swallows transient failures, so an
// empty series is treated as retryable IO rather than real data.
var ErrEmptyHistory = errors.New("empty history response")

// IsTransient reports whether an error is worth retrying: network,
// DNS, timeout and socket-level failures, plus the empty-history wrap.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyHistory) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps every transport failure; non-transport causes
		// (parse, protocol) were unwrapped above and fell through
		return urlErr.Temporary() || urlErr.Timeout() || isConnectionErr(urlErr.Err)
	}
	return false
}

func isConnectionErr(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// Do runs fn up to attempts times, doubling baseDelay between tries.
// Only transient errors are retried; anything else returns immediately.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
