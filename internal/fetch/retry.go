package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy bounds how a RetryingFetcher retries. The wait before attempt n+1
// is min(max(MinWait, 2^(n-1)), MaxWait) units.
type Policy struct {
	MaxAttempts int
	Unit        time.Duration
	MinWait     int
	MaxWait     int
}

// DefaultPolicy allows three attempts with waits of 4s, 4s, ... capped at 10s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Unit: time.Second, MinWait: 4, MaxWait: 10}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Unit <= 0 {
		p.Unit = def.Unit
	}
	if p.MinWait <= 0 {
		p.MinWait = def.MinWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}
	return p
}

// Wait returns the pause that follows the given failed attempt (1-based).
func (p Policy) Wait(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	units := p.MaxWait
	if attempt-1 < 31 {
		units = 1 << (attempt - 1)
	}
	if units < p.MinWait {
		units = p.MinWait
	}
	if units > p.MaxWait {
		units = p.MaxWait
	}
	return time.Duration(units) * p.Unit
}

// policyBackOff adapts Policy to backoff.BackOff.
type policyBackOff struct {
	policy  Policy
	attempt int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.policy.Wait(b.attempt)
}

func (b *policyBackOff) Reset() { b.attempt = 0 }

// RetryingFetcher re-runs a Fetcher on failure. A page that succeeds on a
// later attempt is indistinguishable from a first-try success.
type RetryingFetcher struct {
	inner  Fetcher
	policy Policy
}

func NewRetryingFetcher(inner Fetcher, policy Policy) *RetryingFetcher {
	return &RetryingFetcher{inner: inner, policy: policy.normalized()}
}

// Policy reports the effective retry policy.
func (r *RetryingFetcher) Policy() Policy { return r.policy }

// Fetch returns the first successful Page or, once attempts are exhausted,
// the last attempt's error with Attempts filled in. Cancelling ctx stops
// further attempts.
func (r *RetryingFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	var (
		page    Page
		attempt int
	)
	op := func() error {
		attempt++
		p, err := r.inner.Fetch(ctx, url)
		if err == nil {
			page = p
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Debug().Str("url", url).Int("attempt", attempt).Dur("wait", wait).Err(err).Msg("fetch failed; retrying")
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&policyBackOff{policy: r.policy}, uint64(r.policy.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			fe.Attempts = attempt
			return Page{}, err
		}
		return Page{}, &Error{URL: url, Err: fmt.Errorf("%w: %w", ErrNavigation, err), Attempts: attempt}
	}
	return page, nil
}
