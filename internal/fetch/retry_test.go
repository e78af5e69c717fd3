package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedFetcher fails the first failures calls, then succeeds.
type scriptedFetcher struct {
	mu       sync.Mutex
	failures int
	calls    int
	errs     []*Error
	page     Page
}

func (s *scriptedFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		e := &Error{URL: url, Err: ErrNavigation}
		s.errs = append(s.errs, e)
		return Page{}, e
	}
	return s.page, nil
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, Unit: time.Millisecond, MinWait: 4, MaxWait: 10}
}

func TestPolicy_WaitSchedule(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{4, 4, 4, 8, 10, 10}
	for i, w := range want {
		require.Equal(t, w*time.Second, p.Wait(i+1), "attempt %d", i+1)
	}
}

func TestRetryingFetcher_FirstTrySuccess(t *testing.T) {
	inner := &scriptedFetcher{page: Page{URL: "u", Title: "T", Content: "C"}}
	page, err := NewRetryingFetcher(inner, fastPolicy()).Fetch(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, inner.page, page)
}

func TestRetryingFetcher_RetriedSuccessMatchesFirstTry(t *testing.T) {
	want := Page{URL: "u", Title: "T", Content: "C"}
	inner := &scriptedFetcher{failures: 2, page: want}
	page, err := NewRetryingFetcher(inner, fastPolicy()).Fetch(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, 3, inner.calls)
	require.Equal(t, want, page)
}

func TestRetryingFetcher_ExhaustionReturnsLastError(t *testing.T) {
	inner := &scriptedFetcher{failures: 10}
	start := time.Now()
	_, err := NewRetryingFetcher(inner, fastPolicy()).Fetch(context.Background(), "u")
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Equal(t, 3, inner.calls)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Same(t, inner.errs[len(inner.errs)-1], fe)
	require.Equal(t, 3, fe.Attempts)
	// Two waits of 4 units each separate the three attempts.
	require.GreaterOrEqual(t, elapsed, 8*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
}

func TestRetryingFetcher_SingleAttempt(t *testing.T) {
	inner := &scriptedFetcher{failures: 1}
	p := fastPolicy()
	p.MaxAttempts = 1
	_, err := NewRetryingFetcher(inner, p).Fetch(context.Background(), "u")
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 1, fe.Attempts)
}

func TestRetryingFetcher_CancelStopsRetrying(t *testing.T) {
	inner := &scriptedFetcher{failures: 10}
	p := Policy{MaxAttempts: 3, Unit: time.Second, MinWait: 4, MaxWait: 10}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := NewRetryingFetcher(inner, p).Fetch(ctx, "u")
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, 1, inner.calls)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "u", fe.URL)
	require.ErrorIs(t, err, context.Canceled)
}
