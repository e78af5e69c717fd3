// Package pool fetches many URLs concurrently with a fixed number of
// workers and gathers the pages that could be extracted.
package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/gosummarize/internal/fetch"
)

// DefaultSize is the number of workers used when Options.Size is unset.
const DefaultSize = 10

type Options struct {
	// Size caps concurrent fetches. Zero means DefaultSize.
	Size int
	// Progress receives one Advance per URL. Nil discards progress.
	Progress Progress
}

// Outcome is the result of one URL: a Page when Err is nil.
type Outcome struct {
	URL  string
	Page fetch.Page
	Err  error
}

// Batch holds every outcome of one Extract call. Pages are in completion
// order, not input order.
type Batch struct {
	Pages    []fetch.Page
	Failures []Outcome
	// Workers is how many workers were started.
	Workers int
}

type Pool struct {
	fetcher  fetch.Fetcher
	size     int
	progress Progress
}

func New(f fetch.Fetcher, opts Options) *Pool {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	progress := opts.Progress
	if progress == nil {
		progress = nopProgress{}
	}
	return &Pool{fetcher: f, size: size, progress: progress}
}

// ExtractAll returns only the successfully extracted pages.
func (p *Pool) ExtractAll(ctx context.Context, urls []string) []fetch.Page {
	return p.Extract(ctx, urls).Pages
}

// Extract fetches every URL once through the pool's fetcher. Failed URLs
// never affect the others; each yields exactly one Outcome. Once ctx is
// cancelled, URLs that have not started are reported as failures.
func (p *Pool) Extract(ctx context.Context, urls []string) Batch {
	if len(urls) == 0 {
		return Batch{}
	}
	workers := p.size
	if len(urls) < workers {
		workers = len(urls)
	}

	jobs := make(chan string, len(urls))
	for _, u := range urls {
		jobs <- u
	}
	close(jobs)

	p.progress.Start(len(urls))
	results := make(chan Outcome)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for u := range jobs {
				if err := ctx.Err(); err != nil {
					results <- Outcome{URL: u, Err: &fetch.Error{URL: u, Err: err}}
					continue
				}
				results <- p.run(ctx, u)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	batch := Batch{Workers: workers}
	for o := range results {
		p.progress.Advance(o)
		if o.Err != nil {
			logFailure(o)
			batch.Failures = append(batch.Failures, o)
			continue
		}
		batch.Pages = append(batch.Pages, o.Page)
	}
	log.Info().Int("total", len(urls)).Int("pages", len(batch.Pages)).Int("failed", len(batch.Failures)).Int("workers", workers).Msg("extraction finished")
	return batch
}

func logFailure(o Outcome) {
	ev := log.Warn().Str("url", o.URL).Err(o.Err)
	var fe *fetch.Error
	if errors.As(o.Err, &fe) && fe.Attempts > 0 {
		ev = ev.Int("attempts", fe.Attempts)
	}
	if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
		ev.Msg("extraction cancelled")
		return
	}
	ev.Msg("extraction failed")
}

func (p *Pool) run(ctx context.Context, url string) (out Outcome) {
	out.URL = url
	defer func() {
		if r := recover(); r != nil {
			out.Page = fetch.Page{}
			out.Err = &fetch.Error{URL: url, Err: fmt.Errorf("fetcher panic: %v", r)}
		}
	}()
	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		out.Err = err
		return out
	}
	out.Page = page
	return out
}
