package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/gosummarize/internal/extract"
	"github.com/hyperifyio/gosummarize/internal/render"
)

// NoTitle replaces a missing or blank <title>.
const NoTitle = "No title"

// DefaultUserAgent is a desktop Chrome identity; some sites serve reduced
// markup to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	// ErrNavigation covers launching the renderer, navigating and timeouts.
	ErrNavigation = errors.New("navigation failed")
	// ErrParse is returned when the rendered bytes cannot be reduced to text.
	ErrParse = errors.New("parse failed")
)

// Page is the cleaned result of one successful fetch.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Error reports a failed fetch of URL.
type Error struct {
	URL string
	Err error
	// Attempts is how many tries a RetryingFetcher made. Zero when the
	// error did not pass through one.
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher turns a URL into a Page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Options configures every rendering context a PageFetcher acquires.
type Options struct {
	Viewport          render.Viewport
	UserAgent         string
	NavigationTimeout time.Duration
	IdleTimeout       time.Duration
}

// DefaultOptions returns a 1920x1080 desktop profile with a 25s navigation
// timeout and a 20s network-idle wait.
func DefaultOptions() Options {
	return Options{
		Viewport:          render.Viewport{Width: 1920, Height: 1080},
		UserAgent:         DefaultUserAgent,
		NavigationTimeout: 25 * time.Second,
		IdleTimeout:       20 * time.Second,
	}
}

// PageFetcher renders a URL and reduces it to a Page in a single attempt.
// It holds no per-call state and is safe for concurrent use.
type PageFetcher struct {
	renderer render.Renderer
	reducer  extract.Reducer
	opts     Options
}

// NewPageFetcher builds a fetcher over r. Zero-valued fields in opts fall
// back to DefaultOptions.
func NewPageFetcher(r render.Renderer, opts Options) *PageFetcher {
	def := DefaultOptions()
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = def.Viewport
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = def.IdleTimeout
	}
	return &PageFetcher{renderer: r, reducer: extract.Heuristic{}, opts: opts}
}

// WithReducer swaps the HTML reduction step.
func (f *PageFetcher) WithReducer(r extract.Reducer) *PageFetcher {
	cp := *f
	cp.reducer = r
	return &cp
}

// Options reports the effective rendering options.
func (f *PageFetcher) Options() Options { return f.opts }

func (f *PageFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	html, err := f.renderer.Render(ctx, url, render.Options{
		Viewport:          f.opts.Viewport,
		UserAgent:         f.opts.UserAgent,
		NavigationTimeout: f.opts.NavigationTimeout,
		IdleTimeout:       f.opts.IdleTimeout,
	})
	if err != nil {
		return Page{}, &Error{URL: url, Err: fmt.Errorf("%w: %w", ErrNavigation, err)}
	}
	doc, err := f.reducer.Reduce(html)
	if err != nil {
		return Page{}, &Error{URL: url, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = NoTitle
	}
	return Page{URL: url, Title: title, Content: doc.Text}, nil
}
