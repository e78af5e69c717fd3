package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// HTTP renders pages with a plain GET request. It does not execute
// scripts, so it only suits static documents, but it needs no browser
// and is what tests and constrained environments use.
type HTTP struct {
	Client *http.Client
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxBodyBytes caps how much of a response body is read. Zero means 8 MiB.
	MaxBodyBytes int64
	// MaxConcurrent limits concurrent in-flight requests per instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (h *HTTP) httpClient() *http.Client {
	if h.Client != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *h.Client
		base.CheckRedirect = h.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: h.checkRedirectFunc()}
}

// Render issues one GET bounded by the navigation timeout. The viewport has
// no meaning without a layout engine and is ignored; the user agent is sent.
func (h *HTTP) Render(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	if _, err := checkScheme(rawURL); err != nil {
		return nil, err
	}
	h.acquire()
	defer h.release()

	if opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.NavigationTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return b, nil
}

func (h *HTTP) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := h.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Servers that omit the header are given the benefit of the doubt.
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (h *HTTP) acquire() {
	if h.MaxConcurrent <= 0 {
		return
	}
	h.limiterOnce.Do(func() {
		h.limiter = make(chan struct{}, h.MaxConcurrent)
	})
	h.limiter <- struct{}{}
}

func (h *HTTP) release() {
	if h.MaxConcurrent <= 0 || h.limiter == nil {
		return
	}
	<-h.limiter
}
