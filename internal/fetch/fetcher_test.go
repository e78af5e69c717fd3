package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/gosummarize/internal/extract"
	"github.com/hyperifyio/gosummarize/internal/render"
)

type stubRenderer struct {
	html string
	err  error
	got  render.Options
}

func (s *stubRenderer) Render(ctx context.Context, rawURL string, opts render.Options) ([]byte, error) {
	s.got = opts
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.html), nil
}

func TestPageFetcher_Success(t *testing.T) {
	r := &stubRenderer{html: `<html><head><title>  Hello  </title></head><body><nav>skip</nav><main><p>Body text</p></main></body></html>`}
	f := NewPageFetcher(r, Options{})

	page, err := f.Fetch(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	require.Equal(t, Page{URL: "https://example.com/a", Title: "Hello", Content: "Body text"}, page)

	require.Equal(t, 1920, r.got.Viewport.Width)
	require.Equal(t, 1080, r.got.Viewport.Height)
	require.Equal(t, DefaultUserAgent, r.got.UserAgent)
	require.Equal(t, 25*time.Second, r.got.NavigationTimeout)
	require.Equal(t, 20*time.Second, r.got.IdleTimeout)
}

func TestPageFetcher_MissingTitle(t *testing.T) {
	f := NewPageFetcher(&stubRenderer{html: `<html><body><p>x</p></body></html>`}, Options{})
	page, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, NoTitle, page.Title)
	require.Equal(t, "x", page.Content)
}

func TestPageFetcher_NavigationError(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
	f := NewPageFetcher(&stubRenderer{err: cause}, Options{})

	_, err := f.Fetch(context.Background(), "https://nope.invalid")
	require.Error(t, err)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "https://nope.invalid", fe.URL)
	require.ErrorIs(t, err, ErrNavigation)
	require.ErrorIs(t, err, cause)
}

type failingReducer struct{}

func (failingReducer) Reduce([]byte) (extract.Document, error) {
	return extract.Document{}, errors.New("boom")
}

func TestPageFetcher_ParseError(t *testing.T) {
	f := NewPageFetcher(&stubRenderer{html: "<p>x</p>"}, Options{}).WithReducer(failingReducer{})
	_, err := f.Fetch(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrParse)
}

func TestPageFetcher_OverHTTPRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Served</title></head><body><article>Article text</article></body></html>`))
	}))
	defer srv.Close()

	f := NewPageFetcher(&render.HTTP{}, Options{NavigationTimeout: 2 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Served", page.Title)
	require.Equal(t, "Article text", page.Content)
	require.True(t, strings.HasPrefix(page.URL, "http://"))
}
