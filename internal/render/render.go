package render

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Viewport is the emulated window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Options configures a single render call.
type Options struct {
	Viewport  Viewport
	UserAgent string
	// NavigationTimeout bounds loading the document itself.
	NavigationTimeout time.Duration
	// IdleTimeout bounds the wait for network activity to settle after
	// navigation. It is the tighter of the two bounds.
	IdleTimeout time.Duration
}

// Renderer turns a URL into the HTML of the rendered document.
// Implementations acquire a fresh, isolated context for every call and
// release it before returning, on success and on failure alike.
type Renderer interface {
	Render(ctx context.Context, rawURL string, opts Options) ([]byte, error)
}

// ErrUnsupportedScheme is returned for anything that is not http(s).
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

func checkScheme(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	if !isHTTPScheme(u) {
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", rawURL)
	}
	return u, nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
