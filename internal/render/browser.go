package render

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Browser renders pages in headless Chrome. Every call launches its own
// browser process with a fresh profile, so cookies and sessions never leak
// between calls or between workers.
type Browser struct {
	// ExecPath overrides the Chrome binary; empty lets chromedp find one.
	ExecPath string
	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool
}

// Render navigates to rawURL, waits for the network to go idle (or for the
// idle timeout to pass, whichever comes first) and returns the outer HTML
// of the document element. The whole call, browser launch included, is
// bounded by NavigationTimeout+IdleTimeout.
func (b *Browser) Render(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	if _, err := checkScheme(rawURL); err != nil {
		return nil, err
	}

	runCtx, cancelRun := withOptionalTimeout(ctx, budget(opts))
	defer cancelRun()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if b.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.ExecPath))
	}
	if b.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(runCtx, allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// The first Run starts the browser. It must run on tabCtx itself, not on
	// a child with its own timeout, or the browser is torn down with it.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, errors.Wrap(err, "launch browser")
	}

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	navCtx, cancelNav := withOptionalTimeout(tabCtx, opts.NavigationTimeout)
	defer cancelNav()
	err := chromedp.Run(navCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height)),
		chromedp.Navigate(rawURL),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "navigate %s", rawURL)
	}

	idleCtx, cancelIdle := withOptionalTimeout(tabCtx, opts.IdleTimeout)
	defer cancelIdle()
	select {
	case <-idle:
	case <-idleCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug().Str("url", rawURL).Dur("idle_timeout", opts.IdleTimeout).Msg("network not idle; reading page as-is")
	}

	// Reading gets whatever is left of the overall budget.
	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	return []byte(html), nil
}

// budget is the deadline for one Render call. Zero means unbounded, which
// only happens when both timeouts are unset.
func budget(opts Options) time.Duration {
	if opts.NavigationTimeout <= 0 && opts.IdleTimeout <= 0 {
		return 0
	}
	return opts.NavigationTimeout + opts.IdleTimeout
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
