package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		Viewport:          Viewport{Width: 1920, Height: 1080},
		UserAgent:         "gosummarize-test",
		NavigationTimeout: 2 * time.Second,
		IdleTimeout:       time.Second,
	}
}

func TestHTTPRender_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	h := &HTTP{}
	body, err := h.Render(context.Background(), srv.URL, testOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "<html><body>ok</body></html>" {
		t.Fatalf("unexpected body: %q", string(body))
	}
	if gotUA != "gosummarize-test" {
		t.Fatalf("expected user agent to be sent, got %q", gotUA)
	}
}

func TestHTTPRender_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := &HTTP{}
	if _, err := h.Render(context.Background(), srv.URL, testOptions()); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestHTTPRender_RejectsNonHTTP(t *testing.T) {
	h := &HTTP{}
	_, err := h.Render(context.Background(), "file:///etc/hosts", testOptions())
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestHTTPRender_ContentTypeGating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	h := &HTTP{}
	if _, err := h.Render(context.Background(), srv.URL, testOptions()); err == nil {
		t.Fatalf("expected error for unsupported content type")
	}
}

func TestHTTPRender_NavigationTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	opts := testOptions()
	opts.NavigationTimeout = 50 * time.Millisecond
	start := time.Now()
	h := &HTTP{}
	if _, err := h.Render(context.Background(), srv.URL, opts); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("navigation timeout not honoured; took %s", time.Since(start))
	}
}

func TestHTTPRender_RedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := &HTTP{RedirectMaxHops: 1}
	if _, err := h.Render(context.Background(), srv.URL, testOptions()); err == nil {
		t.Fatalf("expected redirect limit error")
	}
}

func TestHTTPRender_MaxConcurrent(t *testing.T) {
	var inFlight int32
	var maxObserved int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		curr := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if curr <= prev || atomic.CompareAndSwapInt32(&maxObserved, prev, curr) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
		atomic.AddInt32(&inFlight, -1)
	}))
	defer srv.Close()

	h := &HTTP{MaxConcurrent: 2}

	var wg sync.WaitGroup
	start := make(chan struct{})
	num := 6
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, _ = h.Render(context.Background(), srv.URL, testOptions())
		}()
	}
	close(start)
	wg.Wait()

	if maxObserved > 2 {
		t.Fatalf("expected max concurrency <= 2, got %d", maxObserved)
	}
}

func TestBrowserRender_RejectsNonHTTP(t *testing.T) {
	b := &Browser{}
	_, err := b.Render(context.Background(), "ftp://example.com/file", testOptions())
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme before launching a browser, got %v", err)
	}
}
