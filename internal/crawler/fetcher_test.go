package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

// TestHTTPFetcher tests the net/http fetcher against a local server.
func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("sends user agent from pool", func(t *testing.T) {
		t.Parallel()

		uaCh := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uaCh <- r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithUserAgents("exposcan-test/1.0"))
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()

		if gotUA := <-uaCh; gotUA != "exposcan-test/1.0" || f.UserAgent() != "exposcan-test/1.0" {
			t.Errorf("expected pool user agent, got %q", f.UserAgent())
		}
		if resp.ContentType() != "text/html" {
			t.Errorf("expected text/html, got %q", resp.ContentType())
		}
	})

	t.Run("default user agent comes from built-in pool", func(t *testing.T) {
		t.Parallel()

		f := NewHTTPFetcher(WithUserAgents())
		if !slices.Contains(DefaultUserAgents, f.UserAgent()) {
			t.Errorf("unexpected user agent %q", f.UserAgent())
		}
	})

	t.Run("does not follow redirects", func(t *testing.T) {
		t.Parallel()

		var followed atomic.Bool
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusFound)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			followed.Store(true)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := NewHTTPFetcher().Fetch(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Errorf("expected 302, got %d", resp.StatusCode)
		}
		if followed.Load() {
			t.Error("redirect target should not be requested")
		}
	})

	t.Run("error status is not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		resp, err := NewHTTPFetcher().Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()

		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}
	})

	t.Run("timeout is a transport failure", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		f := NewHTTPFetcher(WithFetchTimeout(50 * time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("connection refused is a transport failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewHTTPFetcher().Fetch(context.Background(), addr)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}
