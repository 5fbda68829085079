package fetcher

import (
	"context"
	"compress/gzip"
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedhawk/feedhawk/internal/config"
	"github.com/feedhawk/feedhawk/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Engine.RequestTimeout = 5 * time.Second
	cfg.Engine.MaxContentLength = 1024
	f, err := NewHTTPFetcher(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	return f
}

func TestFetchSuccessPopulatesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(srv.URL, nil)
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("expected OK response, got status %d", resp.StatusCode)
	}
	if resp.Text != "<rss></rss>" {
		t.Fatalf("unexpected body: %q", resp.Text)
	}
}

func TestFetchRetryableOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(srv.URL, nil)
	_, err := f.Fetch(context.Background(), req)
	if err == nil {
		t.Fatal("expected an error for a 503 response")
	}
	fetchErr, ok := err.(*types.FetchError)
	if !ok {
		t.Fatalf("expected *types.FetchError, got %T", err)
	}
	if !fetchErr.IsRetryable() {
		t.Error("expected a 503 to be retryable")
	}
}

func TestFetchContentLengthCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 2048))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(srv.URL, nil)
	req.MaxContentLength = 128
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.FetchStatus != types.FetchContentTooLarge {
		t.Fatalf("expected FetchContentTooLarge, got %v", resp.FetchStatus)
	}
	if int64(len(resp.Body)) != 128 {
		t.Fatalf("expected body capped at 128 bytes, got %d", len(resp.Body))
	}
}

func TestFetchDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("feed body"))
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(srv.URL, nil)
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.Text != "feed body" {
		t.Fatalf("expected decompressed body, got %q", resp.Text)
	}
}
