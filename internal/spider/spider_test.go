package spider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/feedhawk/feedhawk/internal/config"
	"github.com/feedhawk/feedhawk/internal/types"
)

// stubFetcher serves fixed HTML/feed bodies by URL so a Spider crawl can be
// exercised without any network access.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	types map[string]string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: make(map[string]string), types: make(map[string]string)}
}

func (s *stubFetcher) page(url, contentType, body string) {
	s.pages[url] = body
	s.types[url] = contentType
}

func (s *stubFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	s.mu.Lock()
	body, ok := s.pages[req.URLString()]
	ct := s.types[req.URLString()]
	s.mu.Unlock()

	if !ok {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: 404, Err: io.EOF, Retryable: false}
	}

	headers := http.Header{}
	headers.Set("Content-Type", ct)
	history := append(append([]string(nil), req.History...), req.URLString())
	return &types.Response{
		Request:     req,
		FinalURL:    req.URLString(),
		StatusCode:  200,
		Headers:     headers,
		Body:        []byte(body),
		Text:        body,
		ContentType: ct,
		FetchStatus: types.FetchOK,
		History:     history,
	}, nil
}

func (s *stubFetcher) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSpiderDiscoversJSONFeedFromLinkTag(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.page("http://example.com", "text/html",
		`<html><head><link rel="alternate" type="application/json" href="/feed.json"></head></html>`)
	fetcher.page("http://example.com/feed.json", "application/json",
		`{"version":"https://jsonfeed.org/version/1.1","title":"Example Feed"}`)

	cfg := config.DefaultConfig()
	cfg.Spider.TryURLs = false
	cfg.Engine.TotalTimeout = 2 * time.Second

	s := New(cfg, fetcher, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	feeds, _ := s.Crawl(ctx, []string{"http://example.com"})

	if len(feeds) != 1 {
		t.Fatalf("expected 1 discovered feed, got %d", len(feeds))
	}
	if feeds[0].URL != "http://example.com/feed.json" {
		t.Errorf("unexpected feed URL: %s", feeds[0].URL)
	}
	if feeds[0].Bozo != 0 {
		t.Errorf("expected a well-formed JSON Feed to have bozo=0, got %d", feeds[0].Bozo)
	}
}

func TestSpiderPodcastOnlyPageYieldsNoFeeds(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.page("http://example.com", "text/html",
		`<html><body><a href="/podcasts/ep1">Episode 1</a></body></html>`)

	cfg := config.DefaultConfig()
	cfg.Spider.TryURLs = false
	cfg.Engine.TotalTimeout = 2 * time.Second

	s := New(cfg, fetcher, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	feeds, _ := s.Crawl(ctx, []string{"http://example.com"})
	if len(feeds) != 0 {
		t.Fatalf("expected no feeds from a podcast-only page, got %d", len(feeds))
	}
	if feeds == nil {
		t.Fatal("expected an empty-but-non-nil slice so JSON encoding emits [] rather than null")
	}
}
