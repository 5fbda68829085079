// Package spider wires the crawl engine to the Site and Feed parsers and
// exposes the single entry point a caller needs: run a crawl against a set
// of seed URLs and get back a sorted, deduplicated FeedInfo result set
// (spec §4 "System overview": the Spider facade).
package spider

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/feedhawk/feedhawk/internal/config"
	"github.com/feedhawk/feedhawk/internal/engine"
	"github.com/feedhawk/feedhawk/internal/parser"
	"github.com/feedhawk/feedhawk/internal/scoring"
	"github.com/feedhawk/feedhawk/internal/types"
)

// Spider runs one crawl: it owns the Engine and the Site/Feed parsers, and
// collects the FeedInfo items the crawl discovers.
type Spider struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *slog.Logger

	mu       sync.Mutex
	items    []*types.FeedInfo
	seen     map[string]bool
	byURL    map[string]*types.FeedInfo
}

// New builds a Spider with a fresh Engine wired to a Site Parser, a Feed
// Parser, and a favicon-inlining callback.
func New(cfg *config.Config, fetcher engine.Fetcher, logger *slog.Logger) *Spider {
	s := &Spider{
		cfg:    cfg,
		engine: engine.New(cfg, logger, fetcher),
		logger: logger.With("component", "spider"),
		seen:   make(map[string]bool),
		byURL:  make(map[string]*types.FeedInfo),
	}

	siteParser := parser.NewSiteParser(s.engine, logger)
	feedParser := parser.NewFeedParser(s.engine, cfg.Spider.FaviconDataURI)

	s.engine.OnCallback(types.CallbackSite, siteParser.Parse)
	s.engine.OnCallback(types.CallbackFeed, feedParser.Parse)
	s.engine.OnCallback(types.CallbackFavicon, s.faviconCallback)
	s.engine.SetItemProcessor(s.processItem)

	return s
}

// processItem is the Engine's ItemProcessor: it applies the full_crawl
// host-gating Open Question resolution (spec §9) and collects results.
func (s *Spider) processItem(item *types.FeedInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[item.URL] {
		return
	}
	s.seen[item.URL] = true
	s.items = append(s.items, item)
	s.byURL[item.URL] = item

	if !s.cfg.Spider.FullCrawl && item.Bozo == 0 {
		if host := hostOf(item.URL); host != "" {
			s.engine.MarkHostSatisfied(host)
		}
	}
}

// Crawl runs the engine against seedURLs, expanding each seed via "try
// URLs" when configured (spec §4.5 "Seed expansion"), and returns the
// discovered feeds sorted per spec §4.7.
func (s *Spider) Crawl(ctx context.Context, seedURLs []string) ([]*types.FeedInfo, engine.Summary) {
	var seeds []*types.Request

	for _, raw := range seedURLs {
		req, err := s.engine.Follow(raw, types.CallbackSite, nil)
		if err != nil {
			s.logger.Warn("invalid seed URL", "url", raw, "error", err)
			continue
		}
		req.Priority = types.PriorityHighest
		seeds = append(seeds, req)

		if s.cfg.Spider.TryURLs {
			seeds = append(seeds, parser.TryURLs(s.engine, raw)...)
		}
	}

	s.engine.Crawl(ctx, seeds)

	s.mu.Lock()
	items := append([]*types.FeedInfo{}, s.items...)
	s.mu.Unlock()

	scoring.Sort(items)

	return items, s.engine.Stats().Finalize(s.engine.URLsSeen())
}

func hostOf(rawURL string) string {
	req, err := types.NewRequest(rawURL, nil)
	if err != nil {
		return ""
	}
	return req.URL.Hostname()
}

// faviconCallback is the Engine callback bound to CallbackFavicon: it
// converts the fetched bytes to a data URI and attaches it back to the
// originating FeedInfo, looked up by the feed_url the Feed Parser stashed
// in the Request's Meta (spec §4.6 step 8).
func (s *Spider) faviconCallback(req *types.Request, resp *types.Response) (interface{}, error) {
	if !resp.OK() {
		return nil, nil
	}
	feedURL, _ := req.Meta["feed_url"].(string)
	if feedURL == "" {
		return nil, nil
	}

	encoded := base64.StdEncoding.EncodeToString(resp.Body)
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentTypeOrDefault(resp.ContentType), encoded)

	s.mu.Lock()
	if info, ok := s.byURL[feedURL]; ok {
		info.Favicon = dataURI
	}
	s.mu.Unlock()

	return nil, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "image/x-icon"
	}
	return ct
}
