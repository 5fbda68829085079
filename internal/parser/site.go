// Package parser implements the Site Parser (HTML → feed candidates) and
// the Feed Parser (Response → FeedInfo) (spec §4.5, §4.6).
package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedhawk/feedhawk/internal/types"
	"github.com/feedhawk/feedhawk/internal/urlutil"
)

// feedMIMEs are the <link rel="alternate" type="..."> values recognized
// as syndication feeds (spec §4.5).
var feedMIMEs = map[string]types.FeedHint{
	"application/rss+xml":  types.FeedHintXML,
	"application/atom+xml": types.FeedHintXML,
	"text/xml":             types.FeedHintXML,
	"application/xml":      types.FeedHintXML,
	"application/json":     types.FeedHintJSON,
	"application/feed+json": types.FeedHintJSON,
}

// tryURLPaths are the fixed probe paths synthesized for each seed host
// (spec §4.5 "Seed expansion").
var tryURLPaths = []string{"/feed", "/rss", "/atom.xml", "/feed.json", "/index.xml"}

// Follower is the subset of engine.Engine the Site Parser needs: building
// a follow Request bound to a callback.
type Follower interface {
	Follow(rawURL string, callback types.CallbackName, parent *types.Response) (*types.Request, error)
}

// SiteParser extracts feed candidate links from an HTML Response
// (spec §4.5).
type SiteParser struct {
	engine Follower
	logger *slog.Logger
}

// NewSiteParser creates a SiteParser bound to engine for emitting follow
// Requests.
func NewSiteParser(engine Follower, logger *slog.Logger) *SiteParser {
	return &SiteParser{engine: engine, logger: logger.With("component", "site_parser")}
}

// Parse is the Callback bound to Requests tagged CallbackSite. It returns
// a []interface{} of *types.Request candidates (spec §4.4 "Recursive
// result dispatch": a plain slice is a lazily-dispatched batch).
func (p *SiteParser) Parse(req *types.Request, resp *types.Response) (interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text))
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}

	var candidates []interface{}
	seen := make(map[string]bool)

	doc.Find("link[rel=alternate]").Each(func(_ int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		hint, known := feedMIMEs[strings.ToLower(strings.TrimSpace(typ))]
		if !known {
			return
		}
		if c := p.candidate(resp, href, hint, seen); c != nil {
			candidates = append(candidates, c)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if !isFeedlike(href) {
			return
		}
		hint := hintFromExtension(href)
		if c := p.candidate(resp, href, hint, seen); c != nil {
			candidates = append(candidates, c)
		}
	})

	return candidates, nil
}

// candidate resolves href against resp's final URL, dedupes within this
// page, and builds a follow Request bound to the Feed Parser.
func (p *SiteParser) candidate(resp *types.Response, href string, hint types.FeedHint, seen map[string]bool) *types.Request {
	resolved := urlutil.ResolveReference(mustParse(resp.FinalURL), href)
	if resolved == nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
		return nil
	}
	resolved.Fragment = ""
	absURL := resolved.String()
	if seen[absURL] {
		return nil
	}
	seen[absURL] = true

	req, err := p.engine.Follow(absURL, types.CallbackFeed, resp)
	if err != nil {
		p.logger.Warn("follow failed", "url", absURL, "error", err)
		return nil
	}
	req.FeedHint = hint
	return req
}

// hintFromExtension infers xml-vs-json from a candidate URL's extension,
// defaulting to xml (spec §4.5: "a hint of expected type inferred from
// MIME or extension").
func hintFromExtension(href string) types.FeedHint {
	lower := strings.ToLower(href)
	if strings.HasSuffix(lower, ".json") || strings.Contains(lower, "feed.json") {
		return types.FeedHintJSON
	}
	return types.FeedHintXML
}

// TryURLs synthesizes the fixed probe-path Requests for a seed (spec §4.5
// "Seed expansion").
func TryURLs(engine Follower, seedURL string) []*types.Request {
	var reqs []*types.Request
	base := mustParse(seedURL)
	if base == nil {
		return nil
	}
	for _, path := range tryURLPaths {
		u := urlutil.Origin(base) + path
		req, err := engine.Follow(u, types.CallbackFeed, nil)
		if err != nil {
			continue
		}
		req.FeedHint = hintFromExtension(path)
		reqs = append(reqs, req)
	}
	return reqs
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
