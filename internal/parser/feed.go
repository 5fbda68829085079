package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/feedhawk/feedhawk/internal/scoring"
	"github.com/feedhawk/feedhawk/internal/types"
	"github.com/feedhawk/feedhawk/internal/urlutil"
)

const titleMaxLen = 1024

// FeedParser turns a fetched Response into a FeedInfo, in either XML mode
// (delegated to gofeed) or JSON Feed mode (hand-parsed) (spec §4.6). The
// Request's FeedHint selects the mode and is mandatory.
type FeedParser struct {
	engine       Follower
	faviconInline bool
	sanitizer    *bluemonday.Policy
}

// NewFeedParser creates a FeedParser. faviconInline mirrors
// spider.favicon_data_uri: when true, a discovered favicon triggers a
// follow Request that inlines it as a data URI (spec §4.6 step 8).
func NewFeedParser(engine Follower, faviconInline bool) *FeedParser {
	return &FeedParser{
		engine:        engine,
		faviconInline: faviconInline,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

// Parse is the Callback bound to Requests tagged CallbackFeed.
func (p *FeedParser) Parse(req *types.Request, resp *types.Response) (interface{}, error) {
	if req.FeedHint == "" {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: types.ErrMissingHint}
	}

	info := types.NewFeedInfo(resp.FinalURL, resp.ContentType)

	hubs, self := urlutil.ExtractHubsAndSelf(urlutil.ParseLinkHeader(resp.Headers.Get("Link")))
	info.Hubs = hubs
	info.SelfURL = self

	var err error
	switch req.FeedHint {
	case types.FeedHintJSON:
		err = p.parseJSON(resp, info)
	case types.FeedHintXML:
		err = p.parseXML(resp, info)
	default:
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: fmt.Errorf("unknown feed hint %q", req.FeedHint)}
	}
	if err != nil {
		return nil, err
	}

	info.Finalize()
	info.Score = scoring.Score(req.OriginatorURL(), info.URL)

	var out []interface{}
	out = append(out, info)

	if p.faviconInline && info.Favicon != "" && info.Bozo == 0 {
		favReq, ferr := p.engine.Follow(info.Favicon, types.CallbackFavicon, resp)
		if ferr == nil {
			favReq.Meta["feed_url"] = info.URL
			out = append(out, favReq)
		}
	}

	return out, nil
}

// jsonFeedDoc mirrors the subset of the JSON Feed format FeedHawk reads.
type jsonFeedDoc struct {
	Version     string   `json:"version"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Favicon     string   `json:"favicon"`
	Hubs        []jsonHub `json:"hubs"`
}

type jsonHub struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// parseJSON implements spec §4.6 "JSON mode": version must contain
// jsonfeed.org/version/, else bozo=1 (an Open Question resolved in favor
// of never panicking on a missing/null version field).
func (p *FeedParser) parseJSON(resp *types.Response, info *types.FeedInfo) error {
	var doc jsonFeedDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		info.Bozo = 1
		return nil
	}

	if !strings.Contains(doc.Version, "https://jsonfeed.org/version/") {
		info.Bozo = 1
		return nil
	}

	info.Version = doc.Version
	info.Title = truncateTitle(doc.Title)
	info.Description = doc.Description
	if doc.Favicon != "" {
		info.Favicon = doc.Favicon
	} else {
		info.Favicon = doc.Icon
	}

	if len(info.Hubs) == 0 {
		for _, h := range doc.Hubs {
			info.Hubs = append(info.Hubs, h.URL)
		}
	}
	return nil
}

// linkRelRegexp pulls rel="hub"/"self" atom:link elements out of raw feed
// XML; gofeed's Feed.Links flattens away rel information, so this is a
// small targeted scan rather than a second full parse.
var linkRelRegexp = regexp.MustCompile(`(?is)<(?:atom:)?link\b([^>]*)/?>`)
var hrefAttrRegexp = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
var relAttrRegexp = regexp.MustCompile(`(?i)rel\s*=\s*["']([^"']+)["']`)

func extractRelLinksFromXML(body []byte) (hubs []string, self string) {
	for _, m := range linkRelRegexp.FindAllStringSubmatch(string(body), -1) {
		attrs := m[1]
		relMatch := relAttrRegexp.FindStringSubmatch(attrs)
		hrefMatch := hrefAttrRegexp.FindStringSubmatch(attrs)
		if relMatch == nil || hrefMatch == nil {
			continue
		}
		switch strings.ToLower(relMatch[1]) {
		case "hub":
			hubs = append(hubs, hrefMatch[1])
		case "self":
			if self == "" {
				self = hrefMatch[1]
			}
		}
	}
	return hubs, self
}

// parseXML implements spec §4.6 "XML mode": delegates to gofeed with the
// already-decoded body text. Response headers are not passed to gofeed;
// the fetcher has already removed Content-Encoding from them.
func (p *FeedParser) parseXML(resp *types.Response, info *types.FeedInfo) error {
	fp := gofeed.NewParser()
	feed, err := fp.ParseString(resp.Text)
	if err != nil {
		if isEncodingOverrideWarning(err) {
			// A mere character-encoding override warning, not a
			// structural failure — continue without marking bozo.
		} else {
			info.Bozo = 1
			return nil
		}
	}
	if feed == nil {
		info.Bozo = 1
		return nil
	}

	info.Version = feed.FeedVersion
	info.Title = truncateTitle(p.sanitizer.Sanitize(feed.Title))

	// gofeed already normalizes Atom's subtitle into Description, which is
	// the "prefer subtitle, fall back to description" rule collapsed into
	// one field upstream.
	info.Description = feed.Description

	if feed.Image != nil && feed.Image.URL != "" {
		info.Favicon = feed.Image.URL
	}

	if len(info.Hubs) == 0 {
		hubs, self := extractRelLinksFromXML(resp.Body)
		info.Hubs = hubs
		if info.SelfURL == "" {
			info.SelfURL = self
		}
	}

	return nil
}

func isEncodingOverrideWarning(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "encoding")
}

func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) <= titleMaxLen {
		return title
	}
	return title[:titleMaxLen-1] + "…"
}
