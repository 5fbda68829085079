// Package types defines the value objects shared across the crawl engine:
// Request, Response, FeedInfo, and the CallbackResult envelope.
package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// CallbackName identifies which parser a Request's Response should be
// routed to once fetched.
type CallbackName string

const (
	// CallbackSite routes a Response through the Site Parser, which mines
	// HTML for feed-candidate links.
	CallbackSite CallbackName = "site"
	// CallbackFeed routes a Response through the Feed Parser.
	CallbackFeed CallbackName = "feed"
	// CallbackFavicon converts a fetched favicon into a data URI and
	// attaches it back to the originating FeedInfo.
	CallbackFavicon CallbackName = "favicon"
)

// FeedHint tells the Feed Parser which mode to parse a Response in. It is
// mandatory whenever Callback is CallbackFeed; its absence is a programming
// error (spec §4.6).
type FeedHint string

const (
	FeedHintXML  FeedHint = "xml"
	FeedHintJSON FeedHint = "json"
)

// Request is an immutable description of a pending fetch. len(History) is
// the crawl depth of this request; a Request with HasRun true is never
// re-enqueued (spec §3).
type Request struct {
	URL     *url.URL
	Method  string
	Headers http.Header
	Body    []byte

	// History is the ordered sequence of URLs of prior hops (redirects and
	// follows) that led to this Request. History[0] is the originator URL.
	History []string

	Callback CallbackName
	FeedHint FeedHint

	MaxRetries int
	RetryCount int
	Timeout    time.Duration

	MaxContentLength int64

	// Priority controls dequeue order; lower value dequeues first. Seed
	// requests are PriorityHighest so they are fetched ahead of discovered
	// candidates.
	Priority int

	// HasRun is set exactly once, when the fetch has returned a Response and
	// before the bound callback runs.
	HasRun bool

	// Meta carries small bits of parser-specific context (e.g. the
	// FeedInfo a favicon-follow Request must attach to).
	Meta map[string]any

	ID        string
	CreatedAt time.Time
}

// Priority levels, lower value dequeues first.
const (
	PriorityHighest = 0
	PriorityNormal  = 2
	PriorityLow     = 4
)

// NewRequest builds a Request for rawURL with GET defaults. parentHistory,
// if non-nil, is copied so that depth propagates per spec §4.4 "follow".
func NewRequest(rawURL string, parentHistory []string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	history := make([]string, len(parentHistory), len(parentHistory)+1)
	copy(history, parentHistory)

	return &Request{
		URL:        u,
		Method:     http.MethodGet,
		Headers:    make(http.Header),
		History:    history,
		Priority:   PriorityNormal,
		MaxRetries: 3,
		Meta:       make(map[string]any),
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
	}, nil
}

// Depth is the crawl depth of this request: the number of hops already
// taken to reach it.
func (r *Request) Depth() int { return len(r.History) }

// URLString returns the string form of the target URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// OriginatorURL returns History[0], the seed URL this Request ultimately
// descends from, or the Request's own URL if it has no History yet.
func (r *Request) OriginatorURL() string {
	if len(r.History) == 0 {
		return r.URLString()
	}
	return r.History[0]
}

// Clone returns a deep copy, used when a Request is requeued for retry.
func (r *Request) Clone() *Request {
	clone := *r
	if r.URL != nil {
		u := *r.URL
		clone.URL = &u
	}
	clone.Headers = r.Headers.Clone()
	clone.History = append([]string(nil), r.History...)
	clone.Body = append([]byte(nil), r.Body...)
	clone.Meta = make(map[string]any, len(r.Meta))
	for k, v := range r.Meta {
		clone.Meta[k] = v
	}
	return &clone
}
