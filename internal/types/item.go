package types

import "encoding/json"

// FeedInfo is the only concrete Item kind in scope: a validated syndication
// feed descriptor (spec §3).
type FeedInfo struct {
	URL         string
	ContentType string
	Title       string
	Description string
	Version     string
	Favicon     string
	Hubs        []string
	SelfURL     string
	IsPush      bool
	// Bozo is 1 when the feed parsed with structural warnings or errors;
	// the FeedInfo is still emitted (spec §7 "Parser failure").
	Bozo int
	Score int
}

// NewFeedInfo seeds a FeedInfo from a Response's final URL and content type
// (spec §4.6 step 1).
func NewFeedInfo(url, contentType string) *FeedInfo {
	return &FeedInfo{
		URL:         url,
		ContentType: contentType,
		Hubs:        []string{},
	}
}

// Finalize sets IsPush per spec §4.6 step 6: true iff both hubs and a
// self-URL are known.
func (f *FeedInfo) Finalize() {
	f.IsPush = len(f.Hubs) > 0 && f.SelfURL != ""
	if f.Hubs == nil {
		f.Hubs = []string{}
	}
}

// feedInfoJSON mirrors FeedInfo with fields declared in alphabetical order
// so encoding/json.MarshalIndent emits sorted object keys (spec §6) without
// a bespoke pretty-printer.
type feedInfoJSON struct {
	Bozo        int      `json:"bozo"`
	ContentType string   `json:"content_type"`
	Description string   `json:"description"`
	Favicon     string   `json:"favicon"`
	Hubs        []string `json:"hubs"`
	IsPush      bool     `json:"is_push"`
	Score       int      `json:"score"`
	SelfURL     string   `json:"self_url"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Version     string   `json:"version"`
}

// MarshalJSON implements json.Marshaler, emitting sorted, null-free keys.
func (f *FeedInfo) MarshalJSON() ([]byte, error) {
	hubs := f.Hubs
	if hubs == nil {
		hubs = []string{}
	}
	return json.Marshal(feedInfoJSON{
		Bozo:        f.Bozo,
		ContentType: f.ContentType,
		Description: f.Description,
		Favicon:     f.Favicon,
		Hubs:        hubs,
		IsPush:      f.IsPush,
		Score:       f.Score,
		SelfURL:     f.SelfURL,
		Title:       f.Title,
		URL:         f.URL,
		Version:     f.Version,
	})
}

// CallbackResult is an envelope pairing a parser-produced value with a
// recursion counter bounding nested lazy-sequence expansion (spec §3, §4.4).
type CallbackResult struct {
	// Value is one of: *Request, *FeedInfo, *CallbackResult, []any (a
	// produced sequence), or the engine package's LazySeq or Deferred types.
	// A plain func() (any, error) is not recognized as a deferred computation.
	Value interface{}
	Depth int
}
