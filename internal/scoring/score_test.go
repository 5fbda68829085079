package scoring

import (
	"testing"

	"github.com/feedhawk/feedhawk/internal/types"
)

func sampleFeeds() []*types.FeedInfo {
	return []*types.FeedInfo{
		{URL: "http://b.example.com/feed", Score: 5},
		{URL: "http://a.example.com/feed", Score: 5},
		{URL: "http://c.example.com/feed", Score: 10},
	}
}

func TestScoreKeywordAccumulation(t *testing.T) {
	base := Score("http://example.com", "http://example.com/page")
	withFeed := Score("http://example.com", "http://example.com/feed")
	if withFeed <= base {
		t.Fatalf("expected feed keyword to raise score above base: base=%d withFeed=%d", base, withFeed)
	}
}

func TestScoreHTTPSPrefixNeverDecreases(t *testing.T) {
	http := Score("http://example.com", "http://example.com/rss")
	https := Score("http://example.com", "https://example.com/rss")
	if https < http {
		t.Fatalf("https prefix decreased score: http=%d https=%d", http, https)
	}
}

func TestScoreOffDomainPenalty(t *testing.T) {
	sameDomain := Score("http://example.com", "http://example.com/feed")
	offDomain := Score("http://example.com", "http://other.org/feed")
	if offDomain >= sameDomain {
		t.Fatalf("expected off-domain candidate to score lower: same=%d off=%d", sameDomain, offDomain)
	}
}

func TestScoreNegativeKeywords(t *testing.T) {
	plain := Score("http://example.com", "http://example.com/feed")
	comments := Score("http://example.com", "http://example.com/feed/comments")
	if comments >= plain {
		t.Fatalf("expected 'comments' to penalize score: plain=%d comments=%d", plain, comments)
	}
}

func TestSortOrdersByScoreThenURL(t *testing.T) {
	feeds := sampleFeeds()
	Sort(feeds)
	for i := 1; i < len(feeds); i++ {
		prev, cur := feeds[i-1], feeds[i]
		if prev.Score < cur.Score {
			t.Fatalf("not sorted by score descending at %d: %+v before %+v", i, prev, cur)
		}
		if prev.Score == cur.Score && prev.URL > cur.URL {
			t.Fatalf("tie not broken by URL ascending at %d: %+v before %+v", i, prev, cur)
		}
	}
}
