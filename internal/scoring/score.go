// Package scoring implements the feed-relevance score and the final
// result-set ordering (spec §4.7).
package scoring

import (
	"net/url"
	"sort"
	"strings"

	"github.com/feedhawk/feedhawk/internal/types"
	"github.com/feedhawk/feedhawk/internal/urlutil"
)

// keywords are awarded descending even weights by list position: the first
// keyword in the list is worth 2*len(keywords), the next 2*(len-1), and so
// on (atom 10, rss 8, .xml 6, feed 4, rdf 2). Every keyword present adds
// its own weight.
var keywords = []string{"atom", "rss", ".xml", "feed", "rdf"}

// Score computes the integer relevance score for candidateURL relative to
// originURL, the seed that started the crawl chain (spec §4.7).
func Score(originURL, candidateURL string) int {
	score := 0

	origin, errOrigin := url.Parse(originURL)
	candidate, errCandidate := url.Parse(candidateURL)
	if errOrigin == nil && errCandidate == nil {
		if !urlutil.IsSubdomainOrSuffix(urlutil.Domain(origin), urlutil.Domain(candidate)) {
			score -= 17
		}
	}

	lower := strings.ToLower(candidateURL)

	if strings.Contains(lower, "comments") {
		score -= 15
	}
	if strings.Contains(lower, "georss") {
		score -= 9
	}
	if strings.Contains(lower, "alt") {
		score -= 7
	}

	weight := 2 * len(keywords)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score += weight
		}
		weight -= 2
	}

	if strings.HasPrefix(lower, "https") {
		score += 9
	}

	return score
}

// Sort orders feeds by score descending, breaking ties by URL ascending
// (spec §4.7, §8 "Sorting").
func Sort(feeds []*types.FeedInfo) {
	sort.SliceStable(feeds, func(i, j int) bool {
		if feeds[i].Score != feeds[j].Score {
			return feeds[i].Score > feeds[j].Score
		}
		return feeds[i].URL < feeds[j].URL
	})
}
