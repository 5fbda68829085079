package parser

import (
	"net/url"
	"regexp"
	"strings"
)

// feedlikeRegex matches whole tokens "feed" or "feeds"; word boundaries
// keep it from matching inside "podcast"/"podcasts" (spec §4.5, §8).
var feedlikeRegex = regexp.MustCompile(`(?i)\bfeeds?\b`)

// podcastRegex is feedlike's mirror image, matching "podcast"/"podcasts".
var podcastRegex = regexp.MustCompile(`(?i)\bpodcasts?\b`)

// isHrefMatching reports whether href contains a whole-token match for re
// (spec §8: "test.com/feed" true, "test.com/podcasts/test" false against
// feedlike).
func isHrefMatching(href string, re *regexp.Regexp) bool {
	return re.MatchString(href)
}

// isQuerystringMatching reports whether any query KEY (not value) in
// rawURL matches re (spec §8: "test.com?feed=test" true, "test.com/test
// ?url=feed" false).
func isQuerystringMatching(rawURL string, re *regexp.Regexp) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	query := u.RawQuery
	if query == "" {
		return false
	}
	for _, pair := range strings.Split(query, "&") {
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// isFeedlike reports whether href or its query string matches the
// feedlike regex, and is not itself a podcast link (spec §4.5 candidate
// rule).
func isFeedlike(href string) bool {
	if podcastRegex.MatchString(href) {
		return false
	}
	return isHrefMatching(href, feedlikeRegex) || isQuerystringMatching(href, feedlikeRegex)
}

// isPodcastlike is feedlike's mirror image.
func isPodcastlike(href string) bool {
	return isHrefMatching(href, podcastRegex) || isQuerystringMatching(href, podcastRegex)
}
