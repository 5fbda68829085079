package parser

import "testing"

func TestIsHrefMatchingFeedlike(t *testing.T) {
	cases := map[string]bool{
		"test.com/feed":          true,
		"feed":                   true,
		"feeds":                  true,
		"test.com/feeds/test":    true,
		"test.com/podcasts/test": false,
		"test.com/podcast":       false,
	}
	for href, want := range cases {
		if got := isHrefMatching(href, feedlikeRegex); got != want {
			t.Errorf("isHrefMatching(%q, feedlike) = %v, want %v", href, got, want)
		}
	}
}

func TestIsQuerystringMatchingFeedlike(t *testing.T) {
	cases := map[string]bool{
		"test.com?feed":               true,
		"test.com/test?url=feed&test=true": false,
		"test.com?feeds=test":         true,
		"test.com?podcast=test":       false,
	}
	for u, want := range cases {
		if got := isQuerystringMatching(u, feedlikeRegex); got != want {
			t.Errorf("isQuerystringMatching(%q, feedlike) = %v, want %v", u, got, want)
		}
	}
}

func TestIsHrefMatchingPodcast(t *testing.T) {
	cases := map[string]bool{
		"test.com/podcasts/test": true,
		"test.com/podcast":       true,
	}
	for href, want := range cases {
		if got := isHrefMatching(href, podcastRegex); got != want {
			t.Errorf("isHrefMatching(%q, podcast) = %v, want %v", href, got, want)
		}
	}
}

func TestIsFeedlikeExcludesPodcast(t *testing.T) {
	if isFeedlike("test.com/podcasts/ep1") {
		t.Error("isFeedlike should exclude podcast links")
	}
	if !isFeedlike("test.com/feed") {
		t.Error("isFeedlike should match plain feed links")
	}
}
