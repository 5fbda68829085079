package urlutil

import "testing"

func TestParseLinkHeaderBasic(t *testing.T) {
	header := `<https://pubsubhubbub.appspot.com/>; rel="hub", <https://example.org/rss>; rel="self"`
	values := ParseLinkHeader(header)
	if len(values) != 2 {
		t.Fatalf("expected 2 link values, got %d", len(values))
	}
	hubs, self := ExtractHubsAndSelf(values)
	if len(hubs) != 1 || hubs[0] != "https://pubsubhubbub.appspot.com/" {
		t.Errorf("unexpected hubs: %v", hubs)
	}
	if self != "https://example.org/rss" {
		t.Errorf("unexpected self: %q", self)
	}
}

func TestParseLinkHeaderQuotedComma(t *testing.T) {
	header := `<https://example.com/a>; rel="hub"; title="a, b", <https://example.com/b>; rel="self"`
	values := ParseLinkHeader(header)
	if len(values) != 2 {
		t.Fatalf("expected 2 link values (comma inside quotes must not split), got %d: %+v", len(values), values)
	}
	if values[0].Params["title"] != "a, b" {
		t.Errorf("expected quoted comma preserved, got %q", values[0].Params["title"])
	}
}

func TestParseLinkHeaderMultipleHubs(t *testing.T) {
	header := `<https://hub1.example.com/>; rel="hub", <https://hub2.example.com/>; rel="hub"`
	hubs, self := ExtractHubsAndSelf(ParseLinkHeader(header))
	if len(hubs) != 2 {
		t.Errorf("expected 2 hubs, got %d", len(hubs))
	}
	if self != "" {
		t.Errorf("expected no self, got %q", self)
	}
}

func TestCoerce(t *testing.T) {
	cases := map[string]string{
		"example.com":        "http://example.com",
		"http://example.com":  "http://example.com",
		"https://example.com": "https://example.com",
	}
	for in, want := range cases {
		if got := Coerce(in); got != want {
			t.Errorf("Coerce(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSubdomainOrSuffix(t *testing.T) {
	if !IsSubdomainOrSuffix("example.com", "example.com") {
		t.Error("exact match should pass")
	}
	if !IsSubdomainOrSuffix("example.com", "feeds.example.com") {
		t.Error("subdomain should pass")
	}
	if IsSubdomainOrSuffix("example.com", "notexample.com") {
		t.Error("unrelated domain should fail")
	}
}
