package engine

import "testing"

func TestDuplicateFilterMarksAndTests(t *testing.T) {
	d := NewDuplicateFilter()

	if d.MarkAndTest("GET", "https://example.com/feed") {
		t.Error("should not be seen before first mark")
	}
	if !d.MarkAndTest("GET", "https://example.com/feed") {
		t.Error("should be seen after first mark")
	}
}

func TestDuplicateFilterCanonicalizesURL(t *testing.T) {
	d := NewDuplicateFilter()

	d.MarkAndTest("GET", "https://Example.COM:443/feed")
	if !d.MarkAndTest("GET", "https://example.com/feed") {
		t.Error("default-port and case variants should collapse to the same fingerprint")
	}
}

func TestDuplicateFilterDistinguishesMethod(t *testing.T) {
	d := NewDuplicateFilter()

	d.MarkAndTest("GET", "https://example.com/feed")
	if d.MarkAndTest("HEAD", "https://example.com/feed") {
		t.Error("different methods on the same URL should not collide")
	}
}

func TestDuplicateFilterCount(t *testing.T) {
	d := NewDuplicateFilter()
	d.MarkAndTest("GET", "https://example.com/a")
	d.MarkAndTest("GET", "https://example.com/b")
	d.MarkAndTest("GET", "https://example.com/a")

	if got := d.Count(); got != 2 {
		t.Errorf("expected 2 unique fingerprints, got %d", got)
	}
}
