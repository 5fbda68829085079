package engine

import (
	"sync"
	"sync/atomic"
	"time"

	mstats "github.com/montanaflynn/stats"
)

// Stats accumulates per-fetch durations and content lengths for the crawl,
// and the running counters of spec §8's invariant:
// requests_added == requests_successful + requests_failed + cancelled.
type Stats struct {
	RequestsAdded      atomic.Int64
	RequestsSuccessful atomic.Int64
	RequestsFailed     atomic.Int64
	RequestsCancelled  atomic.Int64
	ItemsProcessed     atomic.Int64
	StartTime          time.Time

	mu              sync.Mutex
	durations       []float64
	contentLengths  []float64
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// RecordFetch appends one fetch's duration and content length for the
// final summary (spec §4.4 "Statistics").
func (s *Stats) RecordFetch(d time.Duration, contentLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, float64(d.Milliseconds()))
	s.contentLengths = append(s.contentLengths, float64(contentLength))
}

// Summary is the end-of-crawl statistics record (spec §4.4, §7
// "User-visible behavior").
type Summary struct {
	RequestsAdded      int64         `json:"requests_added"`
	RequestsSuccessful int64         `json:"requests_successful"`
	RequestsFailed     int64         `json:"requests_failed"`
	RequestsCancelled  int64         `json:"requests_cancelled"`
	ItemsProcessed     int64         `json:"items_processed"`
	URLsSeen           int           `json:"urls_seen"`
	Elapsed            time.Duration `json:"elapsed"`

	DurationMsTotal  float64 `json:"duration_ms_total"`
	DurationMsMin    float64 `json:"duration_ms_min"`
	DurationMsMax    float64 `json:"duration_ms_max"`
	DurationMsHarmonicMean float64 `json:"duration_ms_harmonic_mean"`

	ContentLengthTotal        float64 `json:"content_length_total"`
	ContentLengthMin          float64 `json:"content_length_min"`
	ContentLengthMax          float64 `json:"content_length_max"`
	ContentLengthHarmonicMean float64 `json:"content_length_harmonic_mean"`
}

// Finalize computes totals, min, max, and harmonic mean for durations and
// content lengths. Harmonic mean is used deliberately because it
// de-weights outliers, giving a statistic representative of typical
// latency rather than worst-case tails (spec §4.4, §9).
func (s *Stats) Finalize(urlsSeen int) Summary {
	s.mu.Lock()
	durations := append([]float64(nil), s.durations...)
	lengths := append([]float64(nil), s.contentLengths...)
	s.mu.Unlock()

	sum := Summary{
		RequestsAdded:      s.RequestsAdded.Load(),
		RequestsSuccessful: s.RequestsSuccessful.Load(),
		RequestsFailed:     s.RequestsFailed.Load(),
		RequestsCancelled:  s.RequestsCancelled.Load(),
		ItemsProcessed:     s.ItemsProcessed.Load(),
		URLsSeen:           urlsSeen,
		Elapsed:            time.Since(s.StartTime),
	}

	if total, err := mstats.Sum(durations); err == nil {
		sum.DurationMsTotal = total
	}
	if min, err := mstats.Min(durations); err == nil {
		sum.DurationMsMin = min
	}
	if max, err := mstats.Max(durations); err == nil {
		sum.DurationMsMax = max
	}
	if hm, err := mstats.HarmonicMean(durations); err == nil {
		sum.DurationMsHarmonicMean = hm
	}

	if total, err := mstats.Sum(lengths); err == nil {
		sum.ContentLengthTotal = total
	}
	if min, err := mstats.Min(lengths); err == nil {
		sum.ContentLengthMin = min
	}
	if max, err := mstats.Max(lengths); err == nil {
		sum.ContentLengthMax = max
	}
	if hm, err := mstats.HarmonicMean(lengths); err == nil {
		sum.ContentLengthHarmonicMean = hm
	}

	return sum
}
