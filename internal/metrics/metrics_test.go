package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if extractionsTotal == nil || strategyHitsTotal == nil || probesTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(extractionsTotal.WithLabelValues("degraded"))
	ObserveExtraction("degraded")
	if val := testutil.ToFloat64(extractionsTotal.WithLabelValues("degraded")); val != before+1 {
		t.Errorf("Expected extractions_total{degraded} to increase by 1, got %f -> %f", before, val)
	}

	beforeProbe := testutil.ToFloat64(probesTotal.WithLabelValues("rejected"))
	ObserveProbe(false)
	if val := testutil.ToFloat64(probesTotal.WithLabelValues("rejected")); val != beforeProbe+1 {
		t.Errorf("Expected probes_total{rejected} to increase by 1, got %f -> %f", beforeProbe, val)
	}

	beforeCache := testutil.ToFloat64(cacheErrorsTotal.WithLabelValues("put"))
	ObserveCacheError("put")
	if val := testutil.ToFloat64(cacheErrorsTotal.WithLabelValues("put")); val != beforeCache+1 {
		t.Errorf("Expected cache_errors_total{put} to increase by 1, got %f -> %f", beforeCache, val)
	}

	ObserveFetch("probe", 120*time.Millisecond)
	if val := testutil.CollectAndCount(fetchDurationSeconds); val <= 0 {
		t.Errorf("Expected fetch_duration_seconds to be observed, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
