package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/clock/system"
)

const acmePage = `<!doctype html>
<html>
<head>
  <title>Acme Payments</title>
  <meta name="description" content="Online payment processing for small business">
  <meta name="theme-color" content="#4285F4">
  <meta property="og:image" content="/social/card.png">
  <meta name="twitter:image" content="/social/card.png">
  <link rel="icon" href="/favicon.ico">
</head>
<body>
  <header class="site-header">
    <a href="/"><img class="logo" src="/assets/logo.svg" alt="Acme logo"></a>
    <img class="hero-banner" src="/assets/hero.jpg">
  </header>
  <main>
    <img class="brand-mark" src="/assets/logo.svg">
    <img alt="Acme brand" src="/assets/wordmark.png">
    <div style="background-image: url('/img/pattern.svg')"></div>
  </main>
</body>
</html>`

func newTestService(t *testing.T, deps Deps, opts Options) *Service {
	t.Helper()
	svc, err := NewService(opts, deps, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestExtract_KnownBrandSkipsFetch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	cache := newFakeCache()
	svc := newTestService(t, Deps{Fetcher: fetcher, Cache: cache}, Options{})

	res, err := svc.Extract(context.Background(), "apple.com", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#000000", res.BrandColor)
	require.NotEmpty(t, res.Logo)
	require.Equal(t, brand.SourceKnownBrand, res.LogoSource)
	require.Equal(t, brand.OutcomeKnownBrand, res.Outcome)
	require.Zero(t, fetcher.Calls())
	require.Zero(t, cache.puts)
}

func TestExtract_ThemeColorAndStrategies(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber()}, Options{})

	res, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#4285F4", res.BrandColor)
	require.Equal(t, "https://acme.test/assets/logo.svg", res.Logo)
	require.Equal(t, brand.SourceNavImage, res.LogoSource)
	require.Equal(t, "Finance", res.Industry)
	require.Equal(t, brand.OutcomeExtracted, res.Outcome)
}

func TestExtract_AlternativesExcludePrimaryAndDuplicates(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber()}, Options{})

	res, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.NotContains(t, res.AlternativeLogos, res.Logo)
	require.LessOrEqual(t, len(res.AlternativeLogos), DefaultMaxAlternatives)

	seen := make(map[string]bool)
	for _, alt := range res.AlternativeLogos {
		require.False(t, seen[alt], "duplicate alternative %s", alt)
		seen[alt] = true
	}
	require.Contains(t, res.AlternativeLogos, "https://acme.test/assets/wordmark.png")
	require.Contains(t, res.AlternativeLogos, "https://acme.test/social/card.png")
}

func TestExtract_NetworkStrategiesSkippedAfterPrimary(t *testing.T) {
	t.Parallel()

	clearbit := "https://logo.clearbit.com/acme.test"
	prober := newFakeProber(clearbit, "https://acme.test/favicon.ico")
	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: prober}, Options{})

	res, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, clearbit, res.Logo)
	require.Equal(t, brand.SourceLookupService, res.LogoSource)
	require.Contains(t, res.AlternativeLogos, "https://acme.test/assets/logo.svg")

	for _, probed := range prober.Probed() {
		require.NotEqual(t, "https://acme.test/favicon.ico", probed)
	}
}

func TestExtract_AllStrategiesFail(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"https://plain.test": "<html><body><p>nothing here</p></body></html>"})
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber()}, Options{})

	res, err := svc.Extract(context.Background(), "plain.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "https://www.google.com/s2/favicons?domain=plain.test&sz=128", res.Logo)
	require.Equal(t, brand.SourceFaviconService, res.LogoSource)
	require.Equal(t, DefaultColor, res.BrandColor)
	require.Equal(t, DefaultIndustry, res.Industry)
	require.Empty(t, res.AlternativeLogos)
}

func TestExtract_FetchFailureDegrades(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	fetcher.err = errors.New("connection refused")
	cache := newFakeCache()
	svc := newTestService(t, Deps{Fetcher: fetcher, Cache: cache}, Options{})

	res, err := svc.Extract(context.Background(), "down.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Logo)
	require.Equal(t, DefaultColor, res.BrandColor)
	require.Equal(t, brand.OutcomeDegraded, res.Outcome)
	require.Zero(t, cache.puts, "degraded results are not cached")
}

func TestExtract_Non2xxDegradesToPartialKnownBrand(t *testing.T) {
	t.Parallel()

	known := brand.NewKnownBrands([]brand.KnownBrand{{Domain: "partial.test", BrandColor: "#123456"}})
	fetcher := newFakeFetcher(nil)
	svc := newTestService(t, Deps{Fetcher: fetcher, KnownBrands: known}, Options{})

	res, err := svc.Extract(context.Background(), "https://www.partial.test/about", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.Calls())
	require.Equal(t, "#123456", res.BrandColor)
	require.Equal(t, "https://www.google.com/s2/favicons?domain=partial.test&sz=128", res.Logo)
}

func TestExtract_InvalidURLReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	svc := newTestService(t, Deps{Fetcher: fetcher}, Options{})

	res, err := svc.Extract(context.Background(), "   ", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultPlaceholderLogo, res.Logo)
	require.Equal(t, DefaultColor, res.BrandColor)
	require.Zero(t, fetcher.Calls())
}

func TestExtract_CacheRoundTrip(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	cache := newFakeCache()
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber(), Cache: cache}, Options{})
	ctx := context.Background()

	first, err := svc.Extract(ctx, "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.puts)

	second, err := svc.Extract(ctx, "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.Calls())
	require.Equal(t, brand.OutcomeCacheHit, second.Outcome)
	require.Equal(t, first.Logo, second.Logo)
	require.Equal(t, first.BrandColor, second.BrandColor)
	require.Equal(t, first.AlternativeLogos, second.AlternativeLogos)

	_, err = svc.Extract(ctx, "acme.test", brand.ExtractOptions{SkipCache: true})
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.Calls())
}

func TestExtract_CacheIsKeyedByLiteralURL(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	cache := newFakeCache()
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber(), Cache: cache}, Options{})

	_, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	_, err = svc.Extract(context.Background(), "https://acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.Calls())
}

func TestExtract_CorrectsCachedPlaceholder(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.records["google.com"] = brand.Record{
		URL:        "google.com",
		Logo:       "https://www.google.com/s2/favicons?domain=google.com&sz=128",
		BrandColor: DefaultColor,
		Industry:   "Technology",
	}
	fetcher := newFakeFetcher(nil)
	svc := newTestService(t, Deps{Fetcher: fetcher, Cache: cache}, Options{})

	res, err := svc.Extract(context.Background(), "google.com", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#4285F4", res.BrandColor)
	require.NotContains(t, res.Logo, "s2/favicons")
	require.Equal(t, brand.OutcomeCacheHit, res.Outcome)
	require.Zero(t, fetcher.Calls())

	require.Len(t, cache.patches, 1)
	require.Equal(t, "#4285F4", cache.records["google.com"].BrandColor)
}

func TestExtract_CacheFailuresDoNotFailRequest(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.err = errors.New("database unavailable")
	fetcher := newFakeFetcher(map[string]string{"https://acme.test": acmePage})
	svc := newTestService(t, Deps{Fetcher: fetcher, Prober: newFakeProber(), Cache: cache}, Options{})

	res, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#4285F4", res.BrandColor)
}

func TestExtract_SnapshotAndEvent(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{}
	publisher := &fakePublisher{}
	cache := newFakeCache()
	clk := system.NewFixed(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, Deps{
		Fetcher:   newFakeFetcher(map[string]string{"https://acme.test": acmePage}),
		Prober:    newFakeProber(),
		Cache:     cache,
		Blobs:     blobs,
		Hasher:    staticHasher{},
		Publisher: publisher,
		Clock:     clk,
	}, Options{SnapshotPrefix: "snapshots", EventTopic: "brand-events"})

	_, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)

	require.Contains(t, blobs.objects, "snapshots/acme.test/abc123.html")
	require.Equal(t, "memory://snapshots/acme.test/abc123.html", cache.records["acme.test"].SnapshotURI)
	require.Equal(t, clk.Now(), cache.records["acme.test"].CreatedAt)

	require.Len(t, publisher.events, 1)
	require.Equal(t, "brand-events", publisher.topics[0])
	require.Equal(t, EventExtracted, publisher.events[0].Type)
	require.Equal(t, "acme.test", publisher.events[0].Domain)
}

func TestExtract_HeadlessPromotion(t *testing.T) {
	t.Parallel()

	static := newFakeFetcher(map[string]string{"https://spa.test": `<html><body><div id="root"></div></body></html>`})
	rendered := newFakeFetcher(map[string]string{
		"https://spa.test": `<html><head><meta name="theme-color" content="#E50914"></head>` +
			`<body><nav><img src="/logo.png"></nav></body></html>`,
	})
	svc := newTestService(t, Deps{
		Fetcher:  static,
		Headless: rendered,
		Detector: alwaysPromote{},
		Prober:   newFakeProber(),
	}, Options{})

	res, err := svc.Extract(context.Background(), "spa.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, rendered.Calls())
	require.Equal(t, "#E50914", res.BrandColor)
	require.Equal(t, "https://spa.test/logo.png", res.Logo)
}

func TestExtract_HeadlessFailureKeepsStaticBody(t *testing.T) {
	t.Parallel()

	rendered := newFakeFetcher(nil)
	rendered.err = errors.New("chrome not installed")
	svc := newTestService(t, Deps{
		Fetcher:  newFakeFetcher(map[string]string{"https://acme.test": acmePage}),
		Headless: rendered,
		Detector: alwaysPromote{},
		Prober:   newFakeProber(),
	}, Options{})

	res, err := svc.Extract(context.Background(), "acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#4285F4", res.BrandColor)
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	fetcher.err = context.Canceled
	cache := newFakeCache()
	svc := newTestService(t, Deps{Fetcher: fetcher, Cache: cache}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Extract(ctx, "acme.test", brand.ExtractOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, cache.puts)
}

func TestNewServiceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewService(Options{}, Deps{}, nil)
	require.Error(t, err)

	_, err = NewService(Options{DefaultColor: "teal"}, Deps{Fetcher: newFakeFetcher(nil)}, nil)
	require.Error(t, err)

	_, err = NewService(Options{CSSColorPatterns: []string{"no-group"}}, Deps{Fetcher: newFakeFetcher(nil)}, nil)
	require.Error(t, err)
}
