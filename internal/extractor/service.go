// Package extractor turns a fetched website into a logo, brand colour, and industry.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/clock/system"
	"github.com/JakeFAU/brandprobe/internal/metrics"
)

// Deps bundles the collaborators used by Service. Only Fetcher is required.
type Deps struct {
	Fetcher     brand.Fetcher
	Headless    brand.Fetcher
	Detector    brand.HeadlessDetector
	Prober      brand.Prober
	Cache       brand.Cache
	KnownBrands *brand.KnownBrands
	Blobs       brand.BlobStore
	Hasher      brand.Hasher
	Publisher   brand.Publisher
	Clock       brand.Clock
}

// Service runs the full extraction pipeline: cache, known brands, fetch, strategies, and fallback.
type Service struct {
	opts       Options
	deps       Deps
	strategies []LogoStrategy
	colors     *ColorExtractor
	industries *Classifier
	policy     brand.PlaceholderPolicy
	logger     *zap.Logger
}

// NewService wires a Service.
func NewService(opts Options, deps Deps, logger *zap.Logger) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Fetcher == nil {
		return nil, errors.New("extractor requires a fetcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	colors, err := NewColorExtractor(opts.CSSColorPatterns, opts.DefaultColor)
	if err != nil {
		return nil, err
	}
	industries, err := NewClassifier(opts.Industries, DefaultIndustry)
	if err != nil {
		return nil, err
	}
	if deps.KnownBrands == nil {
		deps.KnownBrands = brand.NewKnownBrands(brand.DefaultKnownBrands())
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return &Service{
		opts:       opts,
		deps:       deps,
		strategies: Strategies(opts, deps.Prober, logger),
		colors:     colors,
		industries: industries,
		policy:     opts.PlaceholderPolicy(),
		logger:     logger,
	}, nil
}

// Extract returns a usable result for rawURL. Fetch, parse, probe, and cache failures degrade the
// result instead of failing; the only error returned is the caller's context being done.
func (s *Service) Extract(ctx context.Context, rawURL string, opts brand.ExtractOptions) (brand.Result, error) {
	target, err := brand.Normalize(rawURL)
	if err != nil {
		s.logger.Warn("invalid url, using placeholder", zap.String("url", rawURL), zap.Error(err))
		res := s.placeholder(rawURL)
		metrics.ObserveExtraction(string(res.Outcome))
		return res, nil
	}
	logger := s.logger.With(zap.String("url", rawURL), zap.String("domain", target.Domain))
	entry, found := s.deps.KnownBrands.Lookup(target.Domain)

	if !opts.SkipCache {
		if res, ok := s.fromCache(ctx, rawURL, entry, found, logger); ok {
			metrics.ObserveExtraction(string(res.Outcome))
			return res, nil
		}
	}

	if found && entry.Complete() {
		res := s.fromKnownBrand(rawURL, entry)
		logger.Debug("served known brand")
		metrics.ObserveExtraction(string(res.Outcome))
		return res, nil
	}

	page, body, err := s.fetchPage(ctx, target, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return brand.Result{}, fmt.Errorf("extract %s: %w", rawURL, ctxErr)
		}
		logger.Warn("fetch failed, degrading", zap.Error(err))
		res := s.degraded(rawURL, target, entry, found)
		metrics.ObserveExtraction(string(res.Outcome))
		return res, nil
	}

	res := s.extractFromPage(ctx, rawURL, page, entry, found)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return brand.Result{}, fmt.Errorf("extract %s: %w", rawURL, ctxErr)
	}
	metrics.ObserveStrategyHit(string(res.LogoSource))

	record := brand.RecordFromResult(res, s.deps.Clock.Now())
	record.SnapshotURI = s.snapshot(ctx, target, body, logger)
	s.store(ctx, record, logger)
	s.publish(ctx, Event{
		Type:        EventExtracted,
		URL:         rawURL,
		Domain:      target.Domain,
		Logo:        res.Logo,
		BrandColor:  res.BrandColor,
		Industry:    res.Industry,
		SnapshotURI: record.SnapshotURI,
		OccurredAt:  record.CreatedAt,
	}, logger)

	logger.Info("extracted brand",
		zap.String("strategy", string(res.LogoSource)),
		zap.String("brand_color", res.BrandColor),
		zap.Int("alternatives", len(res.AlternativeLogos)),
	)
	metrics.ObserveExtraction(string(res.Outcome))
	return res, nil
}

// Publish sends an event to the configured topic. It is a no-op without a publisher or topic.
func (s *Service) Publish(ctx context.Context, event Event) {
	s.publish(ctx, event, s.logger)
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) extractFromPage(
	ctx context.Context,
	rawURL string,
	page *Page,
	entry brand.KnownBrand,
	found bool,
) brand.Result {
	primary, alternatives := s.selectLogos(ctx, page)
	if found && entry.Logo != "" {
		alternatives = brand.PrependAlternative(primary.URL, alternatives, s.opts.MaxAlternatives)
		primary = brand.Candidate{URL: entry.Logo, Source: brand.SourceKnownBrand}
		alternatives = brand.WithoutURL(alternatives, primary.URL)
	}
	industry := s.industries.Classify(page)
	if found && entry.Industry != "" {
		industry = entry.Industry
	}
	return brand.Result{
		URL:              rawURL,
		Logo:             primary.URL,
		BrandColor:       s.colors.Extract(page, entry, found),
		Industry:         industry,
		AlternativeLogos: alternatives,
		LogoSource:       primary.Source,
		Outcome:          brand.OutcomeExtracted,
	}
}

// selectLogos walks the strategy table. The first candidate becomes the primary; later distinct
// candidates fill the alternatives up to the cap. Once a primary exists only strategies that need
// no probing still run.
func (s *Service) selectLogos(ctx context.Context, page *Page) (brand.Candidate, []string) {
	var (
		primary      brand.Candidate
		alternatives []string
		seen         = make(map[string]struct{})
	)
	for _, strat := range s.strategies {
		if primary.URL != "" && (strat.Network() || len(alternatives) >= s.opts.MaxAlternatives) {
			continue
		}
		for _, c := range strat.Extract(ctx, page) {
			if c.URL == "" {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			if primary.URL == "" {
				primary = c
				s.logger.Debug("primary logo chosen",
					zap.String("domain", page.Domain()), zap.String("strategy", string(c.Source)))
				continue
			}
			if len(alternatives) < s.opts.MaxAlternatives {
				alternatives = append(alternatives, c.URL)
			}
		}
	}
	if primary.URL == "" {
		primary = brand.Candidate{URL: s.opts.FaviconURL(page.Domain()), Source: brand.SourceFaviconService}
	}
	return primary, alternatives
}

func (s *Service) fromCache(
	ctx context.Context,
	rawURL string,
	entry brand.KnownBrand,
	found bool,
	logger *zap.Logger,
) (brand.Result, bool) {
	if s.deps.Cache == nil {
		return brand.Result{}, false
	}
	record, ok, err := s.deps.Cache.Get(ctx, rawURL)
	if err != nil {
		metrics.ObserveCacheError("get")
		logger.Warn("cache read failed", zap.Error(err))
		return brand.Result{}, false
	}
	if !ok {
		return brand.Result{}, false
	}
	corrected, patch := brand.Reconcile(record, entry, found, s.policy)
	if !patch.Empty() {
		if err := s.deps.Cache.Patch(ctx, rawURL, patch); err != nil {
			metrics.ObserveCacheError("patch")
			logger.Warn("cache patch failed", zap.Error(err))
		} else {
			logger.Info("corrected cached record from known brand")
		}
	}
	return corrected.Result(), true
}

func (s *Service) fromKnownBrand(rawURL string, entry brand.KnownBrand) brand.Result {
	industry := entry.Industry
	if industry == "" {
		industry = s.industries.Fallback()
	}
	return brand.Result{
		URL:        rawURL,
		Logo:       entry.Logo,
		BrandColor: entry.BrandColor,
		Industry:   industry,
		LogoSource: brand.SourceKnownBrand,
		Outcome:    brand.OutcomeKnownBrand,
	}
}

func (s *Service) degraded(rawURL string, target brand.Target, entry brand.KnownBrand, found bool) brand.Result {
	res := brand.Result{
		URL:        rawURL,
		Logo:       s.opts.FaviconURL(target.Domain),
		BrandColor: s.colors.Default(),
		Industry:   s.industries.Fallback(),
		LogoSource: brand.SourceFaviconService,
		Outcome:    brand.OutcomeDegraded,
	}
	if !found {
		return res
	}
	if entry.Logo != "" {
		res.Logo = entry.Logo
		res.LogoSource = brand.SourceKnownBrand
	}
	if entry.BrandColor != "" {
		res.BrandColor = entry.BrandColor
	}
	if entry.Industry != "" {
		res.Industry = entry.Industry
	}
	return res
}

func (s *Service) placeholder(rawURL string) brand.Result {
	return brand.Result{
		URL:        rawURL,
		Logo:       s.opts.PlaceholderLogo,
		BrandColor: s.colors.Default(),
		Industry:   s.industries.Fallback(),
		LogoSource: brand.SourcePlaceholder,
		Outcome:    brand.OutcomeDegraded,
	}
}

func (s *Service) fetchPage(ctx context.Context, target brand.Target, logger *zap.Logger) (*Page, []byte, error) {
	resp, err := s.deps.Fetcher.Fetch(ctx, brand.FetchRequest{URL: target.FullURL})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", brand.ErrFetchFailed, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, fmt.Errorf("%w: status %d", brand.ErrFetchFailed, resp.StatusCode)
	}
	resp = s.maybeRender(ctx, target, resp, logger)

	page, err := NewPage(target, resp.URL, resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", brand.ErrFetchFailed, err)
	}
	return page, resp.Body, nil
}

func (s *Service) maybeRender(
	ctx context.Context,
	target brand.Target,
	resp brand.FetchResponse,
	logger *zap.Logger,
) brand.FetchResponse {
	if s.deps.Headless == nil || s.deps.Detector == nil || !s.deps.Detector.ShouldPromote(resp) {
		return resp
	}
	rendered, err := s.deps.Headless.Fetch(ctx, brand.FetchRequest{URL: target.FullURL})
	if err != nil {
		logger.Warn("headless render failed, keeping static body", zap.Error(err))
		return resp
	}
	if rendered.StatusCode < http.StatusOK || rendered.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("headless render returned non-2xx, keeping static body", zap.Int("status", rendered.StatusCode))
		return resp
	}
	logger.Debug("promoted to headless render")
	return rendered
}

func (s *Service) snapshot(ctx context.Context, target brand.Target, body []byte, logger *zap.Logger) string {
	if s.deps.Blobs == nil || s.deps.Hasher == nil || len(body) == 0 {
		return ""
	}
	digest, err := s.deps.Hasher.Hash(body)
	if err != nil {
		logger.Warn("hash snapshot failed", zap.Error(err))
		return ""
	}
	objectPath := path.Join(s.opts.SnapshotPrefix, target.Domain, digest+".html")
	uri, err := s.deps.Blobs.PutObject(ctx, objectPath, "text/html; charset=utf-8", bytes.NewReader(body))
	if err != nil {
		logger.Warn("write snapshot failed", zap.String("path", objectPath), zap.Error(err))
		return ""
	}
	return uri
}

func (s *Service) store(ctx context.Context, record brand.Record, logger *zap.Logger) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Put(ctx, record); err != nil {
		metrics.ObserveCacheError("put")
		logger.Warn("cache write failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event Event, logger *zap.Logger) {
	if s.deps.Publisher == nil || s.opts.EventTopic == "" {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.deps.Clock.Now()
	}
	if _, err := s.deps.Publisher.Publish(ctx, s.opts.EventTopic, event); err != nil {
		logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
	}
}
