package brand

import (
	"errors"
	"net/http"
	"time"
)

// Sentinel errors shared by the extraction pipeline and its collaborators.
var (
	// ErrInvalidURL reports user input that cannot be turned into an absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrFetchFailed reports an unreachable site or a non-2xx page response.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNotFound reports a missing job, session, or record.
	ErrNotFound = errors.New("not found")
	// ErrJobFinished reports a status change on a job that already reached a different terminal status.
	ErrJobFinished = errors.New("job already finished")
)

// Source names the strategy that produced a logo candidate.
type Source string

// Logo sources in extraction priority order, followed by the non-heuristic sources.
const (
	SourceLookupService  Source = "lookup_service"
	SourceNavImage       Source = "nav_image"
	SourceClassAltImage  Source = "class_alt_image"
	SourceJSONLD         Source = "json_ld"
	SourceInlineSVG      Source = "inline_svg"
	SourceTouchIcon      Source = "touch_icon"
	SourceIconLink       Source = "icon_link"
	SourceIconPath       Source = "icon_path"
	SourceOpenGraph      Source = "og_image"
	SourceTwitterImage   Source = "twitter_image"
	SourceSVGReference   Source = "svg_reference"
	SourcePNGReference   Source = "png_reference"
	SourceFaviconService Source = "favicon_service"
	SourceKnownBrand     Source = "known_brand"
	SourceCache          Source = "cache"
	SourcePlaceholder    Source = "placeholder"
	SourceManual         Source = "manual"
)

// Outcome classifies how a Result was produced.
type Outcome string

// Extraction outcomes, used for logging and metrics.
const (
	OutcomeCacheHit   Outcome = "cache_hit"
	OutcomeKnownBrand Outcome = "known_brand"
	OutcomeExtracted  Outcome = "extracted"
	OutcomeDegraded   Outcome = "degraded"
)

// Candidate is a transient logo candidate produced by one strategy.
type Candidate struct {
	URL    string
	Source Source
}

// Result is the structured extraction result returned to callers.
type Result struct {
	URL              string   `json:"url"`
	Logo             string   `json:"logo"`
	BrandColor       string   `json:"brand_color"`
	Industry         string   `json:"industry,omitempty"`
	AlternativeLogos []string `json:"alternativeLogos,omitempty"`
	LogoSource       Source   `json:"logo_source,omitempty"`
	Outcome          Outcome  `json:"-"`
}

// Target is the normalized form of a user-entered website address.
type Target struct {
	Input   string
	FullURL string
	BaseURL string
	Domain  string
}

// Record is the cached form of a Result, keyed by the literal submitted URL.
type Record struct {
	URL              string    `json:"url"`
	Logo             string    `json:"logo"`
	BrandColor       string    `json:"brand_color"`
	Industry         string    `json:"industry"`
	AlternativeLogos []string  `json:"alternativeLogos,omitempty"`
	SnapshotURI      string    `json:"snapshot_uri,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RecordFromResult converts a Result into a cache Record stamped with now.
func RecordFromResult(res Result, now time.Time) Record {
	return Record{
		URL:              res.URL,
		Logo:             res.Logo,
		BrandColor:       res.BrandColor,
		Industry:         res.Industry,
		AlternativeLogos: append([]string(nil), res.AlternativeLogos...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Result converts the Record back into a Result served from the cache.
func (r Record) Result() Result {
	return Result{
		URL:              r.URL,
		Logo:             r.Logo,
		BrandColor:       r.BrandColor,
		Industry:         r.Industry,
		AlternativeLogos: append([]string(nil), r.AlternativeLogos...),
		LogoSource:       SourceCache,
		Outcome:          OutcomeCacheHit,
	}
}

// RecordPatch carries the fields rewritten by the corrective pass. Nil fields are left untouched.
type RecordPatch struct {
	Logo       *string
	BrandColor *string
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Logo == nil && p.BrandColor == nil
}

// Apply returns a copy of r with the patch applied.
func (p RecordPatch) Apply(r Record) Record {
	if p.Logo != nil {
		r.Logo = *p.Logo
	}
	if p.BrandColor != nil {
		r.BrandColor = *p.BrandColor
	}
	return r
}

// ExtractOptions tweak a single extraction call.
type ExtractOptions struct {
	// SkipCache bypasses the cache read. A successful extraction is still written.
	SkipCache bool
}

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
