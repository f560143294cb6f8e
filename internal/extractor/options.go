package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// DomainPlaceholder is replaced with the bare domain in service URL templates.
const DomainPlaceholder = "{domain}"

// Defaults used when Options leaves a field empty.
const (
	DefaultColor           = "#008F5D"
	DefaultPlaceholderLogo = "/placeholder.svg"
	DefaultFaviconService  = "https://www.google.com/s2/favicons?domain={domain}&sz=128"
	DefaultIndustry        = "Technology"
	DefaultMaxAlternatives = 5
)

// DefaultLogoServices are third-party logo lookup endpoints tried before any page heuristics.
var DefaultLogoServices = []string{
	"https://logo.clearbit.com/{domain}",
	"https://icons.duckduckgo.com/ip3/{domain}.ico",
}

// DefaultIconPaths are conventional icon locations relative to the site root.
var DefaultIconPaths = []string{
	"/apple-touch-icon.png",
	"/favicon.svg",
	"/favicon.png",
	"/favicon.ico",
	"/logo.svg",
	"/logo.png",
}

// DefaultCSSColorPatterns are scanned over the raw markup. Each has one capture group holding the colour value.
var DefaultCSSColorPatterns = []string{
	`(?i)--primary-color\s*:\s*([^;}"']+)`,
	`(?i)--brand-color\s*:\s*([^;}"']+)`,
	`(?i)--color-primary\s*:\s*([^;}"']+)`,
	`(?i)\.brand[\w-]*\s*\{[^}]*?color\s*:\s*([^;}"']+)`,
	`(?i)\.navbar[\w-]*\s*\{[^}]*?background(?:-color)?\s*:\s*([^;}"']+)`,
	`(?i)\.btn-primary\s*\{[^}]*?background(?:-color)?\s*:\s*([^;}"']+)`,
	`(?i)header\s*\{[^}]*?background(?:-color)?\s*:\s*([^;}"']+)`,
}

// Options configures the extraction pipeline. Zero values fall back to the package defaults.
type Options struct {
	DefaultColor     string
	PlaceholderLogo  string
	FaviconService   string
	LogoServices     []string
	IconPaths        []string
	CSSColorPatterns []string
	MaxAlternatives  int
	Industries       []IndustryRule
	// SnapshotPrefix is the object prefix for HTML snapshots.
	SnapshotPrefix string
	// EventTopic receives brand.extracted events. Empty disables publishing.
	EventTopic string
}

func (o Options) withDefaults() Options {
	if o.DefaultColor == "" {
		o.DefaultColor = DefaultColor
	}
	if o.PlaceholderLogo == "" {
		o.PlaceholderLogo = DefaultPlaceholderLogo
	}
	if o.FaviconService == "" {
		o.FaviconService = DefaultFaviconService
	}
	if o.LogoServices == nil {
		o.LogoServices = DefaultLogoServices
	}
	if o.IconPaths == nil {
		o.IconPaths = DefaultIconPaths
	}
	if o.CSSColorPatterns == nil {
		o.CSSColorPatterns = DefaultCSSColorPatterns
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = DefaultMaxAlternatives
	}
	if o.Industries == nil {
		o.Industries = DefaultIndustries()
	}
	return o
}

// Validate checks the colour, template, and path options. Colour patterns are compiled by NewService.
func (o Options) Validate() error {
	if o.DefaultColor != "" && !brand.IsHexColor(o.DefaultColor) {
		return fmt.Errorf("extractor.default_color %q is not a hex colour", o.DefaultColor)
	}
	if o.FaviconService != "" && !strings.Contains(o.FaviconService, DomainPlaceholder) {
		return fmt.Errorf("extractor.favicon_service must contain %s", DomainPlaceholder)
	}
	for _, svc := range o.LogoServices {
		if !strings.Contains(svc, DomainPlaceholder) {
			return fmt.Errorf("extractor.logo_services entry %q must contain %s", svc, DomainPlaceholder)
		}
	}
	for _, p := range o.IconPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("extractor.icon_paths entry %q must start with /", p)
		}
	}
	return nil
}

// PlaceholderPolicy returns the policy used to decide which cached values may be corrected.
func (o Options) PlaceholderPolicy() brand.PlaceholderPolicy {
	o = o.withDefaults()
	prefix, _, _ := strings.Cut(o.FaviconService, DomainPlaceholder)
	return brand.PlaceholderPolicy{
		Colors:       []string{o.DefaultColor},
		Logos:        []string{o.PlaceholderLogo},
		LogoPrefixes: []string{prefix},
	}
}

// FaviconURL expands the favicon service template for domain.
func (o Options) FaviconURL(domain string) string {
	return expandTemplate(o.withDefaults().FaviconService, domain)
}

func expandTemplate(tmpl, domain string) string {
	return strings.ReplaceAll(tmpl, DomainPlaceholder, domain)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile colour pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("colour pattern %q needs a capture group", p)
		}
		out = append(out, re)
	}
	return out, nil
}
