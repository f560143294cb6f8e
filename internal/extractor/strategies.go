package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// LogoStrategy is one step of the logo priority chain.
type LogoStrategy interface {
	Source() brand.Source
	// Network reports whether Extract issues probes. Network strategies are skipped once a primary logo is chosen.
	Network() bool
	Extract(ctx context.Context, page *Page) []brand.Candidate
}

type strategy struct {
	source  brand.Source
	network bool
	extract func(ctx context.Context, page *Page) []string
}

func (s strategy) Source() brand.Source { return s.source }

func (s strategy) Network() bool { return s.network }

func (s strategy) Extract(ctx context.Context, page *Page) []brand.Candidate {
	urls := s.extract(ctx, page)
	out := make([]brand.Candidate, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, brand.Candidate{URL: u, Source: s.source})
	}
	return out
}

// Strategies builds the logo strategy table in priority order.
func Strategies(opts Options, prober brand.Prober, logger *zap.Logger) []LogoStrategy {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return []LogoStrategy{
		strategy{source: brand.SourceLookupService, network: true, extract: lookupServices(opts.LogoServices, prober)},
		strategy{source: brand.SourceNavImage, extract: navImages},
		strategy{source: brand.SourceClassAltImage, extract: classAltImages},
		strategy{source: brand.SourceJSONLD, extract: jsonLDLogos(logger)},
		strategy{source: brand.SourceInlineSVG, extract: inlineSVGs},
		strategy{source: brand.SourceTouchIcon, network: true, extract: iconLinks(prober, isTouchIconRel)},
		strategy{source: brand.SourceIconLink, network: true, extract: iconLinks(prober, isIconRel)},
		strategy{source: brand.SourceIconPath, network: true, extract: iconPaths(opts.IconPaths, prober)},
		strategy{source: brand.SourceOpenGraph, extract: metaImage("og:image", "og:image:url", "og:image:secure_url")},
		strategy{source: brand.SourceTwitterImage, extract: metaImage("twitter:image", "twitter:image:src")},
		strategy{source: brand.SourceSVGReference, extract: referencePattern(svgReference)},
		strategy{source: brand.SourcePNGReference, extract: referencePattern(pngReference)},
		strategy{source: brand.SourceFaviconService, extract: faviconService(opts.FaviconService)},
	}
}

func lookupServices(templates []string, prober brand.Prober) func(context.Context, *Page) []string {
	return func(ctx context.Context, page *Page) []string {
		if prober == nil {
			return nil
		}
		var out []string
		for _, tmpl := range templates {
			candidate := expandTemplate(tmpl, page.Domain())
			if prober.Exists(ctx, candidate) {
				out = append(out, candidate)
			}
		}
		return out
	}
}

var nonLogoImagery = []string{"banner", "hero", "slide", "carousel", "background", "bg-", "avatar", "sprite"}

func navImages(_ context.Context, page *Page) []string {
	var out []string
	page.Doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if !insideBrandingContainer(img) || looksLikeNonLogo(img) {
			return
		}
		src := imageSource(img)
		if src == "" || isPlaceholderData(src) {
			return
		}
		out = append(out, page.Resolve(src))
	})
	return out
}

func insideBrandingContainer(img *goquery.Selection) bool {
	found := false
	img.Parents().EachWithBreak(func(_ int, parent *goquery.Selection) bool {
		switch goquery.NodeName(parent) {
		case "nav", "header":
			found = true
			return false
		}
		marker := strings.ToLower(parent.AttrOr("class", "") + " " + parent.AttrOr("id", ""))
		for _, hint := range []string{"logo", "brand", "nav", "menu"} {
			if strings.Contains(marker, hint) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func looksLikeNonLogo(img *goquery.Selection) bool {
	text := strings.ToLower(strings.Join([]string{
		img.AttrOr("src", ""), img.AttrOr("class", ""), img.AttrOr("id", ""), img.AttrOr("alt", ""),
	}, " "))
	for _, hint := range nonLogoImagery {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// isPlaceholderData rejects lazy-load stubs such as 1x1 gifs and empty inline SVGs.
func isPlaceholderData(src string) bool {
	lower := strings.ToLower(src)
	if !strings.HasPrefix(lower, "data:") {
		return false
	}
	if strings.HasPrefix(lower, "data:image/gif") || strings.Contains(lower, "placeholder") {
		return true
	}
	return strings.HasPrefix(lower, "data:image/svg+xml") && len(src) < 200
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			if attr == "src" && isPlaceholderData(v) {
				continue
			}
			return v
		}
	}
	return ""
}

func classAltImages(_ context.Context, page *Page) []string {
	var out []string
	page.Doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		class := strings.ToLower(img.AttrOr("class", ""))
		alt := strings.ToLower(img.AttrOr("alt", ""))
		if !strings.Contains(class, "logo") && !strings.Contains(class, "brand") &&
			!strings.Contains(alt, "logo") && !strings.Contains(alt, "brand") {
			return
		}
		if src := imageSource(img); src != "" {
			out = append(out, page.Resolve(src))
		}
	})
	return out
}

func jsonLDLogos(logger *zap.Logger) func(context.Context, *Page) []string {
	return func(_ context.Context, page *Page) []string {
		var out []string
		page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
			var payload any
			if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
				logger.Debug("skipping malformed json-ld block", zap.String("domain", page.Domain()), zap.Error(err))
				return
			}
			for _, logo := range logosFromJSONLD(payload, 0) {
				out = append(out, page.Resolve(logo))
			}
		})
		return out
	}
}

// logosFromJSONLD reads the logo property of an object and of its @graph,
// organization, and publisher members.
func logosFromJSONLD(v any, depth int) []string {
	if depth > 4 {
		return nil
	}
	switch node := v.(type) {
	case []any:
		var out []string
		for _, item := range node {
			out = append(out, logosFromJSONLD(item, depth+1)...)
		}
		return out
	case map[string]any:
		out := logoValue(node["logo"])
		for _, key := range []string{"@graph", "organization", "publisher"} {
			if child, ok := node[key]; ok {
				out = append(out, logosFromJSONLD(child, depth+1)...)
			}
		}
		return out
	}
	return nil
}

func logoValue(v any) []string {
	switch logo := v.(type) {
	case string:
		if strings.TrimSpace(logo) != "" {
			return []string{logo}
		}
	case map[string]any:
		for _, key := range []string{"url", "contentUrl"} {
			if s, ok := logo[key].(string); ok && strings.TrimSpace(s) != "" {
				return []string{s}
			}
		}
	case []any:
		var out []string
		for _, item := range logo {
			out = append(out, logoValue(item)...)
		}
		return out
	}
	return nil
}

func inlineSVGs(_ context.Context, page *Page) []string {
	var out []string
	page.Doc.Find("svg").Each(func(_ int, svg *goquery.Selection) {
		if !mentionsBrand(svg) && !mentionsBrand(svg.Parent()) {
			return
		}
		markup, err := goquery.OuterHtml(svg)
		if err != nil || markup == "" {
			return
		}
		if !strings.Contains(markup, "xmlns=") {
			markup = strings.Replace(markup, "<svg", `<svg xmlns="http://www.w3.org/2000/svg"`, 1)
		}
		out = append(out, "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString([]byte(markup)))
	})
	return out
}

func mentionsBrand(s *goquery.Selection) bool {
	if s.Length() == 0 {
		return false
	}
	for _, attr := range s.Nodes[0].Attr {
		v := strings.ToLower(attr.Val)
		if strings.Contains(v, "logo") || strings.Contains(v, "brand") {
			return true
		}
	}
	return false
}

func isTouchIconRel(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if token == "apple-touch-icon" || token == "apple-touch-icon-precomposed" {
			return true
		}
	}
	return false
}

func isIconRel(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if token == "icon" {
			return true
		}
	}
	return false
}

// iconLinks returns the first reachable link whose rel matches.
func iconLinks(prober brand.Prober, match func(rel string) bool) func(context.Context, *Page) []string {
	return func(ctx context.Context, page *Page) []string {
		var hrefs []string
		page.Doc.Find("link[rel][href]").Each(func(_ int, link *goquery.Selection) {
			if match(strings.ToLower(link.AttrOr("rel", ""))) {
				hrefs = append(hrefs, page.Resolve(link.AttrOr("href", "")))
			}
		})
		return firstReachable(ctx, prober, hrefs)
	}
}

func iconPaths(paths []string, prober brand.Prober) func(context.Context, *Page) []string {
	return func(ctx context.Context, page *Page) []string {
		urls := make([]string, 0, len(paths))
		for _, p := range paths {
			urls = append(urls, page.Target.BaseURL+p)
		}
		return firstReachable(ctx, prober, urls)
	}
}

func firstReachable(ctx context.Context, prober brand.Prober, urls []string) []string {
	if prober == nil {
		return nil
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if strings.HasPrefix(u, "data:") {
			return []string{u}
		}
		if ctx.Err() != nil {
			return nil
		}
		if prober.Exists(ctx, u) {
			return []string{u}
		}
	}
	return nil
}

func metaImage(names ...string) func(context.Context, *Page) []string {
	return func(_ context.Context, page *Page) []string {
		var out []string
		page.Doc.Find("meta[content]").Each(func(_ int, meta *goquery.Selection) {
			property := strings.ToLower(meta.AttrOr("property", ""))
			name := strings.ToLower(meta.AttrOr("name", ""))
			for _, want := range names {
				if property == want || name == want {
					out = append(out, page.Resolve(meta.AttrOr("content", "")))
					return
				}
			}
		})
		return out
	}
}

var (
	svgReference = regexp.MustCompile(`(?i)["'(=]\s*([^"'()\s<>]+\.svg(?:\?[^"'()\s<>]*)?)\s*["')]`)
	pngReference = regexp.MustCompile(`(?i)["'(=]\s*([^"'()\s<>]+\.png(?:\?[^"'()\s<>]*)?)\s*["')]`)
)

func referencePattern(re *regexp.Regexp) func(context.Context, *Page) []string {
	return func(_ context.Context, page *Page) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(page.HTML, 20) {
			out = append(out, page.Resolve(m[1]))
		}
		return out
	}
}

func faviconService(tmpl string) func(context.Context, *Page) []string {
	return func(_ context.Context, page *Page) []string {
		return []string{expandTemplate(tmpl, page.Domain())}
	}
}
