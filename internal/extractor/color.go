package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// ColorExtractor picks a brand colour from a page. The first signal that yields a valid colour wins.
type ColorExtractor struct {
	patterns     []*regexp.Regexp
	defaultColor string
}

// NewColorExtractor compiles the CSS colour patterns.
func NewColorExtractor(patterns []string, defaultColor string) (*ColorExtractor, error) {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	if defaultColor == "" {
		defaultColor = DefaultColor
	}
	return &ColorExtractor{patterns: compiled, defaultColor: defaultColor}, nil
}

// Extract returns the known-brand colour, then theme-color, then msapplication-TileColor, then the first
// CSS pattern match, then the sentinel default.
func (c *ColorExtractor) Extract(page *Page, entry brand.KnownBrand, found bool) string {
	if found && entry.BrandColor != "" {
		return entry.BrandColor
	}
	if page == nil {
		return c.defaultColor
	}
	if color, ok := metaColor(page, "theme-color"); ok {
		return color
	}
	if color, ok := metaColor(page, "msapplication-tilecolor"); ok {
		return color
	}
	for _, re := range c.patterns {
		for _, m := range re.FindAllStringSubmatch(page.HTML, 5) {
			if color, ok := cssColor(m[1]); ok {
				return color
			}
		}
	}
	return c.defaultColor
}

// Default returns the sentinel colour.
func (c *ColorExtractor) Default() string {
	return c.defaultColor
}

func metaColor(page *Page, name string) (string, bool) {
	var (
		color string
		ok    bool
	)
	page.Doc.Find("meta[name][content]").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if !strings.EqualFold(meta.AttrOr("name", ""), name) {
			return true
		}
		color, ok = brand.ParseColor(meta.AttrOr("content", ""))
		return !ok
	})
	return color, ok
}

// cssColor accepts a whole declaration value or its first token, so that
// "background: #fff url(x.png)" still yields #fff.
func cssColor(value string) (string, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
	if color, ok := brand.ParseColor(value); ok {
		return color, true
	}
	if i := strings.Index(value, ")"); strings.HasPrefix(strings.ToLower(value), "rgb") && i > 0 {
		return brand.ParseColor(value[:i+1])
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", false
	}
	return brand.ParseColor(fields[0])
}
