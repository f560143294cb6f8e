package brand

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"
)

// KnownBrand is a pre-vetted logo and colour for a well-known domain.
type KnownBrand struct {
	Domain     string `yaml:"domain" mapstructure:"domain"`
	Logo       string `yaml:"logo" mapstructure:"logo"`
	BrandColor string `yaml:"brand_color" mapstructure:"brand_color"`
	Industry   string `yaml:"industry" mapstructure:"industry"`
}

// Complete reports whether the entry carries both a logo and a colour.
func (k KnownBrand) Complete() bool {
	return k.Logo != "" && k.BrandColor != ""
}

// KnownBrands is an immutable domain -> KnownBrand table.
type KnownBrands struct {
	entries map[string]KnownBrand
}

// NewKnownBrands builds a table from entries. Keys are lowercased and stripped of "www."; later
// entries win over earlier ones with the same domain.
func NewKnownBrands(entries []KnownBrand) *KnownBrands {
	table := &KnownBrands{entries: make(map[string]KnownBrand, len(entries))}
	for _, e := range entries {
		key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e.Domain)), "www.")
		if key == "" {
			continue
		}
		e.Domain = key
		table.entries[key] = e
	}
	return table
}

// Lookup returns the entry for domain. The exact key is tried first, then the registrable domain
// (so "support.apple.com" resolves to "apple.com").
func (k *KnownBrands) Lookup(domain string) (KnownBrand, bool) {
	if k == nil || domain == "" {
		return KnownBrand{}, false
	}
	if e, ok := k.entries[domain]; ok {
		return e, true
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil || registrable == domain {
		return KnownBrand{}, false
	}
	e, ok := k.entries[registrable]
	return e, ok
}

// Len returns the number of entries.
func (k *KnownBrands) Len() int {
	if k == nil {
		return 0
	}
	return len(k.entries)
}

// DefaultKnownBrands returns the canonical override table.
func DefaultKnownBrands() []KnownBrand {
	return []KnownBrand{
		{
			Domain:     "google.com",
			Logo:       "https://www.google.com/images/branding/googlelogo/1x/googlelogo_color_272x92dp.png",
			BrandColor: "#4285F4",
			Industry:   "Technology",
		},
		{
			Domain: "apple.com",
			Logo: "https://www.apple.com/ac/globalnav/7/en_US/images/be15095f-5a20-57d0-ad14-cf4c638e223a/" +
				"globalnav_apple_image__b5er5ngrzxqq_large.svg",
			BrandColor: "#000000",
			Industry:   "Consumer Electronics",
		},
		{
			Domain:     "amazon.com",
			Logo:       "https://upload.wikimedia.org/wikipedia/commons/thumb/a/a9/Amazon_logo.svg/1024px-Amazon_logo.svg.png",
			BrandColor: "#FF9900",
			Industry:   "E-commerce",
		},
		{
			Domain:     "microsoft.com",
			Logo:       "https://img-prod-cms-rt-microsoft-com.akamaized.net/cms/api/am/imageFileData/RE1Mu3b?ver=5c31",
			BrandColor: "#00A4EF",
			Industry:   "Technology",
		},
		{
			Domain:     "netflix.com",
			Logo:       "https://assets.nflxext.com/ffe/siteui/common/icons/nfLogo/netflix-logo-set-bw.png",
			BrandColor: "#E50914",
			Industry:   "Entertainment",
		},
	}
}

type knownBrandsFile struct {
	Brands []KnownBrand `yaml:"brands"`
}

// LoadKnownBrands reads a YAML file of the form `brands: [{domain, logo, brand_color, industry}]`.
func LoadKnownBrands(path string) ([]KnownBrand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read known brands: %w", err)
	}
	var file knownBrandsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse known brands: %w", err)
	}
	for i, b := range file.Brands {
		if strings.TrimSpace(b.Domain) == "" {
			return nil, fmt.Errorf("known brand %d: domain is required", i)
		}
		if b.BrandColor != "" && !IsHexColor(b.BrandColor) {
			return nil, fmt.Errorf("known brand %q: invalid brand_color %q", b.Domain, b.BrandColor)
		}
	}
	return file.Brands, nil
}

// MergeKnownBrands appends overrides after base so that overrides win in NewKnownBrands.
func MergeKnownBrands(base []KnownBrand, overrides ...[]KnownBrand) []KnownBrand {
	out := append([]KnownBrand(nil), base...)
	for _, o := range overrides {
		out = append(out, o...)
	}
	return out
}
