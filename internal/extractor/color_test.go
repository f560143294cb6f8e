package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

func TestColorExtractor(t *testing.T) {
	t.Parallel()

	colors, err := NewColorExtractor(DefaultCSSColorPatterns, "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		html  string
		entry *brand.KnownBrand
		want  string
	}{
		{
			name:  "known brand wins",
			html:  `<meta name="theme-color" content="#111111">`,
			entry: &brand.KnownBrand{Domain: "acme.test", BrandColor: "#FF9900"},
			want:  "#FF9900",
		},
		{
			name: "theme color",
			html: `<meta name="theme-color" content="#4285F4"><meta name="msapplication-TileColor" content="#222222">`,
			want: "#4285F4",
		},
		{
			name: "invalid theme color falls through to tile color",
			html: `<meta name="theme-color" content="teal"><meta name="msapplication-TileColor" content="#2b5797">`,
			want: "#2b5797",
		},
		{
			name: "rgb theme color converted",
			html: `<meta name="theme-color" content="rgb(229, 9, 20)">`,
			want: "#E50914",
		},
		{
			name: "css custom property",
			html: `<style>:root { --primary-color: #0a66c2; }</style>`,
			want: "#0a66c2",
		},
		{
			name: "navbar background shorthand",
			html: `<style>.navbar { padding: 0; background: #333 url(bg.png) no-repeat; }</style>`,
			want: "#333",
		},
		{
			name: "button background rgba",
			html: `<style>.btn-primary { background-color: rgba(0, 123, 255, 0.9) !important; }</style>`,
			want: "#007BFF",
		},
		{
			name: "nothing found",
			html: `<p>plain</p>`,
			want: DefaultColor,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			page := mustPage(t, "acme.test", tc.html)
			var (
				entry brand.KnownBrand
				found bool
			)
			if tc.entry != nil {
				entry, found = *tc.entry, true
			}
			require.Equal(t, tc.want, colors.Extract(page, entry, found))
		})
	}
}

func TestColorExtractorNilPage(t *testing.T) {
	t.Parallel()

	colors, err := NewColorExtractor(nil, "#000000")
	require.NoError(t, err)
	require.Equal(t, "#000000", colors.Extract(nil, brand.KnownBrand{}, false))
}
