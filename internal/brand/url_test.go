package brand

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		full    string
		base    string
		domain  string
		wantErr bool
	}{
		{name: "bare domain", input: "apple.com", full: "https://apple.com", base: "https://apple.com", domain: "apple.com"},
		{name: "www prefix", input: "www.Example.com/about", full: "https://www.example.com/about", base: "https://www.example.com", domain: "example.com"},
		{name: "http kept", input: "http://example.org", full: "http://example.org", base: "http://example.org", domain: "example.org"},
		{name: "upper scheme", input: "HTTPS://Example.org/x", full: "https://example.org/x", base: "https://example.org", domain: "example.org"},
		{name: "port kept in base", input: "localhost:8080/path", full: "https://localhost:8080/path", base: "https://localhost:8080", domain: "localhost"},
		{name: "whitespace", input: "  stripe.com  ", full: "https://stripe.com", base: "https://stripe.com", domain: "stripe.com"},
		{name: "fragment dropped", input: "example.com/#top", full: "https://example.com/", base: "https://example.com", domain: "example.com"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "no host", input: "https://", wantErr: true},
		{name: "bad escape", input: "http://%zz", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidURL))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.full, got.FullURL)
			require.Equal(t, tt.base, got.BaseURL)
			require.Equal(t, tt.domain, got.Domain)
			require.Equal(t, tt.input, got.Input)
		})
	}
}

func TestResolveReference(t *testing.T) {
	t.Parallel()

	base := "https://example.com"
	require.Equal(t, "https://example.com/img/logo.png", ResolveReference(base, "/img/logo.png"))
	require.Equal(t, "https://example.com/logo.svg", ResolveReference(base, "logo.svg"))
	require.Equal(t, "https://cdn.example.net/a.png", ResolveReference(base, "//cdn.example.net/a.png"))
	require.Equal(t, "https://other.com/x.png", ResolveReference(base, "https://other.com/x.png"))
	require.Equal(t, "data:image/png;base64,AAAA", ResolveReference(base, "data:image/png;base64,AAAA"))
	require.Equal(t, "", ResolveReference(base, "  "))
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"apple.com", "www.google.com/search", "http://x.org", "https://a.b/c?d=e", "::"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		got, err := Normalize(input)
		if err != nil {
			return
		}
		lower := strings.ToLower(strings.TrimSpace(input))
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") &&
			!strings.HasPrefix(got.FullURL, "https://") {
			t.Fatalf("Normalize(%q).FullURL = %q; want https:// prefix", input, got.FullURL)
		}
		if got.Domain == "" {
			t.Fatalf("Normalize(%q) returned an empty domain", input)
		}
	})
}
