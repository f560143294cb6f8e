package brand

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize turns a free-text website address into an absolute URL, its origin, and its bare domain.
// Input without an http:// or https:// prefix is assumed to be https.
func Normalize(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	full := trimmed
	lower := strings.ToLower(full)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		full = "https://" + full
	}

	u, err := url.Parse(full)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return Target{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	domain := strings.TrimPrefix(host, "www.")
	if domain == "" {
		return Target{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	return Target{
		Input:   raw,
		FullURL: u.String(),
		BaseURL: u.Scheme + "://" + u.Host,
		Domain:  domain,
	}, nil
}

// ResolveReference makes ref absolute against base. Data URLs pass through untouched and
// unparseable references are returned as-is.
func ResolveReference(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
