package brand

import (
	"slices"
	"strings"
)

// PlaceholderPolicy describes the low-confidence values a known-brand entry is allowed to replace.
type PlaceholderPolicy struct {
	// Colors are sentinel colours written when no colour signal was found.
	Colors []string
	// Logos are exact placeholder logo values.
	Logos []string
	// LogoPrefixes match generic fallbacks such as a favicon-by-domain service URL.
	LogoPrefixes []string
}

// IsPlaceholderColor reports whether c is empty or one of the sentinel colours.
func (p PlaceholderPolicy) IsPlaceholderColor(c string) bool {
	if strings.TrimSpace(c) == "" {
		return true
	}
	for _, sentinel := range p.Colors {
		if strings.EqualFold(c, sentinel) {
			return true
		}
	}
	return false
}

// IsPlaceholderLogo reports whether logo is empty, a placeholder, or a generic fallback URL.
func (p PlaceholderPolicy) IsPlaceholderLogo(logo string) bool {
	if strings.TrimSpace(logo) == "" {
		return true
	}
	for _, placeholder := range p.Logos {
		if logo == placeholder {
			return true
		}
	}
	for _, prefix := range p.LogoPrefixes {
		if prefix != "" && strings.HasPrefix(logo, prefix) {
			return true
		}
	}
	return false
}

// Reconcile corrects a record against a known-brand entry. Placeholder colours and logos are replaced
// by the entry's real values; everything else is left alone. The returned patch holds exactly the
// fields that changed, so an empty patch means nothing needs to be written back. The corrected record
// never lists its own logo among the alternatives; that cleanup is not part of the patch.
func Reconcile(record Record, entry KnownBrand, found bool, policy PlaceholderPolicy) (Record, RecordPatch) {
	var patch RecordPatch
	if found && entry.BrandColor != "" && policy.IsPlaceholderColor(record.BrandColor) &&
		!strings.EqualFold(record.BrandColor, entry.BrandColor) {
		color := entry.BrandColor
		patch.BrandColor = &color
	}
	if found && entry.Logo != "" && policy.IsPlaceholderLogo(record.Logo) && record.Logo != entry.Logo {
		logo := entry.Logo
		patch.Logo = &logo
	}
	corrected := record
	if !patch.Empty() {
		corrected = patch.Apply(record)
	}
	if patch.Logo != nil {
		// The replaced placeholder is not offered as an alternative.
		corrected.AlternativeLogos = WithoutURL(WithoutURL(record.AlternativeLogos, *patch.Logo), record.Logo)
	} else if slices.Contains(corrected.AlternativeLogos, corrected.Logo) {
		corrected.AlternativeLogos = WithoutURL(corrected.AlternativeLogos, corrected.Logo)
	}
	return corrected, patch
}
