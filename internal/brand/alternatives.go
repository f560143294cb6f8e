package brand

// PrependAlternative puts url at the front of alternatives, dropping any later copy, and caps the list
// at limit entries. An empty url leaves the list unchanged; limit <= 0 means no cap.
func PrependAlternative(url string, alternatives []string, limit int) []string {
	if url == "" {
		return alternatives
	}
	out := append([]string{url}, WithoutURL(alternatives, url)...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WithoutURL returns a copy of urls with every occurrence of drop removed.
func WithoutURL(urls []string, drop string) []string {
	out := urls[:0:0]
	for _, u := range urls {
		if u != drop {
			out = append(out, u)
		}
	}
	return out
}

// SwapPrimaryLogo makes logo the primary of a result whose current primary is previous. The new logo
// leaves the alternatives and the displaced primary becomes the first alternative, so the list never
// holds the primary.
func SwapPrimaryLogo(previous, logo string, alternatives []string, limit int) []string {
	alternatives = WithoutURL(alternatives, logo)
	if previous == logo {
		return alternatives
	}
	return PrependAlternative(previous, alternatives, limit)
}
