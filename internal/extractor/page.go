package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// Page is a fetched document ready for signal extraction.
type Page struct {
	Target brand.Target
	// BaseURL is the origin relative references resolve against. It follows redirects.
	BaseURL string
	HTML    string
	Doc     *goquery.Document
}

// NewPage parses body into a Page. finalURL is the post-redirect URL; empty uses the target origin.
func NewPage(target brand.Target, finalURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base := target.BaseURL
	if u, err := url.Parse(finalURL); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		base = u.Scheme + "://" + strings.ToLower(u.Host)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved := brand.ResolveReference(base, strings.TrimSpace(href)); strings.HasPrefix(resolved, "http") {
			base = resolved
		}
	}
	return &Page{
		Target:  target,
		BaseURL: base,
		HTML:    string(body),
		Doc:     doc,
	}, nil
}

// Resolve absolutizes ref against the page base. Data URLs pass through unchanged.
func (p *Page) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	return brand.ResolveReference(p.BaseURL, ref)
}

// Domain returns the bare domain of the page target.
func (p *Page) Domain() string {
	return p.Target.Domain
}
