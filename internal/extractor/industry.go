package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// IndustryRule maps a set of keywords to an industry label.
type IndustryRule struct {
	Industry string   `mapstructure:"industry"`
	Keywords []string `mapstructure:"keywords"`
}

// DefaultIndustries returns the keyword table in match order.
func DefaultIndustries() []IndustryRule {
	return []IndustryRule{
		{"Finance", []string{"finance", "banking", "investment", "insurance", "capital", "wealth", "money", "payment", "credit", "loan"}},
		{"Healthcare", []string{"health", "healthcare", "medical", "wellness", "fitness", "doctor", "hospital", "clinic", "patient", "pharmacy"}},
		{"Retail", []string{"retail", "shop", "store", "purchase", "ecommerce", "e-commerce", "shopping"}},
		{"Travel", []string{"travel", "hotel", "booking", "flight", "vacation", "tourism", "trip", "holiday", "destination"}},
		{"Food & Dining", []string{"food", "restaurant", "dining", "cuisine", "meal", "recipe", "cook", "chef"}},
		{"Education", []string{"education", "learning", "course", "university", "school", "college", "academy", "student", "teach"}},
		{"Media & Entertainment", []string{"media", "news", "entertainment", "film", "movie", "music", "game", "stream", "video", "podcast"}},
		{"Real Estate", []string{"real estate", "property", "apartment", "housing", "rent", "mortgage"}},
		{"Marketing & Creative", []string{"marketing", "advertising", "agency", "campaign", "creative", "studio"}},
		{"Legal Services", []string{"legal", "law", "attorney", "lawyer", "counsel", "litigation", "court"}},
		{"Business Services", []string{"consulting", "business service", "professional service", "strategy"}},
		{"Technology", []string{"technology", "software", "app", "digital", "tech", "data", "cloud", "computer", "internet"}},
		{"Manufacturing", []string{"manufacturing", "industrial", "factory", "production", "engineering", "machine"}},
		{"Nonprofit", []string{"nonprofit", "charity", "foundation", "community", "donate", "volunteer"}},
		{"Government", []string{"government", "official", "administration", "policy"}},
	}
}

type industryMatcher struct {
	industry string
	re       *regexp.Regexp
}

// Classifier guesses an industry from page text by keyword match.
type Classifier struct {
	matchers []industryMatcher
	fallback string
}

// NewClassifier compiles rules into whole-word, case-insensitive matchers.
func NewClassifier(rules []IndustryRule, fallback string) (*Classifier, error) {
	if fallback == "" {
		fallback = DefaultIndustry
	}
	c := &Classifier{fallback: fallback}
	for _, rule := range rules {
		if rule.Industry == "" || len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("industry rule needs a name and keywords")
		}
		quoted := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(kw)))
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile industry %q: %w", rule.Industry, err)
		}
		c.matchers = append(c.matchers, industryMatcher{industry: rule.Industry, re: re})
	}
	return c, nil
}

// Classify returns the first industry whose keywords appear in the page title,
// description, or body text.
func (c *Classifier) Classify(page *Page) string {
	if page == nil {
		return c.fallback
	}
	return c.ClassifyText(pageText(page))
}

// ClassifyText classifies free text.
func (c *Classifier) ClassifyText(text string) string {
	for _, m := range c.matchers {
		if m.re.MatchString(text) {
			return m.industry
		}
	}
	return c.fallback
}

// Fallback returns the label used when nothing matches.
func (c *Classifier) Fallback() string {
	return c.fallback
}

func pageText(page *Page) string {
	var b strings.Builder
	b.WriteString(page.Doc.Find("title").First().Text())
	b.WriteByte(' ')
	b.WriteString(page.Doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	b.WriteByte(' ')
	body := page.Doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	b.WriteString(strings.Join(strings.Fields(body.Text()), " "))
	return b.String()
}
