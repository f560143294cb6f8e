package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(DefaultIndustries(), "")
	require.NoError(t, err)

	tests := []struct {
		text string
		want string
	}{
		{"Open a savings account with our banking app", "Finance"},
		{"Book a flight and hotel for your next vacation", "Travel"},
		{"Cloud software for data teams", "Technology"},
		{"We make it easy", DefaultIndustry},
		{"Fintech for everyone", DefaultIndustry},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, c.ClassifyText(tc.text), tc.text)
	}
}

func TestClassifyPageIgnoresScripts(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(DefaultIndustries(), "")
	require.NoError(t, err)

	page := mustPage(t, "acme.test", `<html><head><title>Acme Studio</title></head>
		<body><script>var payment = "loan";</script><p>Independent film and music</p></body></html>`)
	require.Equal(t, "Media & Entertainment", c.Classify(page))
}

func TestNewClassifierRejectsEmptyRule(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier([]IndustryRule{{Industry: "Empty"}}, "")
	require.Error(t, err)
}
