package brand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#4285F4", "#4285F4", true},
		{"  #fff ", "#fff", true},
		{"rgb(255, 0, 16)", "#FF0010", true},
		{"RGBA(0,0,0,0.5)", "#000000", true},
		{"rgb(300, 0, 0)", "", false},
		{"#12345", "", false},
		{"teal", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
