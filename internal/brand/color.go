package brand

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbColorPattern = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[0-9.]+%?\s*)?\)$`)
)

// ParseColor returns a #RGB or #RRGGBB token for value. rgb() and rgba() notations are converted to
// #RRGGBB; anything else is rejected.
func ParseColor(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if hexColorPattern.MatchString(v) {
		return v, true
	}
	m := rgbColorPattern.FindStringSubmatch(strings.ToLower(v))
	if m == nil {
		return "", false
	}
	channels := make([]int, 3)
	for i := range channels {
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > 255 {
			return "", false
		}
		channels[i] = n
	}
	return fmt.Sprintf("#%02X%02X%02X", channels[0], channels[1], channels[2]), true
}

// IsHexColor reports whether value is already a #RGB or #RRGGBB token.
func IsHexColor(value string) bool {
	return hexColorPattern.MatchString(value)
}
