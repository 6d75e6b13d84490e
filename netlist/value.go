package netlist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var valuePattern = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)([a-zA-ZµμΩ]*)$`)

// ParseValue parses a SPICE number such as "5k", "1Meg", "100u" or "10uF".
// SPICE scale factors are case-insensitive, so "M" is milli and "MEG" is
// mega. Letters after the scale factor are ignored.
func ParseValue(s string) (float64, error) {
	m := valuePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}

	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return num * scaleFactor(m[2]), nil
}

func scaleFactor(suffix string) float64 {
	lower := strings.ToLower(suffix)
	switch {
	case lower == "":
		return 1
	case strings.HasPrefix(lower, "meg"):
		return 1e6
	case strings.HasPrefix(lower, "mil"):
		return 25.4e-6
	}

	switch []rune(lower)[0] {
	case 't':
		return 1e12
	case 'g':
		return 1e9
	case 'k':
		return 1e3
	case 'm':
		return 1e-3
	case 'u', 'µ', 'μ':
		return 1e-6
	case 'n':
		return 1e-9
	case 'p':
		return 1e-12
	case 'f':
		return 1e-15
	}
	return 1
}
