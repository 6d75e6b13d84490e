// Package units parses and formats engineering values with SI prefixes.
//
// Values follow the conventions people use when describing circuits in prose
// rather than strict SPICE syntax: "M" is mega (1M resistor), "m" is milli,
// "meg" is accepted in any case, and the micro sign may be written as u, µ or μ.
package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var numberPattern = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

var prefixScale = map[rune]float64{
	'T': 1e12,
	'G': 1e9,
	'M': 1e6,
	'k': 1e3,
	'K': 1e3,
	'm': 1e-3,
	'u': 1e-6,
	'µ': 1e-6, // micro sign U+00B5
	'μ': 1e-6, // greek mu U+03BC
	'n': 1e-9,
	'p': 1e-12,
	'f': 1e-15,
}

// ParseValue parses a number with an optional SI prefix and unit, e.g.
// "10kΩ", "4.7 uF", "200mV AC", "1e-6". The unit text after the prefix is
// ignored.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	num := numberPattern.FindString(s)
	if num == "" {
		return 0, fmt.Errorf("parse value %q: no number", s)
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}

	scale, _ := SplitPrefix(strings.TrimSpace(s[len(num):]))
	return v * scale, nil
}

// SplitPrefix splits unit text like "kΩ" or "uA/V²" into the SI scale of its
// prefix and the remaining unit. A lone letter that is also a unit symbol
// (for example "F" or "m" with nothing after it) is treated by the usual
// reading: "m" alone is milli, "F" alone is farad.
func SplitPrefix(unit string) (float64, string) {
	if unit == "" {
		return 1, ""
	}

	if len(unit) >= 3 && strings.EqualFold(unit[:3], "meg") {
		return 1e6, unit[3:]
	}

	r, size := utf8.DecodeRuneInString(unit)
	scale, ok := prefixScale[r]
	if !ok {
		return 1, unit
	}

	rest := unit[size:]
	// "f" with nothing after it is femto; "f" before a letter is only a prefix
	// when that letter is a unit symbol (fF, fA).
	if r == 'f' && rest != "" && !startsWithUnitSymbol(rest) {
		return 1, unit
	}
	return scale, rest
}

func startsWithUnitSymbol(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	switch r {
	case 'F', 'f', 'A', 'a', 'V', 'v', 'H', 'W', 'Ω', 'S', 's':
		return true
	}
	return false
}

// Format renders a value with the nearest engineering prefix, e.g.
// Format(4.7e-6, "F") = "4.700 uF".
func Format(value float64, unit string) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return fmt.Sprintf("%v %s", value, unit)
	}

	abs := math.Abs(value)
	switch {
	case abs == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case abs >= 1e9:
		return fmt.Sprintf("%.3f G%s", value/1e9, unit)
	case abs >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case abs >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case abs >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case abs >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case abs >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case abs >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case abs >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	case abs >= 1e-15:
		return fmt.Sprintf("%.3f f%s", value*1e15, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatFrequency renders a frequency in Hz, kHz or MHz.
func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e9:
		return fmt.Sprintf("%.3f GHz", freq/1e9)
	case freq >= 1e6:
		return fmt.Sprintf("%.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%.3f Hz", freq)
	}
}
