package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10kΩ", 10e3},
		{"10 k ohm", 10e3},
		{"4.7uF", 4.7e-6},
		{"4.7 µF", 4.7e-6},
		{"4.7 μF", 4.7e-6},
		{"200mV AC", 0.2},
		{"25V DC", 25},
		{"1M", 1e6},
		{"1meg", 1e6},
		{"1MEG", 1e6},
		{"5 fF", 5e-15},
		{"3f", 3e-15},
		{"1e-6", 1e-6},
		{".5 mA", 0.5e-3},
		{"2 GHz", 2e9},
		{"100 pF", 100e-12},
		{"12", 12},
		{"1 F", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseValue_NoNumber(t *testing.T) {
	_, err := ParseValue("kΩ")
	assert.Error(t, err)

	_, err = ParseValue("")
	assert.Error(t, err)
}

func TestSplitPrefix(t *testing.T) {
	scale, rest := SplitPrefix("uA/V²")
	assert.Equal(t, 1e-6, scale)
	assert.Equal(t, "A/V²", rest)

	scale, rest = SplitPrefix("V")
	assert.Equal(t, 1.0, scale)
	assert.Equal(t, "V", rest)

	scale, rest = SplitPrefix("fortnight")
	assert.Equal(t, 1.0, scale)
	assert.Equal(t, "fortnight", rest)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "4.700 uF", Format(4.7e-6, "F"))
	assert.Equal(t, "8.333 kΩ", Format(8333.3, "Ω"))
	assert.Equal(t, "-16.667 V", Format(-16.667, "V"))
	assert.Equal(t, "0.000 A", Format(0, "A"))
	assert.Equal(t, "2.000 MΩ", Format(2e6, "Ω"))
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, "1.000 kHz", FormatFrequency(1000))
	assert.Equal(t, "12.500 MHz", FormatFrequency(12.5e6))
	assert.Equal(t, "50.000 Hz", FormatFrequency(50))
}
