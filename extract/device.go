package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/units"
)

// sep is the optional separator between a label and its value.
const sep = `\s*(?:of|is|=|:)?\s*`

// symbol is an optional parenthesised symbol after a label, as in
// "Threshold Voltage (V_th) = 0.5V".
const symbol = `\s*(?:\([^)]*\))?`

var (
	pmosPattern = regexp.MustCompile(`\bpmos\b|\bp[\s\-]?type\b|\bp[\s\-]?channel\b`)
	nmosPattern = regexp.MustCompile(`\bnmos\b|\bn[\s\-]?type\b|\bn[\s\-]?channel\b`)

	thresholdPattern = regexp.MustCompile(
		`(?:\bthreshold(?:\s+voltage)?|\bv_?th|\bv_?t\b)` + symbol + sep + `(` + numPattern + `)\s*([mµμu]?v\b)?`)
	lambdaPattern = regexp.MustCompile(
		`(?:\bchannel[\s\-]+length[\s\-]+modulation(?:\s+coefficient)?|\blambda|λ)` + symbol + sep +
			`(` + numPattern + `)\s*((?:v\s*\^?\s*\(?-1\)?|v⁻¹|/v|1/v)?)`)
	transconductancePattern = regexp.MustCompile(
		`(?:\btransconductance(?:\s+parameter)?|[µμ]_?n\s*c_?ox|\bu_n\s*c_?ox|\bk_?n?'|\bkp\b)` + symbol + sep +
			`(` + numPattern + `)\s*([a-zµμ]*/v(?:²|\^?2)?)?`)
	oxidePattern = regexp.MustCompile(
		`(?:\boxide\s+capacitance|\bc_?ox)` + symbol + sep + `(` + numPattern + `)\s*([pfna]?f/[µμu]?m(?:²|\^?2)?)?`)
	mobilityPattern = regexp.MustCompile(
		`(?:\b(?:electron\s+)?mobility|[µμ]_?n|\bu_n)` + symbol + sep + `(` + numPattern + `)\s*(cm(?:²|\^?2)/v[·.\s]?s)?`)
	aspectPattern = regexp.MustCompile(`(?:\baspect\s+ratio|\bw/l)` + symbol + sep + `(` + numPattern + `)`)
)

// ExtractDevice returns the MOSFET parameters named in text, with every
// unnamed field at its default and marked as such. Matching is done on the
// lower-cased text; the first match of each field wins.
func ExtractDevice(text string) circuit.DeviceParameters {
	lower := strings.ToLower(text)
	dev := circuit.DefaultDevice()

	switch {
	case pmosPattern.MatchString(lower):
		dev.Polarity, dev.PolaritySource = circuit.PMOS, circuit.FromUser
	case nmosPattern.MatchString(lower):
		dev.Polarity, dev.PolaritySource = circuit.NMOS, circuit.FromUser
	}

	if p, ok := matchParam(lower, thresholdPattern, circuit.UnitVolt, prefixScaled(1)); ok {
		dev.ThresholdVoltage = p
	}
	if p, ok := matchParam(lower, lambdaPattern, circuit.UnitPerVolt, asIs); ok {
		dev.ChannelLengthModulation = p
	}
	if p, ok := matchParam(lower, transconductancePattern, circuit.UnitTransconductance, prefixScaled(1e-6)); ok {
		dev.Transconductance = p
	}
	if p, ok := matchOxide(lower); ok {
		dev.OxideCapacitance = p
	}
	if p, ok := matchParam(lower, mobilityPattern, circuit.UnitMobility, asIs); ok {
		dev.Mobility = p
	}
	if p, ok := matchParam(lower, aspectPattern, circuit.UnitRatio, asIs); ok {
		dev.AspectRatio = p
	}

	return dev
}

// converter maps a matched number and its unit text to the field's
// canonical unit.
type converter func(v float64, unit string) float64

func asIs(v float64, _ string) float64 { return v }

// prefixScaled converts a value whose unit carries an SI prefix into a
// canonical unit of the given scale. A bare number is taken to be in the
// canonical unit already.
func prefixScaled(canonical float64) converter {
	return func(v float64, unit string) float64 {
		if unit == "" {
			return v
		}
		scale, _ := units.SplitPrefix(unit)
		return v * scale / canonical
	}
}

func matchParam(lower string, re *regexp.Regexp, unit string, conv converter) (circuit.Param, bool) {
	idx := re.FindStringSubmatchIndex(lower)
	if idx == nil {
		return circuit.Param{}, false
	}
	return buildParam(lower, idx, unit, conv)
}

// matchOxide skips C_ox matches that are the second half of a µ_n·C_ox
// product, which names the transconductance parameter instead.
func matchOxide(lower string) (circuit.Param, bool) {
	for _, idx := range oxidePattern.FindAllStringSubmatchIndex(lower, -1) {
		before := strings.TrimRight(lower[:idx[0]], " ·*")
		if strings.HasSuffix(before, "µ_n") || strings.HasSuffix(before, "μ_n") ||
			strings.HasSuffix(before, "µn") || strings.HasSuffix(before, "μn") ||
			strings.HasSuffix(before, "u_n") {
			continue
		}
		return buildParam(lower, idx, circuit.UnitOxideCap, prefixScaled(1e-15))
	}
	return circuit.Param{}, false
}

func buildParam(lower string, idx []int, unit string, conv converter) (circuit.Param, bool) {
	numText := lower[idx[2]:idx[3]]
	v, err := strconv.ParseFloat(numText, 64)
	if err != nil {
		return circuit.Param{}, false
	}

	var unitText string
	rawEnd := idx[3]
	if len(idx) >= 6 && idx[4] >= 0 {
		unitText = strings.TrimSpace(lower[idx[4]:idx[5]])
		rawEnd = idx[5]
	}

	return circuit.Param{
		Raw:    strings.TrimSpace(lower[idx[2]:rawEnd]),
		Value:  conv(v, unitText),
		Unit:   unit,
		Source: circuit.FromUser,
	}, true
}
