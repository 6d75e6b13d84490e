package extract

import (
	"regexp"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/units"
)

// numPattern matches an unsigned decimal number.
const numPattern = `(?:\d+(?:\.\d+)?|\.\d+)`

// labelSep follows an inventory label: optional spaces and an optional
// "=", ":", "of" or "is".
const labelSep = `\s*(?:of|is|=|:)?\s*`

var (
	resistorPattern = regexp.MustCompile(`(?i)\b(resistors?|r(?:\d+|_?[a-z]+)?)` + labelSep +
		`(` + numPattern + `\s*(?:(?:meg|[kmg])\s*(?:ohms?\b|Ω)?|ohms?\b|Ω))`)
	capacitorPattern = regexp.MustCompile(`(?i)\b(capacitors?|c(?:\d+|_?[a-z]+)?)` + labelSep +
		`(` + numPattern + `\s*[pnuµμmf]?F)`)
	voltagePattern = regexp.MustCompile(`(?i)\b(voltage|supply|ac|dc|v(?:\d+|_?[a-z]+)?)` + labelSep +
		`(` + numPattern + `\s*[mµμuk]?V(?:\s*(?:AC|DC)\b)?)`)
	inputVoltagePattern = regexp.MustCompile(`(?i)\binput\s*(?:voltage|v)?` + labelSep +
		`(` + numPattern + `\s*[mµμu]?V(?:\s*(?:AC|DC)\b)?)`)
	currentPattern = regexp.MustCompile(`(?i)\b(current|bias|i(?:\d+|_?[a-z]+)?)` + labelSep +
		`(` + numPattern + `\s*[mµμun]?A\b)`)

	bandwidthPattern = regexp.MustCompile(`(?i)\bbandwidth` + labelSep + `(` + numPattern + `\s*[kmg]?Hz)`)
	powerPattern     = regexp.MustCompile(`(?i)\bpower(?:\s+consumption)?` + labelSep + `(` + numPattern + `\s*[mµμu]?W)\b`)
)

// nonInventoryLabels name device parameters whose values look like
// component values but describe the transistor.
var nonInventoryLabels = map[string]bool{
	"vth":  true,
	"v_th": true,
	"vt":   true,
	"v_t":  true,
	"cox":  true,
	"c_ox": true,
}

// ExtractComponents collects every resistor, capacitor, voltage and current
// value named in text, in order of appearance, along with any gain,
// bandwidth or power requirement. Raw values are copied verbatim from text.
func ExtractComponents(text string) circuit.ComponentInventory {
	inv := circuit.NewInventory()

	inv.Resistors = findAll(text, resistorPattern)
	inv.Capacitors = findAll(text, capacitorPattern)
	inv.Voltages = findAll(text, voltagePattern)
	inv.Currents = findAll(text, currentPattern)

	if idx := inputVoltagePattern.FindStringSubmatchIndex(text); idx != nil {
		raw := strings.TrimSpace(text[idx[2]:idx[3]])
		if !containsRaw(inv.Voltages, raw) {
			inv.Voltages = append(inv.Voltages, newFinding(circuit.InputLabel, raw, idx[2]))
		}
	}

	inv.Requirements = extractRequirements(text)
	return inv
}

func extractRequirements(text string) circuit.Requirements {
	var req circuit.Requirements
	if sub := gainPattern.FindStringSubmatch(text); sub != nil {
		req.Gain = sub[1]
	}
	if sub := bandwidthPattern.FindStringSubmatch(text); sub != nil {
		req.Bandwidth = strings.TrimSpace(sub[1])
	}
	if sub := powerPattern.FindStringSubmatch(text); sub != nil {
		req.Power = strings.TrimSpace(sub[1])
	}
	return req
}

func findAll(text string, re *regexp.Regexp) []circuit.Finding {
	found := []circuit.Finding{}
	for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
		label := text[idx[2]:idx[3]]
		if nonInventoryLabels[strings.ToLower(label)] {
			continue
		}
		// A value followed by "/" is a per-unit quantity such as fF/µm².
		if idx[5] < len(text) && text[idx[5]] == '/' {
			continue
		}
		raw := strings.TrimSpace(text[idx[4]:idx[5]])
		found = append(found, newFinding(label, raw, idx[4]))
	}
	return found
}

func newFinding(label, raw string, offset int) circuit.Finding {
	// raw always starts with a number, so parsing cannot fail.
	v, _ := units.ParseValue(raw)
	return circuit.Finding{
		Label:  label,
		Raw:    raw,
		Value:  v,
		Offset: offset,
	}
}

func containsRaw(findings []circuit.Finding, raw string) bool {
	for _, f := range findings {
		if f.Raw == raw {
			return true
		}
	}
	return false
}
