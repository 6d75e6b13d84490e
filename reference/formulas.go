// Package reference holds the textbook formula sheets and component lists
// for the three single-transistor MOSFET stages. The pipeline puts them in
// front of the model so that narrative stages start from the same equations
// the calculator uses.
package reference

import (
	"fmt"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
)

// Formula is a named expression.
type Formula struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// Section groups formulas by analysis, e.g. "dc_analysis".
type Section struct {
	Name     string    `json:"name"`
	Formulas []Formula `json:"formulas"`
}

// FormulaSheet is the full set of formulas for one topology.
type FormulaSheet struct {
	Topology circuit.Topology `json:"topology"`
	Sections []Section        `json:"sections"`
}

// Lookup returns the expression for section/name.
func (s FormulaSheet) Lookup(section, name string) (string, bool) {
	for _, sec := range s.Sections {
		if sec.Name != section {
			continue
		}
		for _, f := range sec.Formulas {
			if f.Name == name {
				return f.Expr, true
			}
		}
	}
	return "", false
}

// Text renders the sheet as an indented list for prompts.
func (s FormulaSheet) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Formulas for %s:\n", s.Topology.DisplayName())
	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "  %s:\n", sec.Name)
		for _, f := range sec.Formulas {
			fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.Expr)
		}
	}
	return b.String()
}

func dcAnalysis(gateVoltage string) Section {
	return Section{Name: "dc_analysis", Formulas: []Formula{
		{"saturation_condition", "V_DS > V_GS - V_th"},
		{"drain_current", "I_D = (1/2) * k_n * (V_GS - V_th)^2"},
		{"gate_voltage", gateVoltage},
		{"source_voltage", "V_S = I_D * R_S"},
		{"gate_source_voltage", "V_GS = V_G - V_S"},
		{"drain_voltage", "V_D = V_DD - I_D * R_D"},
	}}
}

var (
	acAnalysis = Section{Name: "ac_analysis", Formulas: []Formula{
		{"transconductance", "g_m = 2 * I_D / (V_GS - V_th)"},
		{"output_resistance", "r_o = 1 / (λ * I_D)"},
	}}
	power = Section{Name: "power", Formulas: []Formula{
		{"dissipation", "P_D = V_DD * I_D"},
		{"efficiency", "η = (P_AC Output / P_DC Input) * 100%"},
	}}
	millerFrequency = Section{Name: "frequency", Formulas: []Formula{
		{"low_cutoff", "f_L = 1 / (2π * R_eq * C)"},
		{"gain_bandwidth", "f_T = g_m / (2π * C_gs)"},
		{"miller_effect", "C_gd' = C_gd * (1 - A_v)"},
		{"high_cutoff", "f_H = 1 / (2π * R_out * (C_gs + C_gd'))"},
		{"bandwidth", "BW = f_H - f_L"},
	}}
)

const dividerGate = "V_G = V_DD * (R_2 / (R_1 + R_2))"

var formulaSheets = map[circuit.Topology]FormulaSheet{
	circuit.CommonSource: {
		Topology: circuit.CommonSource,
		Sections: []Section{
			dcAnalysis(dividerGate),
			acAnalysis,
			{Name: "voltage_gain", Formulas: []Formula{
				{"without_rs", "A_v = - g_m * (R_D || R_L)"},
				{"with_rs", "A_v = - (g_m * (R_D || R_L)) / (1 + g_m * R_S)"},
				{"with_bypassed_rs", "A_v = - g_m * (R_D || R_L)"},
			}},
			{Name: "impedance", Formulas: []Formula{
				{"input_without_rs", "Z_in ≈ ∞ (for ideal MOSFET)"},
				{"input_with_rs", "Z_in = (1 + g_m * R_S) * Z_gs"},
				{"output", "Z_out = R_D || r_o"},
			}},
			millerFrequency,
			power,
		},
	},
	circuit.CommonDrain: {
		Topology: circuit.CommonDrain,
		Sections: []Section{
			dcAnalysis(dividerGate),
			acAnalysis,
			{Name: "voltage_gain", Formulas: []Formula{
				{"without_rs", "A_v = g_m * (R_S || R_L) / (1 + g_m * (R_S || R_L))"},
				{"with_rs", "A_v = (R_S || R_L) / (R_S || R_L + 1/g_m)"},
				{"approximate", "A_v ≈ 1 (for high g_m)"},
			}},
			{Name: "impedance", Formulas: []Formula{
				{"input", "Z_in = (1 + g_m * R_S) * (R_g || Z_gs)"},
				{"output", "Z_out = (R_S || r_o) / (1 + g_m * (R_S || r_o))"},
			}},
			millerFrequency,
			power,
		},
	},
	circuit.CommonGate: {
		Topology: circuit.CommonGate,
		Sections: []Section{
			dcAnalysis("V_G = Fixed (often 0V for small-signal AC)"),
			acAnalysis,
			{Name: "voltage_gain", Formulas: []Formula{
				{"without_rs", "A_v = g_m * (R_D || R_L)"},
				{"with_rs", "A_v = (g_m * (R_D || R_L)) / (1 + g_m * R_S)"},
				{"approximate", "A_v ≈ g_m * (R_D || R_L) (if R_S is small)"},
			}},
			{Name: "impedance", Formulas: []Formula{
				{"input", "Z_in ≈ 1 / g_m"},
				{"output", "Z_out = (R_D || r_o)"},
			}},
			{Name: "frequency", Formulas: []Formula{
				{"low_cutoff", "f_L = 1 / (2π * R_eq * C)"},
				{"gain_bandwidth", "f_T = g_m / (2π * C_gs)"},
				{"high_cutoff", "f_H = 1 / (2π * R_out * (C_gs + C_gd))"},
				{"bandwidth", "BW = f_H - f_L"},
			}},
			power,
		},
	},
}

// Formulas returns the formula sheet for t. Unknown topologies report false.
func Formulas(t circuit.Topology) (FormulaSheet, bool) {
	s, ok := formulaSheets[circuit.ParseTopology(string(t))]
	return s, ok
}
