package reference

import (
	"fmt"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
)

// Part is one named component of a reference circuit.
type Part struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
}

// ComponentSheet lists what a voltage-divider-biased stage is built from.
type ComponentSheet struct {
	Configuration  string `json:"configuration"`
	BiasType       string `json:"bias_type"`
	Description    string `json:"description"`
	Active         []Part `json:"active_components"`
	Resistors      []Part `json:"resistors"`
	Capacitors     []Part `json:"capacitors"`
	VoltageSources []Part `json:"voltage_sources"`
}

// Names returns every part name in sheet order.
func (s ComponentSheet) Names() []string {
	var names []string
	for _, group := range [][]Part{s.Active, s.Resistors, s.Capacitors, s.VoltageSources} {
		for _, p := range group {
			names = append(names, p.Name)
		}
	}
	return names
}

// Text renders the sheet for prompts.
func (s ComponentSheet) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n%s\n", s.Configuration, s.BiasType, s.Description)
	for _, g := range []struct {
		label string
		parts []Part
	}{
		{"active components", s.Active},
		{"resistors", s.Resistors},
		{"capacitors", s.Capacitors},
		{"voltage sources", s.VoltageSources},
	} {
		fmt.Fprintf(&b, "  %s:\n", g.label)
		for _, p := range g.parts {
			fmt.Fprintf(&b, "    %s: %s\n", p.Name, p.Description)
		}
	}
	return b.String()
}

const biasType = "Voltage Divider Bias"

// Components returns the reference parts list for t. withSourceResistor only
// affects Common Source, where it adds RS and its bypass capacitor CS.
// Unknown topologies fall back to a plain Common Source stage.
func Components(t circuit.Topology, withSourceResistor bool) ComponentSheet {
	switch circuit.ParseTopology(string(t)) {
	case circuit.CommonDrain:
		return commonDrainParts()
	case circuit.CommonGate:
		return commonGateParts()
	default:
		return commonSourceParts(withSourceResistor)
	}
}

func commonSourceParts(withSourceResistor bool) ComponentSheet {
	s := ComponentSheet{
		Configuration: "Common Source",
		BiasType:      biasType,
		Description:   "The Common Source amplifier is a fundamental MOSFET amplifier configuration that provides voltage gain. It is widely used in analog circuits for signal amplification.",
		Active: []Part{
			{"M1", "MOSFET", "Main amplifying MOSFET that provides voltage gain."},
		},
		Resistors: []Part{
			{Name: "RD", Description: "Drain resistor that determines gain and DC operating point."},
			{Name: "R1", Description: "Upper resistor in the voltage divider bias network, sets gate voltage."},
			{Name: "R2", Description: "Lower resistor in the voltage divider bias network, forms a stable bias point."},
		},
		Capacitors: []Part{
			{Name: "CIN", Description: "Input coupling capacitor to block DC and pass AC signals. Ensures DC isolation between stages."},
			{Name: "COUT", Description: "Output coupling capacitor to block DC while allowing amplified AC signals to pass. Prevents DC bias shifting in the next stage."},
		},
		VoltageSources: []Part{
			{Name: "VDD", Description: "Power supply voltage that provides the necessary drain current for operation."},
			{Name: "VIN", Description: "Input signal voltage source that provides the AC signal to be amplified."},
		},
	}
	if withSourceResistor {
		s.Resistors = append(s.Resistors, Part{Name: "RS", Description: "Source resistor for degeneration, improving biasing stability and linearity."})
		s.Capacitors = append(s.Capacitors, Part{Name: "CS", Description: "Source bypass capacitor that increases AC gain by bypassing RS at high frequencies."})
	}
	return s
}

func commonDrainParts() ComponentSheet {
	return ComponentSheet{
		Configuration: "Common Drain (Source Follower)",
		BiasType:      biasType,
		Description:   "The Common Drain (Source Follower) configuration provides voltage buffering with near-unity gain. It is mainly used for impedance matching and driving low-impedance loads.",
		Active: []Part{
			{"M1", "MOSFET", "Main MOSFET for source follower configuration, providing high input impedance and low output impedance."},
		},
		Resistors: []Part{
			{Name: "RS", Description: "Source resistor that sets bias current and serves as the output load."},
			{Name: "R1", Description: "Upper resistor in the voltage divider bias network, helps set gate voltage."},
			{Name: "R2", Description: "Lower resistor in the voltage divider bias network, helps set stable gate bias."},
		},
		Capacitors: []Part{
			{Name: "CIN", Description: "Input coupling capacitor that blocks DC while allowing AC signals to pass. Ensures proper signal transfer from the previous stage."},
			{Name: "COUT", Description: "Output coupling capacitor that blocks DC from appearing at the output, ensuring only the AC signal is transferred."},
			{Name: "CS", Description: "Source bypass capacitor to improve AC performance by reducing variations in source voltage, stabilizing signal gain."},
		},
		VoltageSources: []Part{
			{Name: "VDD", Description: "Power supply voltage that provides necessary biasing for MOSFET operation."},
			{Name: "VIN", Description: "Input signal voltage source that provides the AC signal for buffering."},
		},
	}
}

func commonGateParts() ComponentSheet {
	return ComponentSheet{
		Configuration: "Common Gate",
		BiasType:      biasType,
		Description:   "The Common Gate configuration provides voltage gain with low input impedance and high output impedance. It's useful for high-frequency applications and impedance matching.",
		Active: []Part{
			{"M1", "MOSFET", "Main MOSFET for common gate configuration, with signal applied to source and output taken from drain."},
		},
		Resistors: []Part{
			{Name: "RD", Description: "Drain resistor that determines gain and DC operating point."},
			{Name: "RS", Description: "Source resistor for input impedance and bias current setting."},
			{Name: "R1", Description: "Upper resistor in the voltage divider bias network for gate bias voltage."},
			{Name: "R2", Description: "Lower resistor in the voltage divider bias network for stable gate bias."},
		},
		Capacitors: []Part{
			{Name: "CIN", Description: "Input coupling capacitor to block DC and pass AC signals to the source terminal."},
			{Name: "COUT", Description: "Output coupling capacitor to block DC while allowing amplified AC signals to pass."},
			{Name: "CG", Description: "Gate bypass capacitor to hold gate voltage constant at AC frequencies."},
		},
		VoltageSources: []Part{
			{Name: "VDD", Description: "Power supply voltage that provides necessary biasing for MOSFET operation."},
			{Name: "VIN", Description: "Input signal voltage source that provides the AC signal to the source terminal."},
		},
	}
}
