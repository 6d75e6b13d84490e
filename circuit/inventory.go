package circuit

// Finding is one value token found in the request text. Raw is the value
// text exactly as it appears in the input.
type Finding struct {
	Label  string  `json:"label"`
	Raw    string  `json:"raw"`
	Value  float64 `json:"value"`
	Offset int     `json:"offset"`
}

// InputLabel is the label given to the separately detected input voltage.
const InputLabel = "input"

// Requirements are the performance targets mentioned in the request.
type Requirements struct {
	Gain      string `json:"gain,omitempty"`
	Bandwidth string `json:"bandwidth,omitempty"`
	Power     string `json:"power,omitempty"`
}

// IsEmpty reports whether no requirement was found.
func (r Requirements) IsEmpty() bool {
	return r.Gain == "" && r.Bandwidth == "" && r.Power == ""
}

// ComponentInventory is a flat bag of values found in the request. It carries
// no connectivity.
type ComponentInventory struct {
	Resistors    []Finding    `json:"resistors"`
	Capacitors   []Finding    `json:"capacitors"`
	Voltages     []Finding    `json:"voltage_sources"`
	Currents     []Finding    `json:"current_sources"`
	Requirements Requirements `json:"performance_requirements"`
}

// NewInventory returns an inventory with non-nil, empty lists so that it
// serialises as [] rather than null.
func NewInventory() ComponentInventory {
	return ComponentInventory{
		Resistors:  []Finding{},
		Capacitors: []Finding{},
		Voltages:   []Finding{},
		Currents:   []Finding{},
	}
}

// IsEmpty reports whether nothing was found.
func (c ComponentInventory) IsEmpty() bool {
	return len(c.Resistors) == 0 && len(c.Capacitors) == 0 &&
		len(c.Voltages) == 0 && len(c.Currents) == 0 && c.Requirements.IsEmpty()
}

// ComponentCounts is the per-kind tally reported in the analysis summary.
type ComponentCounts struct {
	Resistors      int `json:"resistors"`
	Capacitors     int `json:"capacitors"`
	VoltageSources int `json:"voltage_sources"`
	CurrentSources int `json:"current_sources"`
}

// Counts tallies the inventory.
func (c ComponentInventory) Counts() ComponentCounts {
	return ComponentCounts{
		Resistors:      len(c.Resistors),
		Capacitors:     len(c.Capacitors),
		VoltageSources: len(c.Voltages),
		CurrentSources: len(c.Currents),
	}
}

// Summary is the condensed view of an Analysis.
type Summary struct {
	ConfigurationType Topology        `json:"configuration_type"`
	MOSFETType        Polarity        `json:"mosfet_type"`
	SpecifiedGain     string          `json:"specified_gain"`
	Components        ComponentCounts `json:"components_specified"`
	ParametersSource  string          `json:"parameters_source"`
}

// Analysis combines everything extracted from one request.
type Analysis struct {
	Identification Identification     `json:"circuit_configuration"`
	Device         DeviceParameters   `json:"mosfet_parameters"`
	Components     ComponentInventory `json:"circuit_components"`
	Summary        Summary            `json:"analysis_summary"`
}

// Summarize builds the summary from the other fields.
func Summarize(id Identification, dev DeviceParameters, inv ComponentInventory) Summary {
	gain := inv.Requirements.Gain
	if gain == "" {
		gain = "Not specified"
	}
	return Summary{
		ConfigurationType: id.Topology,
		MOSFETType:        dev.Polarity,
		SpecifiedGain:     gain,
		Components:        inv.Counts(),
		ParametersSource:  dev.Source(),
	}
}
