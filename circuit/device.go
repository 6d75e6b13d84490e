package circuit

// Provenance marks whether a value came from the user's text or a default.
type Provenance string

const (
	FromUser    Provenance = "user"
	FromDefault Provenance = "default"
)

// Polarity is the MOSFET channel type.
type Polarity string

const (
	NMOS Polarity = "NMOS"
	PMOS Polarity = "PMOS"
)

// Param is a single device parameter. Value is expressed in Unit, which is
// the canonical unit of the field rather than whatever the user typed.
type Param struct {
	Raw    string     `json:"raw"`
	Value  float64    `json:"value"`
	Unit   string     `json:"unit"`
	Source Provenance `json:"source"`
}

// UserSpecified reports whether the parameter was found in the input.
func (p Param) UserSpecified() bool {
	return p.Source == FromUser
}

// Canonical units of the device parameters.
const (
	UnitVolt             = "V"
	UnitPerVolt          = "V^-1"
	UnitTransconductance = "µA/V²"
	UnitOxideCap         = "fF/µm²"
	UnitMobility         = "cm²/V·s"
	UnitRatio            = ""
)

// DeviceParameters describes the MOSFET used by the design.
type DeviceParameters struct {
	Polarity                Polarity   `json:"type"`
	PolaritySource          Provenance `json:"type_source"`
	ThresholdVoltage        Param      `json:"threshold_voltage"`
	ChannelLengthModulation Param      `json:"channel_length_modulation"`
	Transconductance        Param      `json:"transconductance_parameter"`
	OxideCapacitance        Param      `json:"oxide_capacitance"`
	Mobility                Param      `json:"electron_mobility"`
	AspectRatio             Param      `json:"aspect_ratio"`
}

// DefaultDevice returns the generic NMOS used when the request names nothing.
func DefaultDevice() DeviceParameters {
	return DeviceParameters{
		Polarity:                NMOS,
		PolaritySource:          FromDefault,
		ThresholdVoltage:        Param{Raw: "0.7V", Value: 0.7, Unit: UnitVolt, Source: FromDefault},
		ChannelLengthModulation: Param{Raw: "0.02 V^(-1)", Value: 0.02, Unit: UnitPerVolt, Source: FromDefault},
		Transconductance:        Param{Raw: "100 µA/V²", Value: 100, Unit: UnitTransconductance, Source: FromDefault},
		OxideCapacitance:        Param{Raw: "5 fF/µm²", Value: 5, Unit: UnitOxideCap, Source: FromDefault},
		Mobility:                Param{Raw: "500 cm²/V·s", Value: 500, Unit: UnitMobility, Source: FromDefault},
		AspectRatio:             Param{Raw: "5", Value: 5, Unit: UnitRatio, Source: FromDefault},
	}
}

// Fields returns the six numeric parameters keyed by their JSON names.
func (d DeviceParameters) Fields() map[string]Param {
	return map[string]Param{
		"threshold_voltage":          d.ThresholdVoltage,
		"channel_length_modulation":  d.ChannelLengthModulation,
		"transconductance_parameter": d.Transconductance,
		"oxide_capacitance":          d.OxideCapacitance,
		"electron_mobility":          d.Mobility,
		"aspect_ratio":               d.AspectRatio,
	}
}

// UserSpecified lists the fields that were found in the input, polarity
// included, in a fixed order.
func (d DeviceParameters) UserSpecified() []string {
	var names []string
	if d.PolaritySource == FromUser {
		names = append(names, "type")
	}
	ordered := []struct {
		name string
		p    Param
	}{
		{"threshold_voltage", d.ThresholdVoltage},
		{"channel_length_modulation", d.ChannelLengthModulation},
		{"transconductance_parameter", d.Transconductance},
		{"oxide_capacitance", d.OxideCapacitance},
		{"electron_mobility", d.Mobility},
		{"aspect_ratio", d.AspectRatio},
	}
	for _, f := range ordered {
		if f.p.UserSpecified() {
			names = append(names, f.name)
		}
	}
	return names
}

// Source summarises the provenance of the whole record.
func (d DeviceParameters) Source() string {
	if len(d.UserSpecified()) == 0 {
		return "Default values used"
	}
	return "Some parameters specified by user, others set to default"
}

// TransconductanceSI returns k' in A/V².
func (d DeviceParameters) TransconductanceSI() float64 {
	return d.Transconductance.Value * 1e-6
}
