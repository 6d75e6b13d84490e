package smallsignal

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/c360studio/ampdesign/units"
)

// Undefined is how a metric without a finite value is rendered.
const Undefined = "undefined"

// Metric is a computed quantity with the formula that produced it. A metric
// whose computation hit a singularity is not Defined and carries no value.
type Metric struct {
	Value   float64
	Defined bool
	Unit    string
	Formula string
}

func newMetric(v float64, unit, formula string) Metric {
	m := Metric{Unit: unit, Formula: formula}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return m
	}
	if v == 0 {
		// drop the sign of -0
		v = 0
	}
	m.Value = v
	m.Defined = true
	return m
}

func undefinedMetric(unit, formula string) Metric {
	return Metric{Unit: unit, Formula: formula}
}

// String renders the value with an engineering prefix, or "undefined".
func (m Metric) String() string {
	if !m.Defined {
		return Undefined
	}
	switch m.Unit {
	case "":
		return fmt.Sprintf("%.3f", m.Value)
	case "V/V", "dB":
		return fmt.Sprintf("%.3f %s", m.Value, m.Unit)
	}
	return units.Format(m.Value, m.Unit)
}

type metricJSON struct {
	Value   any    `json:"value"`
	Unit    string `json:"unit,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// MarshalJSON writes undefined values as the string "undefined" so that no
// Inf or NaN ever reaches the encoder.
func (m Metric) MarshalJSON() ([]byte, error) {
	out := metricJSON{Unit: m.Unit, Formula: m.Formula}
	if m.Defined {
		out.Value = m.Value
	} else {
		out.Value = Undefined
	}
	return json.Marshal(out)
}
