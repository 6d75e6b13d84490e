package smallsignal

import (
	"fmt"
	"math"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/units"
)

// Bias holds the operating-point values used when the request does not name
// them.
type Bias struct {
	DrainCurrent float64 `yaml:"drain_current" json:"drain_current"`
	Cgs          float64 `yaml:"cgs" json:"cgs"`
	Cgd          float64 `yaml:"cgd" json:"cgd"`
}

// DefaultBias is 1 mA of drain current with Cgs = 5 pF and Cgd = 1 pF.
func DefaultBias() Bias {
	return Bias{
		DrainCurrent: 1e-3,
		Cgs:          5e-12,
		Cgd:          1e-12,
	}
}

// DeriveTransistor computes the saturation-region small-signal values of dev
// at drain current id: gm = √(2·k'·(W/L)·I_D) and r_o = 1/(λ·I_D). A
// non-positive current gives gm = 0; a zero λ or current leaves r_o infinite.
func DeriveTransistor(dev circuit.DeviceParameters, id, cgs, cgd float64) TransistorParameters {
	tp := TransistorParameters{Cgs: cgs, Cgd: cgd}
	if id <= 0 {
		return tp
	}

	kp := dev.TransconductanceSI()
	wl := dev.AspectRatio.Value
	if kp > 0 && wl > 0 {
		tp.Gm = math.Sqrt(2 * kp * wl * id)
	}

	lambda := dev.ChannelLengthModulation.Value
	if lambda > 0 {
		ro := 1 / (lambda * id)
		tp.Ro = &ro
	}
	return tp
}

// DesignFromAnalysis builds a calculator input from an extraction result.
// Resistors and capacitors are assigned by label, the first extracted current
// is taken as the drain current, and every value taken from bias instead of
// the request is listed in Design.Assumptions.
func DesignFromAnalysis(a circuit.Analysis, bias Bias) Design {
	d := Design{Topology: a.Identification.Topology}
	if !d.Topology.IsValid() {
		d.Topology = circuit.CommonSource
		d.Assumptions = append(d.Assumptions, "topology not identified, assuming CommonSource")
	}

	for _, r := range a.Components.Resistors {
		switch normalizeLabel(r.Label) {
		case "rd", "rdrain":
			setOnce(&d.Components.DrainResistor, r.Value)
		case "rg", "rgate":
			setOnce(&d.Components.GateResistor, r.Value)
		case "rs", "rsource":
			setOnce(&d.Components.SourceResistor, r.Value)
		case "rl", "rload":
			setOnce(&d.Components.LoadResistor, r.Value)
		}
	}

	cgs, cgd := bias.Cgs, bias.Cgd
	var haveCgs, haveCgd bool
	for _, c := range a.Components.Capacitors {
		switch normalizeLabel(c.Label) {
		case "cin", "c1", "cc", "cc1":
			setOnce(&d.Components.InputCapacitor, c.Value)
		case "cgs":
			if !haveCgs {
				cgs, haveCgs = c.Value, true
			}
		case "cgd":
			if !haveCgd {
				cgd, haveCgd = c.Value, true
			}
		}
	}
	if !haveCgs {
		d.Assumptions = append(d.Assumptions, "Cgs = "+units.Format(cgs, "F")+" assumed")
	}
	if !haveCgd {
		d.Assumptions = append(d.Assumptions, "Cgd = "+units.Format(cgd, "F")+" assumed")
	}

	id := bias.DrainCurrent
	if len(a.Components.Currents) > 0 {
		id = a.Components.Currents[0].Value
	} else {
		d.Assumptions = append(d.Assumptions, fmt.Sprintf("drain current %s assumed", units.Format(id, "A")))
	}

	d.Transistor = DeriveTransistor(a.Device, id, cgs, cgd)

	for _, missing := range requiredResistors(d) {
		d.Assumptions = append(d.Assumptions, missing+" not specified")
	}
	return d
}

func requiredResistors(d Design) []string {
	var missing []string
	c := d.Components
	switch d.Topology {
	case circuit.CommonSource:
		if c.DrainResistor == 0 {
			missing = append(missing, "drain resistor")
		}
		if c.GateResistor == 0 {
			missing = append(missing, "gate resistor")
		}
	case circuit.CommonDrain:
		if c.SourceResistor == 0 {
			missing = append(missing, "source resistor")
		}
		if c.GateResistor == 0 {
			missing = append(missing, "gate resistor")
		}
	case circuit.CommonGate:
		if c.DrainResistor == 0 {
			missing = append(missing, "drain resistor")
		}
		if c.SourceResistor == 0 {
			missing = append(missing, "source resistor")
		}
	}
	return missing
}

func normalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), "_", "")
}

func setOnce(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}
