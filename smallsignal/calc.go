package smallsignal

import (
	"math"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/units"
)

const (
	unitGain = "V/V"
	unitDB   = "dB"
	unitOhm  = "Ω"
	unitHz   = "Hz"
	unitF    = "F"

	dbFormula = "20 * |Av|"
)

// gainDB applies the literal magnitude scaling 20·|Av| used by the reports.
// It is not the decibel law; nodal.Point.MagnitudeDB carries 20·log10.
func gainDB(av Metric) Metric {
	if !av.Defined {
		return undefinedMetric(unitDB, dbFormula)
	}
	return newMetric(20*math.Abs(av.Value), unitDB, dbFormula)
}

func cutoff(r, c float64) float64 {
	return 1 / (2 * math.Pi * r * c)
}

// AnalyzeCommonSource evaluates a common-source stage:
// Av = -gm·(Rd∥ro), Zin = Rg, Zout = Rd∥ro, fL = 1/(2π·Rg·(Cgs + Cgd·(1+|Av|))).
func AnalyzeCommonSource(d Design) Analysis {
	c, tr := d.Components, d.Transistor
	ro := tr.OutputResistance()
	rout := Parallel(c.DrainResistor, ro)

	av := newMetric(-tr.Gm*rout, unitGain, "Av = -gm * (Rd || ro)")

	m := PerformanceMetrics{
		VoltageGain:     av,
		VoltageGainDB:   gainDB(av),
		InputImpedance:  newMetric(c.GateResistor, unitOhm, "Zin = Rg"),
		OutputImpedance: newMetric(rout, unitOhm, "Zout = Rd || ro"),
	}

	const cinFormula = "Cin = Cgs + Cgd*(1+|Av|)"
	const fFormula = "fL = 1 / (2*pi * Rg * Cin)"
	if av.Defined {
		cin := tr.Cgs + tr.Cgd*(1+math.Abs(av.Value))
		m.InputCapacitance = newMetric(cin, unitF, cinFormula)
		m.LowCutoff = newMetric(cutoff(c.GateResistor, cin), unitHz, fFormula)
	} else {
		m.InputCapacitance = undefinedMetric(unitF, cinFormula)
		m.LowCutoff = undefinedMetric(unitHz, fFormula)
	}

	return Analysis{
		Topology: circuit.CommonSource,
		Elements: []Element{
			{"gm*vgs", "drain", "source", transconductanceText(tr.Gm)},
			{"ro", "drain", "source", resistanceText(ro)},
			{"Rd", "drain", "vdd", resistanceText(c.DrainResistor)},
			{"Rg", "gate", "gnd", resistanceText(c.GateResistor)},
			{"Cgs", "gate", "source", units.Format(tr.Cgs, unitF)},
			{"Cgd", "gate", "drain", units.Format(tr.Cgd, unitF)},
		},
		Metrics: m,
	}
}

// AnalyzeCommonDrain evaluates a source follower with x = gm·(Rs∥ro):
// Av = x/(1+x), Zin = Rg, Zout = (Rs∥ro)/(1+x), fL = 1/(2π·Rg·(Cgs + Cgd·(1-Av))).
func AnalyzeCommonDrain(d Design) Analysis {
	c, tr := d.Components, d.Transistor
	ro := tr.OutputResistance()
	rsro := Parallel(c.SourceResistor, ro)
	x := tr.Gm * rsro

	av := newMetric(x/(1+x), unitGain, "Av = gm*(Rs || ro) / (1 + gm*(Rs || ro))")

	m := PerformanceMetrics{
		VoltageGain:     av,
		VoltageGainDB:   gainDB(av),
		InputImpedance:  newMetric(c.GateResistor, unitOhm, "Zin = Rg"),
		OutputImpedance: newMetric(rsro/(1+x), unitOhm, "Zout = (Rs || ro) / (1 + gm*(Rs || ro))"),
	}

	const ceffFormula = "Ceff = Cgs + Cgd*(1-Av)"
	const fFormula = "fL = 1 / (2*pi * Rg * Ceff)"
	if av.Defined {
		ceff := tr.Cgs + tr.Cgd*(1-av.Value)
		m.InputCapacitance = newMetric(ceff, unitF, ceffFormula)
		m.LowCutoff = newMetric(cutoff(c.GateResistor, ceff), unitHz, fFormula)
	} else {
		m.InputCapacitance = undefinedMetric(unitF, ceffFormula)
		m.LowCutoff = undefinedMetric(unitHz, fFormula)
	}

	return Analysis{
		Topology: circuit.CommonDrain,
		Elements: []Element{
			{"gm*vgs", "source", "drain", transconductanceText(tr.Gm)},
			{"ro", "drain", "source", resistanceText(ro)},
			{"Rs", "source", "gnd", resistanceText(c.SourceResistor)},
			{"Rg", "gate", "gnd", resistanceText(c.GateResistor)},
			{"Cgs", "gate", "source", units.Format(tr.Cgs, unitF)},
			{"Cgd", "gate", "drain", units.Format(tr.Cgd, unitF)},
		},
		Metrics: m,
	}
}

// AnalyzeCommonGate evaluates a common-gate stage:
// Av = gm·(Rd∥ro), Zin = 1/gm, Zout = Rd∥ro, fL = 1/(2π·Rs·Cgs).
func AnalyzeCommonGate(d Design) Analysis {
	c, tr := d.Components, d.Transistor
	ro := tr.OutputResistance()
	rout := Parallel(c.DrainResistor, ro)

	av := newMetric(tr.Gm*rout, unitGain, "Av = gm * (Rd || ro)")

	m := PerformanceMetrics{
		VoltageGain:      av,
		VoltageGainDB:    gainDB(av),
		InputImpedance:   newMetric(1/tr.Gm, unitOhm, "Zin = 1/gm"),
		OutputImpedance:  newMetric(rout, unitOhm, "Zout = Rd || ro"),
		InputCapacitance: newMetric(tr.Cgs, unitF, "Cs = Cgs"),
		LowCutoff:        newMetric(cutoff(c.SourceResistor, tr.Cgs), unitHz, "fL = 1 / (2*pi * Rs * Cgs)"),
	}

	return Analysis{
		Topology: circuit.CommonGate,
		Elements: []Element{
			{"gm*vgs", "drain", "source", transconductanceText(tr.Gm)},
			{"ro", "drain", "source", resistanceText(ro)},
			{"Rd", "drain", "vdd", resistanceText(c.DrainResistor)},
			{"Rs", "source", "gnd", resistanceText(c.SourceResistor)},
			{"Cgs", "gate", "source", units.Format(tr.Cgs, unitF)},
			{"Cgd", "gate", "drain", units.Format(tr.Cgd, unitF)},
		},
		Metrics: m,
	}
}

func resistanceText(r float64) string {
	if math.IsInf(r, 1) {
		return "∞ Ω"
	}
	return units.Format(r, unitOhm)
}

func transconductanceText(gm float64) string {
	return units.Format(gm, "S") + " * vgs"
}
