// Package validation compares achieved performance with the requested
// targets and decides which stage should revise the design when a target is
// missed.
package validation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/smallsignal"
	"github.com/c360studio/ampdesign/units"
)

// Parameter names shared by requirements and results.
const (
	VoltageGain      = "voltage_gain"
	Bandwidth        = "bandwidth"
	PhaseMargin      = "phase_margin"
	Noise            = "noise"
	PowerConsumption = "power_consumption"
	Distortion       = "distortion"
	InputImpedance   = "input_impedance"
	OutputImpedance  = "output_impedance"
)

// Stages a failed validation can send the run back to.
const (
	RedirectComponentSelection = "component-selection"
	RedirectFormulas           = "formulas"
	RedirectSimulation         = "simulation"
)

// Direction says which way a parameter improves.
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
	Informational  Direction = "informational"
)

// DirectionOf returns how parameter p is judged. Parameters without a
// direction are reported but never fail.
func DirectionOf(p string) Direction {
	switch p {
	case VoltageGain, Bandwidth, PhaseMargin:
		return HigherIsBetter
	case Noise, PowerConsumption, Distortion:
		return LowerIsBetter
	default:
		return Informational
	}
}

// Check is the outcome for one parameter.
type Check struct {
	Parameter string    `json:"parameter"`
	Required  float64   `json:"required"`
	Achieved  float64   `json:"achieved"`
	Direction Direction `json:"direction"`
	Pass      bool      `json:"pass"`
}

// Report is the validation verdict.
type Report struct {
	MatchesRequirements bool     `json:"matches_requirements"`
	FailedParameters    []string `json:"failed_parameters"`
	RedirectTo          string   `json:"redirect_to,omitempty"`
	Checks              []Check  `json:"checks"`
}

// Validate compares every parameter present in both maps. Non-finite values
// are skipped. Checks are ordered by parameter name.
func Validate(required, achieved map[string]float64) Report {
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	r := Report{
		MatchesRequirements: true,
		FailedParameters:    []string{},
		Checks:              []Check{},
	}
	for _, name := range names {
		req := required[name]
		got, ok := achieved[name]
		if !ok || !finite(req) || !finite(got) {
			continue
		}

		c := Check{Parameter: name, Required: req, Achieved: got, Direction: DirectionOf(name), Pass: true}
		switch c.Direction {
		case HigherIsBetter:
			c.Pass = got >= req
		case LowerIsBetter:
			c.Pass = got <= req
		}
		if !c.Pass {
			r.MatchesRequirements = false
			r.FailedParameters = append(r.FailedParameters, name)
		}
		r.Checks = append(r.Checks, c)
	}
	r.RedirectTo = RedirectTo(r.FailedParameters)
	return r
}

// RedirectTo picks the stage that should revise the design. Gain and
// impedance problems go back to component selection, bandwidth and phase
// margin to the formulas, and anything else to simulation. It returns ""
// when nothing failed.
func RedirectTo(failed []string) string {
	if len(failed) == 0 {
		return ""
	}
	has := func(names ...string) bool {
		for _, f := range failed {
			for _, n := range names {
				if f == n {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has(InputImpedance, OutputImpedance, VoltageGain):
		return RedirectComponentSelection
	case has(Bandwidth, PhaseMargin):
		return RedirectFormulas
	default:
		return RedirectSimulation
	}
}

// Required converts the targets found in a request into numbers. Values
// that cannot be parsed are left out and reported in the returned error.
func Required(req circuit.Requirements) (map[string]float64, error) {
	out := make(map[string]float64)
	var errs []error
	for _, field := range []struct {
		name, raw string
	}{
		{VoltageGain, req.Gain},
		{Bandwidth, req.Bandwidth},
		{PowerConsumption, req.Power},
	} {
		if field.raw == "" {
			continue
		}
		v, err := units.ParseValue(field.raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("requirement %s: %w", field.name, err))
			continue
		}
		out[field.name] = v
	}
	return out, errors.Join(errs...)
}

// Achieved collects the numeric results of a small-signal analysis. Gain is
// compared by magnitude so an inverting stage can meet a positive target.
// bandwidth is the measured -3 dB frequency, or 0 when none was found.
func Achieved(m smallsignal.PerformanceMetrics, bandwidth float64) map[string]float64 {
	out := make(map[string]float64)
	if m.VoltageGain.Defined {
		out[VoltageGain] = math.Abs(m.VoltageGain.Value)
	}
	if m.InputImpedance.Defined {
		out[InputImpedance] = m.InputImpedance.Value
	}
	if m.OutputImpedance.Defined {
		out[OutputImpedance] = m.OutputImpedance.Value
	}
	if bandwidth > 0 && finite(bandwidth) {
		out[Bandwidth] = bandwidth
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
