package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/smallsignal"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		required map[string]float64
		achieved map[string]float64
		failed   []string
		redirect string
	}{
		{
			name:     "all met",
			required: map[string]float64{VoltageGain: 10, Noise: 5},
			achieved: map[string]float64{VoltageGain: 12, Noise: 4},
			failed:   []string{},
		},
		{
			name:     "low gain goes to component selection",
			required: map[string]float64{VoltageGain: 10, Bandwidth: 1e6},
			achieved: map[string]float64{VoltageGain: 8, Bandwidth: 1e5},
			failed:   []string{Bandwidth, VoltageGain},
			redirect: RedirectComponentSelection,
		},
		{
			name:     "bandwidth goes to formulas",
			required: map[string]float64{Bandwidth: 1e6, PhaseMargin: 45},
			achieved: map[string]float64{Bandwidth: 1e5, PhaseMargin: 60},
			failed:   []string{Bandwidth},
			redirect: RedirectFormulas,
		},
		{
			name:     "power goes to simulation",
			required: map[string]float64{PowerConsumption: 1e-3},
			achieved: map[string]float64{PowerConsumption: 2e-3},
			failed:   []string{PowerConsumption},
			redirect: RedirectSimulation,
		},
		{
			name:     "missing or non-finite values are skipped",
			required: map[string]float64{VoltageGain: 10, Distortion: 0.01},
			achieved: map[string]float64{Distortion: math.NaN()},
			failed:   []string{},
		},
		{
			name:     "impedance is informational",
			required: map[string]float64{InputImpedance: 1e6},
			achieved: map[string]float64{InputImpedance: 10},
			failed:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.required, tt.achieved)
			assert.Equal(t, tt.failed, r.FailedParameters)
			assert.Equal(t, len(tt.failed) == 0, r.MatchesRequirements)
			assert.Equal(t, tt.redirect, r.RedirectTo)
		})
	}
}

func TestValidate_EqualValuePasses(t *testing.T) {
	r := Validate(map[string]float64{VoltageGain: 10, Noise: 1}, map[string]float64{VoltageGain: 10, Noise: 1})
	assert.True(t, r.MatchesRequirements)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, Noise, r.Checks[0].Parameter)
	assert.Equal(t, LowerIsBetter, r.Checks[0].Direction)
}

func TestRedirectTo(t *testing.T) {
	assert.Empty(t, RedirectTo(nil))
	assert.Equal(t, RedirectComponentSelection, RedirectTo([]string{Bandwidth, OutputImpedance}))
	assert.Equal(t, RedirectFormulas, RedirectTo([]string{Noise, PhaseMargin}))
	assert.Equal(t, RedirectSimulation, RedirectTo([]string{Noise}))
}

func TestRequired(t *testing.T) {
	got, err := Required(circuit.Requirements{Gain: "10", Bandwidth: "1 MHz", Power: "5 mW"})
	require.NoError(t, err)
	assert.InDelta(t, 10, got[VoltageGain], 1e-12)
	assert.InDelta(t, 1e6, got[Bandwidth], 1e-6)
	assert.InDelta(t, 5e-3, got[PowerConsumption], 1e-12)

	got, err = Required(circuit.Requirements{Gain: "high"})
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestAchieved(t *testing.T) {
	res := smallsignal.AnalyzeCommonSource(smallsignal.Design{
		Components: smallsignal.ComponentValues{DrainResistor: 10e3, GateResistor: 1e6},
		Transistor: smallsignal.TransistorParameters{Gm: 2e-3, Cgs: 5e-12, Cgd: 1e-12},
	})

	got := Achieved(res.Metrics, 0)
	assert.InDelta(t, 20, got[VoltageGain], 1e-9)
	_, ok := got[Bandwidth]
	assert.False(t, ok)

	got = Achieved(res.Metrics, 2e6)
	assert.InDelta(t, 2e6, got[Bandwidth], 1e-6)
}
