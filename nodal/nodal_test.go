package nodal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/smallsignal"
)

func ptr(v float64) *float64 { return &v }

func design(topo circuit.Topology) smallsignal.Design {
	return smallsignal.Design{
		Topology: topo,
		Components: smallsignal.ComponentValues{
			DrainResistor:  10e3,
			GateResistor:   1e6,
			SourceResistor: 1e3,
		},
		Transistor: smallsignal.TransistorParameters{Gm: 2e-3, Ro: ptr(50e3), Cgs: 5e-12, Cgd: 1e-12},
	}
}

func TestMidbandGainMatchesClosedForm(t *testing.T) {
	for _, topo := range circuit.ValidTopologies() {
		t.Run(string(topo), func(t *testing.T) {
			d := design(topo)

			got, err := MidbandGain(d)
			require.NoError(t, err)

			res := smallsignal.Analyze(d)
			require.True(t, res.OK())
			want := res.Report.Analysis.Metrics.VoltageGain
			require.True(t, want.Defined)

			assert.InDelta(t, want.Value, got, 1e-6*math.Max(1, math.Abs(want.Value)))
		})
	}
}

func TestMidbandGain_IdealCurrentSource(t *testing.T) {
	d := design(circuit.CommonSource)
	d.Transistor.Ro = nil

	got, err := MidbandGain(d)
	require.NoError(t, err)
	assert.InDelta(t, -20, got, 1e-9)
}

func TestMidbandGain_InvalidDesigns(t *testing.T) {
	d := design("Invalid")
	_, err := MidbandGain(d)
	assert.ErrorIs(t, err, ErrInvalidDesign)

	d = design(circuit.CommonSource)
	d.Components.DrainResistor = 0
	_, err = MidbandGain(d)
	assert.ErrorIs(t, err, ErrInvalidDesign)

	d = design(circuit.CommonDrain)
	d.Components.SourceResistor = -10
	_, err = MidbandGain(d)
	assert.ErrorIs(t, err, ErrInvalidDesign)
}

func TestSweep_CommonSource(t *testing.T) {
	d := design(circuit.CommonSource)

	points, err := Sweep(d, DefaultSweep())
	require.NoError(t, err)
	require.Len(t, points, 81)

	first := points[0]
	assert.InDelta(t, 10, first.Freq, 1e-9)
	assert.InEpsilon(t, 16.6667, first.Magnitude, 1e-3)
	assert.InDelta(t, 20*math.Log10(first.Magnitude), first.MagnitudeDB, 1e-9)
	assert.InDelta(t, 180, math.Abs(first.PhaseDeg), 1)

	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Freq, points[i-1].Freq)
	}

	corner, ok := Corner(points)
	require.True(t, ok)

	fl := smallsignal.AnalyzeCommonSource(d).Metrics.LowCutoff
	require.True(t, fl.Defined)
	assert.InEpsilon(t, fl.Value, corner, 0.05)
}

func TestSweep_CommonDrainStaysBelowUnity(t *testing.T) {
	points, err := Sweep(design(circuit.CommonDrain), SweepConfig{FStart: 10, FStop: 1e6, PointsPerDecade: 5})
	require.NoError(t, err)

	for _, p := range points {
		assert.Less(t, p.Magnitude, 1.0)
	}
}

func TestSweep_Errors(t *testing.T) {
	d := design(circuit.CommonSource)
	d.Transistor.Gm = 0
	_, err := Sweep(d, DefaultSweep())
	assert.ErrorIs(t, err, ErrInvalidDesign)

	d = design(circuit.CommonSource)
	d.Components.GateResistor = 0
	_, err = Sweep(d, DefaultSweep())
	assert.ErrorIs(t, err, ErrInvalidDesign)

	_, err = Sweep(design(circuit.CommonGate), SweepConfig{FStart: 100, FStop: 10, PointsPerDecade: 10})
	assert.ErrorIs(t, err, ErrInvalidDesign)
}

func TestFrequencies(t *testing.T) {
	freqs := SweepConfig{FStart: 1, FStop: 50, PointsPerDecade: 1}.Frequencies()
	require.Len(t, freqs, 3)
	assert.InDelta(t, 1, freqs[0], 1e-12)
	assert.InDelta(t, 10, freqs[1], 1e-9)
	assert.Equal(t, 50.0, freqs[2])
}

func TestCorner(t *testing.T) {
	_, ok := Corner(nil)
	assert.False(t, ok)

	flat := []Point{{Freq: 1, MagnitudeDB: 0}, {Freq: 10, MagnitudeDB: -1}}
	_, ok = Corner(flat)
	assert.False(t, ok)

	pts := []Point{{Freq: 10, MagnitudeDB: 0}, {Freq: 100, MagnitudeDB: -6}}
	f, ok := Corner(pts)
	require.True(t, ok)
	assert.Greater(t, f, 10.0)
	assert.Less(t, f, 100.0)
}

func TestSweep_RestampsEveryFrequency(t *testing.T) {
	for _, topo := range circuit.ValidTopologies() {
		t.Run(string(topo), func(t *testing.T) {
			d := design(topo)
			points, err := Sweep(d, SweepConfig{FStart: 10, FStop: 1000, PointsPerDecade: 1})
			require.NoError(t, err)
			require.Len(t, points, 3)

			// each point must match a solve on a freshly built matrix
			for _, p := range points {
				single, err := Sweep(d, SweepConfig{FStart: p.Freq, FStop: 10 * p.Freq, PointsPerDecade: 1})
				require.NoError(t, err)
				assert.InEpsilon(t, single[0].Magnitude, p.Magnitude, 1e-9)
				assert.InDelta(t, single[0].PhaseDeg, p.PhaseDeg, 1e-6)
			}
		})
	}
}
