package circuit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopology(t *testing.T) {
	tests := []struct {
		in   string
		want Topology
	}{
		{"CommonSource", CommonSource},
		{"common source", CommonSource},
		{"Common-Source", CommonSource},
		{"CS", CommonSource},
		{"cg", CommonGate},
		{"Common Gate", CommonGate},
		{"common_drain", CommonDrain},
		{"Common Drain (Source Follower)", CommonDrain},
		{"source follower", CommonDrain},
		{"cascode", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTopology(tt.in))
		})
	}
}

func TestTopologyNamesRoundTrip(t *testing.T) {
	for _, topo := range ValidTopologies() {
		assert.True(t, topo.IsValid())
		assert.Equal(t, topo, ParseTopology(topo.DisplayName()))
		assert.Equal(t, topo, ParseTopology(topo.Abbreviation()))
		assert.NotEmpty(t, Description(topo))
	}
	assert.False(t, Unknown.IsValid())
}

func TestDefaultDevice(t *testing.T) {
	d := DefaultDevice()

	assert.Equal(t, NMOS, d.Polarity)
	assert.Empty(t, d.UserSpecified())
	assert.Equal(t, "Default values used", d.Source())
	assert.InDelta(t, 100e-6, d.TransconductanceSI(), 1e-12)

	for name, p := range d.Fields() {
		assert.Equal(t, FromDefault, p.Source, name)
	}
}

func TestDeviceUserSpecified(t *testing.T) {
	d := DefaultDevice()
	d.PolaritySource = FromUser
	d.Polarity = PMOS
	d.AspectRatio = Param{Raw: "10", Value: 10, Source: FromUser}

	assert.Equal(t, []string{"type", "aspect_ratio"}, d.UserSpecified())
	assert.Equal(t, "Some parameters specified by user, others set to default", d.Source())
}

func TestInventoryJSONUsesEmptyLists(t *testing.T) {
	inv := NewInventory()
	assert.True(t, inv.IsEmpty())

	data, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"resistors":[]`)
	assert.Contains(t, string(data), `"current_sources":[]`)
}

func TestSummarize(t *testing.T) {
	inv := NewInventory()
	inv.Resistors = append(inv.Resistors, Finding{Label: "R1", Raw: "10kΩ", Value: 10e3})
	inv.Voltages = append(inv.Voltages, Finding{Label: InputLabel, Raw: "200mV AC", Value: 0.2})

	id := Identification{Topology: CommonSource, Method: ExplicitMention}
	s := Summarize(id, DefaultDevice(), inv)

	assert.Equal(t, CommonSource, s.ConfigurationType)
	assert.Equal(t, NMOS, s.MOSFETType)
	assert.Equal(t, "Not specified", s.SpecifiedGain)
	assert.Equal(t, ComponentCounts{Resistors: 1, VoltageSources: 1}, s.Components)

	inv.Requirements.Gain = "10"
	s = Summarize(id, DefaultDevice(), inv)
	assert.Equal(t, "10", s.SpecifiedGain)
}
