// Package model provides capability-based model selection for pipeline
// stages. Stages ask for a capability (reasoning, coding, ...) and the
// registry resolves it to configured endpoints with a fallback chain.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityReasoning is for design decisions and circuit analysis.
	CapabilityReasoning Capability = "reasoning"

	// CapabilityWriting is for summaries and narrative reports.
	CapabilityWriting Capability = "writing"

	// CapabilityCoding is for SPICE netlists and Python scripts.
	CapabilityCoding Capability = "coding"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// StageCapabilities maps pipeline stages to the capability they use.
var StageCapabilities = map[string]Capability{
	"analysis":            CapabilityFast,
	"component-selection": CapabilityReasoning,
	"formulas":            CapabilityReasoning,
	"netlist":             CapabilityCoding,
	"pyspice":             CapabilityCoding,
	"code-generation":     CapabilityCoding,
}

// CapabilityForStage returns the capability for a stage, CapabilityWriting
// for stages without an entry.
func CapabilityForStage(stage string) Capability {
	if c, ok := StageCapabilities[stage]; ok {
		return c
	}
	return CapabilityWriting
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityReasoning, CapabilityWriting, CapabilityCoding, CapabilityFast:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
