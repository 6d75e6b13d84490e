// Package circuit defines the records shared by the extractor, the
// small-signal calculator and the design pipeline.
package circuit

import (
	"strings"
)

// Topology is a single-transistor amplifier configuration.
type Topology string

const (
	CommonSource Topology = "CommonSource"
	CommonGate   Topology = "CommonGate"
	CommonDrain  Topology = "CommonDrain"
	Unknown      Topology = "Unknown"
)

// ValidTopologies returns the concrete topologies in the order they are
// reported to callers.
func ValidTopologies() []Topology {
	return []Topology{CommonSource, CommonDrain, CommonGate}
}

// IsValid reports whether t is one of the three concrete topologies.
func (t Topology) IsValid() bool {
	switch t {
	case CommonSource, CommonGate, CommonDrain:
		return true
	}
	return false
}

// DisplayName returns the human-readable name, e.g. "Common Source".
func (t Topology) DisplayName() string {
	switch t {
	case CommonSource:
		return "Common Source"
	case CommonGate:
		return "Common Gate"
	case CommonDrain:
		return "Common Drain (Source Follower)"
	default:
		return "Unknown"
	}
}

// Abbreviation returns CS, CG or CD.
func (t Topology) Abbreviation() string {
	switch t {
	case CommonSource:
		return "CS"
	case CommonGate:
		return "CG"
	case CommonDrain:
		return "CD"
	default:
		return ""
	}
}

// ParseTopology accepts the tag, the display name or the abbreviation in any
// case, with spaces, hyphens or underscores between words. Anything else is
// Unknown.
func ParseTopology(s string) Topology {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, " (source follower)")
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)

	switch norm {
	case "commonsource", "cs":
		return CommonSource
	case "commongate", "cg":
		return CommonGate
	case "commondrain", "cd", "sourcefollower":
		return CommonDrain
	default:
		return Unknown
	}
}

// IdentificationMethod records how a topology was determined.
type IdentificationMethod string

const (
	ExplicitMention  IdentificationMethod = "ExplicitMention"
	InferredFromGain IdentificationMethod = "InferredFromGain"
	NotIdentified    IdentificationMethod = "NotIdentified"
)

// GainBasis distinguishes the branches of gain-based inference.
type GainBasis string

const (
	HighGain   GainBasis = "HighGain"
	UnityGain  GainBasis = "UnityGain"
	MediumGain GainBasis = "MediumGain"
)

// Identification is the outcome of topology identification.
type Identification struct {
	Topology    Topology             `json:"type"`
	Method      IdentificationMethod `json:"identification_method"`
	Basis       GainBasis            `json:"gain_basis,omitempty"`
	Matched     string               `json:"matched,omitempty"`
	Gain        *float64             `json:"gain,omitempty"`
	Description string               `json:"description"`
}

// Description returns the one-line characterisation of a topology.
func Description(t Topology) string {
	switch t {
	case CommonSource:
		return "Voltage amplifier with high voltage gain and phase inversion"
	case CommonGate:
		return "Current amplifier with good high-frequency response"
	case CommonDrain:
		return "Buffer amplifier with gain ≈ 1, high input impedance, low output impedance"
	default:
		return ""
	}
}
