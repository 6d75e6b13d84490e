package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
)

// topologySynonyms lists the phrases that name each topology, in the priority
// order used for identification.
var topologySynonyms = []struct {
	topology circuit.Topology
	phrases  []string
	abbrev   string
}{
	{circuit.CommonSource, []string{"common source", "source grounded", "grounded source"}, "cs"},
	{circuit.CommonGate, []string{"common gate", "gate grounded", "grounded gate"}, "cg"},
	{circuit.CommonDrain, []string{"common drain", "source follower", "drain grounded", "grounded drain"}, "cd"},
}

type topologyMatcher struct {
	topology circuit.Topology
	re       *regexp.Regexp
}

var topologyMatchers = buildTopologyMatchers()

// gainPattern finds a numeric gain requirement such as "gain 10",
// "gain of 2.5" or "Gain: 1".
var gainPattern = regexp.MustCompile(`(?i)\bgain\s*(?:of|is|=|:)?\s*(` + numPattern + `)`)

func buildTopologyMatchers() []topologyMatcher {
	matchers := make([]topologyMatcher, 0, len(topologySynonyms))
	for _, syn := range topologySynonyms {
		alts := make([]string, 0, len(syn.phrases)+1)
		for _, phrase := range syn.phrases {
			words := strings.Fields(phrase)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			alts = append(alts, strings.Join(words, `[\s\-_]*`))
		}
		alts = append(alts, `\b`+syn.abbrev+`\b`)
		matchers = append(matchers, topologyMatcher{
			topology: syn.topology,
			re:       regexp.MustCompile(`(?i)` + strings.Join(alts, "|")),
		})
	}
	return matchers
}

// IdentifyTopology determines the amplifier configuration from an explicit
// mention, falling back to the requested gain. It never fails: text with
// neither yields an Unknown identification.
func IdentifyTopology(text string) circuit.Identification {
	for _, m := range topologyMatchers {
		if loc := m.re.FindStringIndex(text); loc != nil {
			return circuit.Identification{
				Topology:    m.topology,
				Method:      circuit.ExplicitMention,
				Matched:     text[loc[0]:loc[1]],
				Description: circuit.Description(m.topology),
			}
		}
	}

	if sub := gainPattern.FindStringSubmatch(text); sub != nil {
		gain, err := strconv.ParseFloat(sub[1], 64)
		if err == nil {
			return inferFromGain(gain, sub[1])
		}
	}

	return circuit.Identification{
		Topology: circuit.Unknown,
		Method:   circuit.NotIdentified,
	}
}

func inferFromGain(gain float64, raw string) circuit.Identification {
	id := circuit.Identification{
		Method:  circuit.InferredFromGain,
		Matched: raw,
		Gain:    &gain,
	}
	switch {
	case gain > 5:
		id.Topology = circuit.CommonSource
		id.Basis = circuit.HighGain
		id.Description = circuit.Description(circuit.CommonSource)
	case gain >= 0.9 && gain <= 1.1:
		id.Topology = circuit.CommonDrain
		id.Basis = circuit.UnityGain
		id.Description = circuit.Description(circuit.CommonDrain)
	default:
		id.Topology = circuit.CommonSource
		id.Basis = circuit.MediumGain
		id.Description = "Default choice for medium gain requirements"
	}
	return id
}
