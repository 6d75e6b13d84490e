// Package extract turns a free-text amplifier request into a structured
// circuit record using pattern matching only.
//
// Extraction never fails. Anything not found in the text is represented by
// an empty container or, for device parameters, by a documented default
// marked with provenance "default".
package extract

import (
	"github.com/c360studio/ampdesign/circuit"
)

// Extract runs topology identification, device parameter extraction and
// component extraction over text and combines the results.
func Extract(text string) circuit.Analysis {
	id := IdentifyTopology(text)
	dev := ExtractDevice(text)
	inv := ExtractComponents(text)

	return circuit.Analysis{
		Identification: id,
		Device:         dev,
		Components:     inv,
		Summary:        circuit.Summarize(id, dev, inv),
	}
}
