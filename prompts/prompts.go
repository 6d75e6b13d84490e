// Package prompts holds the per-stage prompt text sent to the model and
// renders it into chat messages.
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/c360studio/ampdesign/llm"
)

// Stages that talk to a model.
const (
	StageAnalysis           = "analysis"
	StageComponentSelection = "component-selection"
	StageFormulas           = "formulas"
	StageNetlist            = "netlist"
	StagePySpice            = "pyspice"
	StageCodeGeneration     = "code-generation"
)

// Prompt is the persona and task for one stage. Task is a text/template
// executed against Data.
type Prompt struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
	Task      string `yaml:"-"`
}

// Data is what a Task template can reference. Empty fields are left out
// by the built-in templates.
type Data struct {
	Request     string
	Analysis    string
	Components  string
	Design      string
	SmallSignal string
	Formulas    string
	Netlist     string
	PySpice     string
	Simulation  string
	Feedback    string
}

// System renders the system message.
func (p Prompt) System() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s.\n\nGoal: %s", p.Role, p.Goal)
	if p.Backstory != "" {
		fmt.Fprintf(&b, "\n\n%s", p.Backstory)
	}
	return b.String()
}

// Messages renders the system and user messages for one request.
func (p Prompt) Messages(name string, data Data) ([]llm.Message, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(p.Task)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", name, err)
	}
	return []llm.Message{
		{Role: "system", Content: p.System()},
		{Role: "user", Content: strings.TrimSpace(buf.String())},
	}, nil
}

const feedbackBlock = `{{if .Feedback}}

A previous attempt did not meet the requirements:
{{.Feedback}}
Revise your answer to address it.{{end}}`

// Builtin returns the default prompt for every model-backed stage.
func Builtin() map[string]Prompt {
	return map[string]Prompt{
		StageAnalysis: {
			Role:      "MOSFET circuit analysis expert",
			Goal:      "Analyze MOSFET amplifier configurations and extract all circuit parameters",
			Backstory: "You have decades of experience designing MOSFET amplifiers.",
			Task: `Design request:
{{.Request}}

The request was parsed into this circuit record:
{{.Analysis}}

Summarize the topology, device parameters and every component value. Point out values that are
missing or look inconsistent with the requested topology.`,
		},
		StageComponentSelection: {
			Role: "MOSFET component selection specialist",
			Goal: "Choose component values for the amplifier that meet the user's requirements",
			Task: `Design request:
{{.Request}}

Circuit record:
{{.Analysis}}

Required components for this topology:
{{.Components}}` + feedbackBlock + `

Reply with a single JSON object and nothing else:
` + "```json" + `
{
  "topology": "CommonSource | CommonDrain | CommonGate",
  "component_values": {
    "drain_resistor": 10000,
    "gate_resistor": 1000000,
    "source_resistor": 1000,
    "load_resistor": 0,
    "input_capacitor": 1e-6
  },
  "transistor_parameters": {"gm": 0.002, "rd": 50000, "Cgs": 5e-12, "Cgd": 1e-12}
}
` + "```" + `
All values are in SI units (ohms, farads, siemens). Use 0 for a component that is absent.`,
		},
		StageFormulas: {
			Role:      "MOSFET circuit design engineer",
			Goal:      "Explain how the design meets the user's specifications",
			Backstory: "You apply the right formulas to calculate component values and predict circuit performance.",
			Task: `Design request:
{{.Request}}

Component design:
{{.Design}}

Small-signal results:
{{.SmallSignal}}

Reference formulas:
{{.Formulas}}

Walk through the formulas with the chosen values and state the resulting bias point, gain,
impedances and cutoff frequency.`,
		},
		StageNetlist: {
			Role: "SPICE netlist generator",
			Goal: "Convert the circuit design into a precise, simulator-ready SPICE netlist",
			Task: `Component design:
{{.Design}}

Small-signal results:
{{.SmallSignal}}` + feedbackBlock + `

Write the SPICE netlist for this amplifier. Use node 0 as ground, include a .model card for every
MOSFET, a DC supply, a small sinusoidal input, .op, .ac and .tran directives, and end with .end.
Reply with the netlist in a single ` + "```spice" + ` code block.`,
		},
		StagePySpice: {
			Role: "netlist to PySpice code generator",
			Goal: "Translate a SPICE netlist into a PySpice script that runs without errors",
			Task: `Netlist:
{{.Netlist}}

Write a PySpice script that builds this exact circuit, runs the operating point and AC analyses
and prints the operating point node voltages and the midband gain. Do not show plots.
Reply with the script in a single ` + "```python" + ` code block.`,
		},
		StageCodeGeneration: {
			Role: "circuit visualization code generator",
			Goal: "Write Python code that plots the amplifier's frequency response and schematic",
			Task: `Netlist:
{{.Netlist}}
{{if .Simulation}}
Simulation output:
{{.Simulation}}
{{end}}
Write a matplotlib script that draws the Bode magnitude plot of the amplifier and a simple
schematic of the netlist, saving both to PNG files.
Reply with the script in a single ` + "```python" + ` code block.`,
		},
	}
}
