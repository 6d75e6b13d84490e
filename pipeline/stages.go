package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/extract"
	"github.com/c360studio/ampdesign/llm"
	"github.com/c360studio/ampdesign/model"
	"github.com/c360studio/ampdesign/netlist"
	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/prompts"
	"github.com/c360studio/ampdesign/reference"
	"github.com/c360studio/ampdesign/sandbox"
	"github.com/c360studio/ampdesign/smallsignal"
	"github.com/c360studio/ampdesign/units"
	"github.com/c360studio/ampdesign/validation"
)

// complete renders the stage prompt and returns the model's answer.
func (p *Pipeline) complete(ctx context.Context, stage Stage, data prompts.Data) (string, error) {
	msgs, err := p.prompts.Messages(string(stage), data)
	if err != nil {
		return "", err
	}
	resp, err := p.llm.Complete(ctx, llm.Request{
		Capability:  string(model.CapabilityForStage(string(stage))),
		Messages:    msgs,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s model call: %w", stage, err)
	}
	return resp.Content, nil
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

func (p *Pipeline) analysis(ctx context.Context, r *Result) (string, error) {
	r.Analysis = extract.Extract(r.Request)

	text, err := p.complete(ctx, StageAnalysis, prompts.Data{
		Request:  r.Request,
		Analysis: indentJSON(r.Analysis),
	})
	if err != nil {
		return "", err
	}
	r.Summary = text
	return text, nil
}

func (p *Pipeline) componentSelection(ctx context.Context, r *Result) (string, error) {
	base := smallsignal.DesignFromAnalysis(r.Analysis, p.bias)
	r.Design = base
	r.DesignSource = DesignExtracted
	r.Components = reference.Components(base.Topology, base.Components.SourceResistor > 0)

	text, err := p.complete(ctx, StageComponentSelection, prompts.Data{
		Request:    r.Request,
		Analysis:   indentJSON(r.Analysis),
		Components: r.Components.Text(),
		Feedback:   r.feedback,
	})
	if err != nil {
		return "", err
	}

	d, err := decodeDesign(text, base)
	if err != nil {
		p.logger.Warn("Model design unusable, keeping extracted design", "run_id", r.RunID, "error", err)
		r.Design.Assumptions = append(r.Design.Assumptions, "model design unusable, extracted values used")
		return text, nil
	}
	r.Design = d
	r.DesignSource = DesignModel
	return text, nil
}

// decodeDesign reads a design JSON object from text. Values the model left
// out keep the extracted value from base.
func decodeDesign(text string, base smallsignal.Design) (smallsignal.Design, error) {
	d := base
	d.Assumptions = nil
	if base.Transistor.Ro != nil {
		ro := *base.Transistor.Ro
		d.Transistor.Ro = &ro
	}

	if err := llm.DecodeJSON(text, &d); err != nil {
		return smallsignal.Design{}, err
	}

	topo := circuit.ParseTopology(string(d.Topology))
	if !topo.IsValid() {
		return smallsignal.Design{}, fmt.Errorf("unknown topology %q", d.Topology)
	}
	d.Topology = topo

	c := d.Components
	for _, v := range []float64{c.DrainResistor, c.GateResistor, c.SourceResistor, c.LoadResistor, c.InputCapacitor, d.Transistor.Gm, d.Transistor.Cgs, d.Transistor.Cgd} {
		if v < 0 {
			return smallsignal.Design{}, errors.New("negative component value")
		}
	}
	if d.Transistor.Ro != nil && *d.Transistor.Ro <= 0 {
		d.Transistor.Ro = nil
	}
	return d, nil
}

func (p *Pipeline) smallSignal(_ context.Context, r *Result) (string, error) {
	r.SmallSignal = smallsignal.Analyze(r.Design)
	r.NodalGain, r.NodalError = nil, ""
	r.Sweep, r.Bandwidth = nil, 0
	if !r.SmallSignal.OK() {
		return "", errors.New(r.SmallSignal.Error)
	}

	if gain, err := nodal.MidbandGain(r.Design); err != nil {
		r.NodalError = err.Error()
	} else {
		r.NodalGain = &gain
	}

	if points, err := nodal.Sweep(r.Design, p.sweep); err != nil {
		if r.NodalError == "" {
			r.NodalError = err.Error()
		}
	} else {
		r.Sweep = points
		if corner, ok := nodal.Corner(points); ok {
			r.Bandwidth = corner
		}
	}

	return smallSignalText(r), nil
}

// smallSignalText is the plain-text report handed to later prompts.
func smallSignalText(r *Result) string {
	if r.SmallSignal.Report == nil {
		return ""
	}
	m := r.SmallSignal.Report.Analysis.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "Topology: %s\n", r.Design.Topology.DisplayName())
	for _, row := range []struct {
		name string
		m    smallsignal.Metric
	}{
		{"Voltage gain", m.VoltageGain},
		{"Voltage gain (dB)", m.VoltageGainDB},
		{"Input impedance", m.InputImpedance},
		{"Output impedance", m.OutputImpedance},
		{"Low cutoff", m.LowCutoff},
		{"Input capacitance", m.InputCapacitance},
	} {
		fmt.Fprintf(&b, "%s: %s  [%s]\n", row.name, row.m.String(), row.m.Formula)
	}
	if r.NodalGain != nil {
		fmt.Fprintf(&b, "Nodal midband gain: %.3f V/V\n", *r.NodalGain)
	}
	if r.Bandwidth > 0 {
		fmt.Fprintf(&b, "-3 dB bandwidth: %s\n", units.FormatFrequency(r.Bandwidth))
	}
	for _, a := range r.Design.Assumptions {
		fmt.Fprintf(&b, "Assumption: %s\n", a)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) formulas(ctx context.Context, r *Result) (string, error) {
	sheet, ok := reference.Formulas(r.Design.Topology)
	if !ok {
		return "", fmt.Errorf("no formulas for topology %s", r.Design.Topology)
	}
	r.Formulas = sheet

	text, err := p.complete(ctx, StageFormulas, prompts.Data{
		Request:     r.Request,
		Design:      indentJSON(r.Design),
		SmallSignal: smallSignalText(r),
		Formulas:    sheet.Text(),
		Feedback:    r.feedback,
	})
	if err != nil {
		return "", err
	}
	r.Explanation = text
	return text, nil
}

func (p *Pipeline) netlist(ctx context.Context, r *Result) (string, error) {
	r.Netlist, r.NetlistWarnings = "", nil

	text, err := p.complete(ctx, StageNetlist, prompts.Data{
		Request:     r.Request,
		Design:      indentJSON(r.Design),
		SmallSignal: smallSignalText(r),
		Feedback:    r.feedback,
	})
	if err != nil {
		return "", err
	}

	r.Netlist = llm.ExtractCodeBlock(text, "spice", "cir", "netlist")
	nl, err := netlist.Parse(r.Netlist)
	if err != nil {
		r.NetlistWarnings = []string{err.Error()}
		return r.Netlist, nil
	}
	for _, w := range nl.Warnings {
		r.NetlistWarnings = append(r.NetlistWarnings, w.String())
	}
	return r.Netlist, nil
}

func (p *Pipeline) pyspice(ctx context.Context, r *Result) (string, error) {
	r.PySpice = ""
	if r.Netlist == "" {
		return "", skip("no netlist to translate")
	}

	text, err := p.complete(ctx, StagePySpice, prompts.Data{Netlist: r.Netlist})
	if err != nil {
		return "", err
	}
	r.PySpice = llm.ExtractCodeBlock(text, "python", "py")
	if r.PySpice == "" {
		return "", errors.New("no Python code in model response")
	}
	return r.PySpice, nil
}

func (p *Pipeline) simulation(ctx context.Context, r *Result) (string, error) {
	r.Syntax, r.Simulation = nil, nil
	if p.runner == nil {
		return "", skip("sandbox disabled")
	}
	if r.PySpice == "" {
		return "", skip("no PySpice code to run")
	}

	syntax, err := sandbox.CheckPython(ctx, r.PySpice)
	if err != nil {
		return "", err
	}
	r.Syntax = syntax
	if !syntax.Valid {
		msgs := make([]string, len(syntax.Errors))
		for i, e := range syntax.Errors {
			msgs[i] = e.String()
		}
		return "", fmt.Errorf("generated code does not parse: %s", strings.Join(msgs, "; "))
	}

	res, err := p.runner.Run(ctx, r.PySpice)
	if err != nil {
		return "", err
	}
	r.Simulation = res
	switch {
	case res.TimedOut:
		return res.Format(), fmt.Errorf("simulation timed out after %s", p.runner.Timeout())
	case res.ExitCode != 0:
		return res.Format(), fmt.Errorf("simulation exited with code %d", res.ExitCode)
	}
	return res.Format(), nil
}

func (p *Pipeline) validation(_ context.Context, r *Result) (string, error) {
	required, reqErr := validation.Required(r.Analysis.Components.Requirements)

	achieved := map[string]float64{}
	if r.SmallSignal.Report != nil {
		achieved = validation.Achieved(r.SmallSignal.Report.Analysis.Metrics, r.Bandwidth)
	}
	r.Validation = validation.Validate(required, achieved)

	var b strings.Builder
	if len(r.Validation.Checks) == 0 {
		b.WriteString("No requirement could be checked.\n")
	}
	for _, c := range r.Validation.Checks {
		verdict := "pass"
		if !c.Pass {
			verdict = "FAIL"
		}
		fmt.Fprintf(&b, "%s: required %g, achieved %g (%s)\n", c.Parameter, c.Required, c.Achieved, verdict)
	}
	if r.Validation.RedirectTo != "" {
		fmt.Fprintf(&b, "Redirect to: %s\n", r.Validation.RedirectTo)
	}
	if reqErr != nil {
		fmt.Fprintf(&b, "Unreadable requirements: %v\n", reqErr)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (p *Pipeline) codeGeneration(ctx context.Context, r *Result) (string, error) {
	r.PlotCode = ""
	if r.Netlist == "" {
		return "", skip("no netlist to plot")
	}

	data := prompts.Data{Netlist: r.Netlist}
	if r.Simulation != nil {
		data.Simulation = r.Simulation.Stdout
	}
	text, err := p.complete(ctx, StageCodeGeneration, data)
	if err != nil {
		return "", err
	}
	r.PlotCode = llm.ExtractCodeBlock(text, "python", "py")
	if r.PlotCode == "" {
		return "", errors.New("no Python code in model response")
	}
	return r.PlotCode, nil
}
