// Package netlist reads SPICE netlists produced by the netlist stage and
// reports structural problems that would stop a simulator from running them.
// It is a lint, not a simulator: elements are collected with their nodes and
// values, and anything suspicious becomes a Warning.
package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrEmpty is returned when the input has no netlist lines.
var ErrEmpty = errors.New("empty netlist")

// Ground is the SPICE reference node. "gnd" is accepted as an alias.
const Ground = "0"

// Element is one device line.
type Element struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Nodes    []string          `json:"nodes"`
	Value    float64           `json:"value,omitempty"`
	HasValue bool              `json:"has_value"`
	Model    string            `json:"model,omitempty"`
	Source   string            `json:"source,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Line     int               `json:"line"`
}

// Model is a .model card.
type Model struct {
	Name   string             `json:"name"`
	Type   string             `json:"type"`
	Params map[string]float64 `json:"params"`
	Line   int                `json:"line"`
}

// Analysis is one analysis directive such as .op or .ac.
type Analysis struct {
	Kind string   `json:"kind"`
	Args []string `json:"args,omitempty"`
	Line int      `json:"line"`
}

// Warning describes a problem found while reading a netlist. Line is 0 for
// whole-netlist findings.
type Warning struct {
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Netlist is the parsed form of a SPICE deck.
type Netlist struct {
	Title    string           `json:"title"`
	Elements []Element        `json:"elements"`
	Models   map[string]Model `json:"models"`
	Analyses []Analysis       `json:"analyses"`
	HasEnd   bool             `json:"has_end"`
	Warnings []Warning        `json:"warnings"`
}

// OK reports whether the netlist produced no warnings.
func (n *Netlist) OK() bool {
	return len(n.Warnings) == 0
}

// Element looks up an element by name, case-insensitively.
func (n *Netlist) Element(name string) (Element, bool) {
	for _, e := range n.Elements {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Element{}, false
}

// Nodes returns every node name referenced by an element, sorted.
func (n *Netlist) Nodes() []string {
	seen := make(map[string]bool)
	for _, e := range n.Elements {
		for _, node := range e.Nodes {
			seen[node] = true
		}
	}
	out := make([]string, 0, len(seen))
	for node := range seen {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

func (n *Netlist) warn(line int, format string, args ...any) {
	n.Warnings = append(n.Warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

// logical is a statement after comment stripping and continuation joining.
type logical struct {
	text string
	line int
}

var equalsPattern = regexp.MustCompile(`\s*=\s*`)

// Parse reads a netlist. The first line is the title, as in SPICE. Parse
// only fails on empty input; everything else is reported as a warning.
func Parse(src string) (*Netlist, error) {
	stmts, title, err := statements(src)
	if err != nil {
		return nil, err
	}

	n := &Netlist{
		Title:    title,
		Elements: []Element{},
		Models:   make(map[string]Model),
		Analyses: []Analysis{},
		Warnings: []Warning{},
	}

	inControl := false
	for _, st := range stmts {
		fields := strings.Fields(st.text)
		if len(fields) == 0 {
			continue
		}
		head := strings.ToLower(fields[0])

		if inControl {
			if head == ".endc" {
				inControl = false
			}
			continue
		}
		if n.HasEnd {
			continue
		}

		if strings.HasPrefix(head, ".") {
			switch head {
			case ".control":
				inControl = true
			case ".end":
				n.HasEnd = true
			default:
				n.parseDirective(head, st)
			}
			continue
		}
		n.parseElement(fields, st.line)
	}

	if inControl {
		n.warn(0, ".control block is not closed by .endc")
	}
	n.check()
	return n, nil
}

// statements splits src into logical statements. Inline ';' comments are
// removed, '+' lines continue the previous statement, and an open
// parenthesis keeps the statement going until it is balanced, which is how
// multi-line .model cards are usually written.
func statements(src string) ([]logical, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		stmts  []logical
		title  string
		first  = true
		lineNo int
		depth  int
	)
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)

		if first {
			if trimmed == "" {
				continue
			}
			first = false
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "*"))
			continue
		}

		if i := strings.Index(trimmed, ";"); i >= 0 {
			trimmed = strings.TrimSpace(trimmed[:i])
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "+") && len(stmts) > 0:
			stmts[len(stmts)-1].text += " " + strings.TrimSpace(trimmed[1:])
		case depth > 0 && len(stmts) > 0:
			stmts[len(stmts)-1].text += " " + trimmed
		default:
			stmts = append(stmts, logical{text: trimmed, line: lineNo})
			depth = 0
		}
		depth += strings.Count(trimmed, "(") - strings.Count(trimmed, ")")
		if depth < 0 {
			depth = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read netlist: %w", err)
	}
	if first {
		return nil, "", ErrEmpty
	}
	return stmts, title, nil
}

func (n *Netlist) parseDirective(head string, st logical) {
	fields := strings.Fields(st.text)
	switch head {
	case ".title":
		n.Title = strings.TrimSpace(strings.TrimPrefix(st.text, fields[0]))
	case ".model":
		n.parseModel(st)
	case ".op", ".ac", ".tran", ".dc", ".noise", ".tf":
		n.Analyses = append(n.Analyses, Analysis{
			Kind: strings.TrimPrefix(head, "."),
			Args: fields[1:],
			Line: st.line,
		})
		if head == ".ac" {
			n.checkAC(fields[1:], st.line)
		}
	case ".include", ".lib", ".param", ".options", ".option", ".global", ".ic", ".nodeset", ".temp", ".save", ".print", ".probe", ".meas", ".measure", ".subckt", ".ends":
	default:
		n.warn(st.line, "unknown directive %s", fields[0])
	}
}

func (n *Netlist) checkAC(args []string, line int) {
	if len(args) < 4 {
		n.warn(line, ".ac needs a sweep type, point count, start and stop frequency")
		return
	}
	switch strings.ToLower(args[0]) {
	case "dec", "oct", "lin":
	default:
		n.warn(line, ".ac sweep type %q is not DEC, OCT or LIN", args[0])
	}
	start, errStart := ParseValue(args[2])
	stop, errStop := ParseValue(args[3])
	if errStart != nil || errStop != nil {
		n.warn(line, ".ac frequencies %s..%s are not numbers", args[2], args[3])
		return
	}
	if start <= 0 || stop <= start {
		n.warn(line, ".ac range %s..%s is empty", args[2], args[3])
	}
}

// parseModel reads ".model NAME TYPE(k=v ...)" and the unparenthesised form.
func (n *Netlist) parseModel(st logical) {
	text := equalsPattern.ReplaceAllString(st.text, "=")
	text = strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(text)
	fields := strings.Fields(text)
	if len(fields) < 3 {
		n.warn(st.line, ".model needs a name and a type")
		return
	}

	m := Model{
		Name:   fields[1],
		Type:   strings.ToUpper(fields[2]),
		Params: make(map[string]float64),
		Line:   st.line,
	}
	for _, kv := range fields[3:] {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			n.warn(st.line, "model %s: parameter %q has no value", m.Name, kv)
			continue
		}
		v, err := ParseValue(val)
		if err != nil {
			n.warn(st.line, "model %s: %v", m.Name, err)
			continue
		}
		m.Params[strings.ToLower(key)] = v
	}
	n.Models[strings.ToLower(m.Name)] = m
}

func (n *Netlist) parseElement(fields []string, line int) {
	name := fields[0]
	kind := strings.ToUpper(name[:1])

	switch kind {
	case "R", "C", "L":
		if len(fields) < 4 {
			n.warn(line, "%s needs two nodes and a value", name)
			return
		}
		e := Element{Name: name, Kind: kind, Nodes: fields[1:3], Line: line}
		v, err := ParseValue(fields[3])
		if err != nil {
			n.warn(line, "%s: %v", name, err)
		} else {
			e.Value, e.HasValue = v, true
			if v <= 0 {
				n.warn(line, "%s has non-positive value %s", name, fields[3])
			}
		}
		n.Elements = append(n.Elements, e)

	case "V", "I":
		if len(fields) < 3 {
			n.warn(line, "%s needs two nodes", name)
			return
		}
		e := Element{Name: name, Kind: kind, Nodes: fields[1:3], Line: line}
		n.parseSource(&e, fields[3:])
		n.Elements = append(n.Elements, e)

	case "M":
		// M<name> drain gate source bulk model [W=.. L=..]
		if len(fields) < 6 {
			n.warn(line, "%s needs drain, gate, source, bulk and a model", name)
			return
		}
		e := Element{
			Name:   name,
			Kind:   kind,
			Nodes:  fields[1:5],
			Model:  fields[5],
			Params: make(map[string]string),
			Line:   line,
		}
		rest := equalsPattern.ReplaceAllString(strings.Join(fields[6:], " "), "=")
		for _, kv := range strings.Fields(rest) {
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			if _, err := ParseValue(val); err != nil {
				n.warn(line, "%s: %v", name, err)
			}
			e.Params[strings.ToLower(key)] = val
		}
		n.Elements = append(n.Elements, e)

	default:
		n.warn(line, "unsupported element %s", name)
	}
}

// parseSource reads the value part of an independent source: a bare
// number, "DC v", "AC mag" and transient forms like SIN(...) or PULSE(...).
func (n *Netlist) parseSource(e *Element, rest []string) {
	if len(rest) == 0 {
		n.warn(e.Line, "%s has no value", e.Name)
		return
	}

	spec := strings.Join(rest, " ")
	e.Params = make(map[string]string)
	for i := 0; i < len(rest); i++ {
		tok := strings.ToLower(rest[i])
		switch {
		case tok == "dc" || tok == "ac":
			if i+1 >= len(rest) {
				n.warn(e.Line, "%s: %s without a value", e.Name, strings.ToUpper(tok))
				continue
			}
			v, err := ParseValue(rest[i+1])
			if err != nil {
				n.warn(e.Line, "%s: %v", e.Name, err)
			} else if tok == "dc" {
				e.Value, e.HasValue = v, true
			}
			e.Params[tok] = rest[i+1]
			i++
		case strings.ContainsRune(tok, '('):
			fn, _, _ := strings.Cut(tok, "(")
			if idx := strings.Index(spec, "("); idx >= 0 {
				e.Source = strings.ToUpper(fn) + spec[idx:]
			}
			return
		case i == 0:
			v, err := ParseValue(rest[0])
			if err != nil {
				n.warn(e.Line, "%s: %v", e.Name, err)
				continue
			}
			e.Value, e.HasValue = v, true
		}
	}
}

// check runs the whole-netlist rules once every statement has been read.
func (n *Netlist) check() {
	if !n.HasEnd {
		n.warn(0, "missing .end")
	}
	if len(n.Analyses) == 0 {
		n.warn(0, "no analysis directive (.op, .ac, .tran or .dc)")
	}

	touches := make(map[string]int)
	hasGround, hasMOSFET := false, false
	for _, e := range n.Elements {
		for _, node := range e.Nodes {
			if isGround(node) {
				hasGround = true
				continue
			}
			touches[node]++
		}
		if e.Kind == "M" {
			hasMOSFET = true
			if _, ok := n.Models[strings.ToLower(e.Model)]; !ok {
				n.warn(e.Line, "%s references undefined model %s", e.Name, e.Model)
			}
		}
	}

	if !hasGround {
		n.warn(0, "no element is connected to ground node 0")
	}
	if !hasMOSFET {
		n.warn(0, "netlist has no MOSFET")
	}

	dangling := make([]string, 0)
	for node, count := range touches {
		if count == 1 {
			dangling = append(dangling, node)
		}
	}
	sort.Strings(dangling)
	for _, node := range dangling {
		n.warn(0, "node %s is connected to only one element", node)
	}
}

func isGround(node string) bool {
	return node == Ground || strings.EqualFold(node, "gnd")
}
