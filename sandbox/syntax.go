// Package sandbox checks and runs generated Python simulation scripts.
//
// CheckPython parses a script with tree-sitter without executing it, so the
// pipeline can reject model output that is not even syntactically valid
// before paying for an interpreter start. Runner executes a script in a
// subprocess with a wall-clock limit.
package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError is a location tree-sitter could not parse. Line and Column
// are 1-based.
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Missing bool   `json:"missing,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (e SyntaxError) String() string {
	if e.Missing {
		return fmt.Sprintf("%d:%d: missing %s", e.Line, e.Column, e.Text)
	}
	return fmt.Sprintf("%d:%d: unexpected %q", e.Line, e.Column, e.Text)
}

// SyntaxReport is the result of CheckPython.
type SyntaxReport struct {
	Valid   bool          `json:"valid"`
	Errors  []SyntaxError `json:"errors"`
	Imports []string      `json:"imports"`
}

// maxErrorText bounds the snippet kept for each error node.
const maxErrorText = 40

// CheckPython parses code as Python 3 and reports syntax errors and the
// top-level modules it imports, sorted and de-duplicated.
func CheckPython(ctx context.Context, code string) (*SyntaxReport, error) {
	// sitter.Parser is not safe for concurrent use
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(python.GetLanguage())

	src := []byte(code)
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	report := &SyntaxReport{
		Errors:  []SyntaxError{},
		Imports: []string{},
	}
	if root.HasError() {
		collectErrors(root, src, report)
	}
	report.Valid = len(report.Errors) == 0

	seen := make(map[string]bool)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		for _, imp := range imports(root.NamedChild(i), src) {
			if !seen[imp] {
				seen[imp] = true
				report.Imports = append(report.Imports, imp)
			}
		}
	}
	sort.Strings(report.Imports)
	return report, nil
}

func collectErrors(n *sitter.Node, src []byte, report *SyntaxReport) {
	if n.IsError() || n.IsMissing() {
		pt := n.StartPoint()
		e := SyntaxError{
			Line:    int(pt.Row) + 1,
			Column:  int(pt.Column) + 1,
			Missing: n.IsMissing(),
		}
		if e.Missing {
			e.Text = n.Type()
		} else {
			e.Text = snippet(src[n.StartByte():n.EndByte()])
		}
		report.Errors = append(report.Errors, e)
		if n.IsError() {
			return
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			collectErrors(child, src, report)
		}
	}
}

func snippet(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if r := []rune(s); len(r) > maxErrorText {
		return string(r[:maxErrorText]) + "..."
	}
	return s
}

// imports returns the top-level package names of an import statement.
func imports(n *sitter.Node, src []byte) []string {
	var names []string
	switch n.Type() {
	case "import_statement":
		// import foo.bar, baz as b
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "aliased_import" {
				child = child.ChildByFieldName("name")
			}
			if child != nil && child.Type() == "dotted_name" {
				names = append(names, topLevel(child.Content(src)))
			}
		}
	case "import_from_statement":
		// from foo.bar import baz; relative imports are local
		if mod := n.ChildByFieldName("module_name"); mod != nil && mod.Type() == "dotted_name" {
			names = append(names, topLevel(mod.Content(src)))
		}
	}
	return names
}

func topLevel(dotted string) string {
	name, _, _ := strings.Cut(dotted, ".")
	return strings.TrimSpace(name)
}
