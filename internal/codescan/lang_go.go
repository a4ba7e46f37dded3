package codescan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// goInspector collects functions, imports, and findings from Go source files.
type goInspector struct {
	secrets policy.Secrets
}

func (in *goInspector) Inspect(root *tree_sitter.Node, source []byte, scan *FileScan) {
	cursor := root.Walk()
	defer cursor.Close()

	in.walk(cursor, source, scan)
}

func (in *goInspector) walk(cursor *tree_sitter.TreeCursor, source []byte, scan *FileScan) {
	node := cursor.Node()
	kind := node.Kind()

	switch kind {
	case "function_declaration", "method_declaration":
		if fn := goFunction(node, source); fn != nil {
			scan.Functions = append(scan.Functions, *fn)
		}

	case "import_spec":
		if imp := goImport(node, source); imp != nil {
			scan.Imports = append(scan.Imports, *imp)
		}

	case "var_spec", "const_spec":
		in.checkSpecCredential(node, source, scan)

	case "short_var_declaration", "assignment_statement":
		in.checkAssignCredential(node, source, scan)

	case "call_expression":
		checkGoCall(node, source, scan)
	}

	if cursor.GotoFirstChild() {
		in.walk(cursor, source, scan)
		for cursor.GotoNextSibling() {
			in.walk(cursor, source, scan)
		}
		cursor.GotoParent()
	}
}

func goFunction(node *tree_sitter.Node, source []byte) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Utf8Text(source)
	return &Function{
		Name:      name,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Exported:  isGoExported(name),
	}
}

func goImport(node *tree_sitter.Node, source []byte) *Import {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		// Fall back to finding an interpreted_string_literal child.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return nil
	}

	importPath := strings.Trim(pathNode.Utf8Text(source), "\"")
	if importPath == "" {
		return nil
	}

	return &Import{Path: importPath, Line: lineOf(node)}
}

// checkSpecCredential flags `var name = "literal"` and `const name = "literal"`
// declarations whose name matches the credential keyword list.
func (in *goInspector) checkSpecCredential(node *tree_sitter.Node, source []byte, scan *FileScan) {
	nameNode := node.ChildByFieldName("name")
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	if !goValueIsString(valueNode) {
		return
	}
	name := nameNode.Utf8Text(source)
	if in.secrets.Matches(name) {
		scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(node)))
	}
}

// checkAssignCredential flags `name := "literal"` and `name = "literal"`
// statements, pairing left and right expression lists index-wise.
func (in *goInspector) checkAssignCredential(node *tree_sitter.Node, source []byte, scan *FileScan) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	idents := exprListChildren(left)
	values := exprListChildren(right)
	n := len(idents)
	if len(values) < n {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		ident := idents[i]
		value := values[i]
		if ident.Kind() != "identifier" {
			continue
		}
		if !goValueIsString(value) {
			continue
		}
		name := ident.Utf8Text(source)
		if in.secrets.Matches(name) {
			scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(ident)))
		}
	}
}

// exprListChildren returns the expression children of an expression_list,
// skipping separator tokens.
func exprListChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() == "," {
			continue
		}
		out = append(out, child)
	}
	return out
}

// goValueIsString reports whether a value node is (or wraps, in the case of an
// expression_list) a Go string literal.
func goValueIsString(node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "interpreted_string_literal", "raw_string_literal":
		return true
	case "expression_list":
		children := exprListChildren(node)
		return len(children) > 0 && goValueIsString(children[0])
	}
	return false
}

// checkGoCall flags calls to panic outside of test helpers. Recover-guarded
// panics still count; the agents decide how much weight the finding carries.
func checkGoCall(node *tree_sitter.Node, source []byte, scan *FileScan) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "identifier" {
		return
	}
	if fnNode.Utf8Text(source) != "panic" {
		return
	}
	scan.Findings = append(scan.Findings, Finding{
		Rule:     RulePanicCall,
		Category: CategoryReliability,
		Severity: agent.SeverityWarning,
		Message:  "call to panic; prefer returning an error",
		Path:     scan.Path,
		Line:     lineOf(node),
	})
}

// isGoExported reports whether a Go identifier starts with an upper-case rune.
func isGoExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
