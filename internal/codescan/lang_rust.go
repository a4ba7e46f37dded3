package codescan

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// rsInspector collects functions, imports, and findings from Rust source
// files.
type rsInspector struct {
	secrets policy.Secrets
}

func (in *rsInspector) Inspect(root *tree_sitter.Node, source []byte, scan *FileScan) {
	cursor := root.Walk()
	defer cursor.Close()

	in.walk(cursor, source, scan)
}

func (in *rsInspector) walk(cursor *tree_sitter.TreeCursor, source []byte, scan *FileScan) {
	node := cursor.Node()
	kind := node.Kind()

	switch kind {
	case "function_item":
		if fn := rsFunction(node, source); fn != nil {
			scan.Functions = append(scan.Functions, *fn)
		}

	case "use_declaration":
		if imp := rsUse(node, source); imp != nil {
			scan.Imports = append(scan.Imports, *imp)
		}

	case "let_declaration":
		in.checkLetCredential(node, source, scan)

	case "const_item", "static_item":
		in.checkItemCredential(node, source, scan)

	case "unsafe_block":
		scan.Findings = append(scan.Findings, Finding{
			Rule:     RuleUnsafeBlock,
			Category: CategorySecurity,
			Severity: agent.SeverityWarning,
			Message:  "unsafe block bypasses the borrow checker",
			Path:     scan.Path,
			Line:     lineOf(node),
		})

	case "call_expression":
		checkRsCall(node, source, scan)
	}

	if cursor.GotoFirstChild() {
		in.walk(cursor, source, scan)
		for cursor.GotoNextSibling() {
			in.walk(cursor, source, scan)
		}
		cursor.GotoParent()
	}
}

func rsFunction(node *tree_sitter.Node, source []byte) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	return &Function{
		Name:      nameNode.Utf8Text(source),
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Exported:  isRustPub(node),
	}
}

func rsUse(node *tree_sitter.Node, source []byte) *Import {
	argNode := node.ChildByFieldName("argument")
	if argNode == nil {
		return nil
	}
	path := argNode.Utf8Text(source)
	if path == "" {
		return nil
	}
	return &Import{Path: path, Line: lineOf(node)}
}

// checkLetCredential flags `let name = "literal"` bindings whose name matches
// the credential keyword list.
func (in *rsInspector) checkLetCredential(node *tree_sitter.Node, source []byte, scan *FileScan) {
	pattern := node.ChildByFieldName("pattern")
	value := node.ChildByFieldName("value")
	if pattern == nil || value == nil || pattern.Kind() != "identifier" {
		return
	}
	if _, ok := stringLiteralText(value, source, "string_literal", "raw_string_literal"); !ok {
		return
	}
	name := pattern.Utf8Text(source)
	if in.secrets.Matches(name) {
		scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(node)))
	}
}

// checkItemCredential is checkLetCredential for const and static items, which
// carry a name field instead of a pattern.
func (in *rsInspector) checkItemCredential(node *tree_sitter.Node, source []byte, scan *FileScan) {
	nameNode := node.ChildByFieldName("name")
	value := node.ChildByFieldName("value")
	if nameNode == nil || value == nil {
		return
	}
	if _, ok := stringLiteralText(value, source, "string_literal", "raw_string_literal"); !ok {
		return
	}
	name := nameNode.Utf8Text(source)
	if in.secrets.Matches(name) {
		scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(node)))
	}
}

// checkRsCall flags .unwrap() and .expect() calls, which panic on Err or None.
func checkRsCall(node *tree_sitter.Node, source []byte, scan *FileScan) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "field_expression" {
		return
	}
	fieldNode := fnNode.ChildByFieldName("field")
	if fieldNode == nil {
		return
	}
	method := fieldNode.Utf8Text(source)
	if method != "unwrap" && method != "expect" {
		return
	}
	scan.Findings = append(scan.Findings, Finding{
		Rule:     RuleUnwrapCall,
		Category: CategoryReliability,
		Severity: agent.SeverityWarning,
		Message:  "call to " + method + " panics on the error path",
		Path:     scan.Path,
		Line:     lineOf(node),
	})
}

// isRustPub reports whether an item starts with a visibility modifier.
func isRustPub(node *tree_sitter.Node) bool {
	first := node.Child(0)
	if first == nil {
		return false
	}
	return first.Kind() == "visibility_modifier"
}
