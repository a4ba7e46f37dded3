package codescan

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// tsInspector collects functions, imports, and findings from TypeScript
// source files.
type tsInspector struct {
	secrets policy.Secrets
}

func (in *tsInspector) Inspect(root *tree_sitter.Node, source []byte, scan *FileScan) {
	cursor := root.Walk()
	defer cursor.Close()

	in.walk(cursor, source, scan)
}

func (in *tsInspector) walk(cursor *tree_sitter.TreeCursor, source []byte, scan *FileScan) {
	node := cursor.Node()
	kind := node.Kind()

	switch kind {
	case "function_declaration", "method_definition":
		if fn := tsFunction(node, source); fn != nil {
			scan.Functions = append(scan.Functions, *fn)
		}

	case "lexical_declaration":
		scan.Functions = append(scan.Functions, tsArrowFunctions(node, source)...)
		in.checkDeclaratorCredentials(node, source, scan)

	case "variable_declaration":
		// The `var` form; let and const parse as lexical_declaration.
		scan.Findings = append(scan.Findings, Finding{
			Rule:     RuleVarDeclaration,
			Category: CategoryQuality,
			Severity: agent.SeverityInfo,
			Message:  "var declaration is function-scoped; use let or const",
			Path:     scan.Path,
			Line:     lineOf(node),
		})
		in.checkDeclaratorCredentials(node, source, scan)

	case "import_statement":
		if imp := tsImport(node, source); imp != nil {
			scan.Imports = append(scan.Imports, *imp)
		}

	case "call_expression":
		checkTSCall(node, source, scan)
	}

	if cursor.GotoFirstChild() {
		in.walk(cursor, source, scan)
		for cursor.GotoNextSibling() {
			in.walk(cursor, source, scan)
		}
		cursor.GotoParent()
	}
}

func tsFunction(node *tree_sitter.Node, source []byte) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Utf8Text(source)
	return &Function{
		Name:      name,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Exported:  isTSExported(node),
	}
}

// tsArrowFunctions records `const f = () => ...` declarations as functions so
// the size rules see them.
func tsArrowFunctions(node *tree_sitter.Node, source []byte) []Function {
	var fns []Function
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil || valueNode.Kind() != "arrow_function" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		fns = append(fns, Function{
			Name:      nameNode.Utf8Text(source),
			StartLine: lineOf(child),
			EndLine:   endLineOf(child),
			Exported:  isTSExported(node),
		})
	}
	return fns
}

func tsImport(node *tree_sitter.Node, source []byte) *Import {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "string" {
				sourceNode = child
				break
			}
		}
	}
	if sourceNode == nil {
		return nil
	}

	path := trimQuotes(sourceNode.Utf8Text(source))
	if path == "" {
		return nil
	}

	return &Import{Path: path, Line: lineOf(node)}
}

// checkDeclaratorCredentials flags declarators that bind a string literal to a
// name matching the credential keyword list.
func (in *tsInspector) checkDeclaratorCredentials(node *tree_sitter.Node, source []byte, scan *FileScan) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		if _, ok := stringLiteralText(valueNode, source, "string", "template_string"); !ok {
			continue
		}
		name := nameNode.Utf8Text(source)
		if in.secrets.Matches(name) {
			scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(child)))
		}
	}
}

func checkTSCall(node *tree_sitter.Node, source []byte, scan *FileScan) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "identifier" {
		return
	}
	if fnNode.Utf8Text(source) != "eval" {
		return
	}
	scan.Findings = append(scan.Findings, Finding{
		Rule:     RuleDangerousCall,
		Category: CategorySecurity,
		Severity: agent.SeverityError,
		Message:  "call to eval executes attacker-controllable input",
		Path:     scan.Path,
		Line:     lineOf(node),
	})
}

// isTSExported reports whether a declaration sits directly under an
// export_statement.
func isTSExported(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	return parent.Kind() == "export_statement"
}
