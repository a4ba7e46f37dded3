package codescan

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// pyDangerousCalls are callables whose presence is flagged as a security
// finding. eval and exec run arbitrary strings; os.system shells out without
// argument quoting.
var pyDangerousCalls = map[string]bool{
	"eval":      true,
	"exec":      true,
	"os.system": true,
}

// pyInspector collects functions, imports, and findings from Python source
// files.
type pyInspector struct {
	secrets policy.Secrets
}

func (in *pyInspector) Inspect(root *tree_sitter.Node, source []byte, scan *FileScan) {
	cursor := root.Walk()
	defer cursor.Close()

	in.walk(cursor, source, scan)
}

func (in *pyInspector) walk(cursor *tree_sitter.TreeCursor, source []byte, scan *FileScan) {
	node := cursor.Node()
	kind := node.Kind()

	switch kind {
	case "function_definition":
		if fn := pyFunction(node, source); fn != nil {
			scan.Functions = append(scan.Functions, *fn)
		}

	case "import_statement":
		scan.Imports = append(scan.Imports, pyImports(node, source)...)

	case "import_from_statement":
		if imp := pyFromImport(node, source); imp != nil {
			scan.Imports = append(scan.Imports, *imp)
		}

	case "assignment":
		in.checkAssignCredential(node, source, scan)

	case "call":
		checkPyCall(node, source, scan)

	case "except_clause":
		checkBareExcept(node, scan)
	}

	if cursor.GotoFirstChild() {
		in.walk(cursor, source, scan)
		for cursor.GotoNextSibling() {
			in.walk(cursor, source, scan)
		}
		cursor.GotoParent()
	}
}

func pyFunction(node *tree_sitter.Node, source []byte) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Utf8Text(source)
	return &Function{
		Name:      name,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Exported:  isPyExported(name),
	}
}

func pyImports(node *tree_sitter.Node, source []byte) []Import {
	var imports []Import
	// import_statement children: "import" keyword then dotted_name(s).
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "dotted_name" {
			moduleName := child.Utf8Text(source)
			if moduleName != "" {
				imports = append(imports, Import{Path: moduleName, Line: lineOf(node)})
			}
		}
	}
	return imports
}

func pyFromImport(node *tree_sitter.Node, source []byte) *Import {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		// Fall back: look for a dotted_name child.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "dotted_name" {
				moduleNode = child
				break
			}
		}
	}
	if moduleNode == nil {
		return nil
	}

	moduleName := moduleNode.Utf8Text(source)
	if moduleName == "" {
		return nil
	}

	return &Import{Path: moduleName, Line: lineOf(node)}
}

// checkAssignCredential flags `name = "literal"` assignments whose target
// matches the credential keyword list.
func (in *pyInspector) checkAssignCredential(node *tree_sitter.Node, source []byte, scan *FileScan) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	if left.Kind() != "identifier" || right.Kind() != "string" {
		return
	}
	name := left.Utf8Text(source)
	if in.secrets.Matches(name) {
		scan.Findings = append(scan.Findings, credentialFinding(name, scan.Path, lineOf(node)))
	}
}

func checkPyCall(node *tree_sitter.Node, source []byte, scan *FileScan) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	var callee string
	switch fnNode.Kind() {
	case "identifier", "attribute":
		callee = fnNode.Utf8Text(source)
	default:
		return
	}

	if !pyDangerousCalls[callee] {
		return
	}
	scan.Findings = append(scan.Findings, Finding{
		Rule:     RuleDangerousCall,
		Category: CategorySecurity,
		Severity: agent.SeverityError,
		Message:  "call to " + callee + " executes attacker-controllable input",
		Path:     scan.Path,
		Line:     lineOf(node),
	})
}

// checkBareExcept flags `except:` clauses that name no exception type and so
// swallow SystemExit and KeyboardInterrupt along with real errors.
func checkBareExcept(node *tree_sitter.Node, scan *FileScan) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "except", ":", "block", "comment":
			continue
		}
		return // clause names an exception type
	}
	scan.Findings = append(scan.Findings, Finding{
		Rule:     RuleBareExcept,
		Category: CategoryReliability,
		Severity: agent.SeverityWarning,
		Message:  "bare except catches every exception including SystemExit",
		Path:     scan.Path,
		Line:     lineOf(node),
	})
}

// isPyExported returns true for names without a leading underscore.
func isPyExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}
