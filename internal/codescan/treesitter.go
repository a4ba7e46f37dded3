package codescan

import (
	"bytes"
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// inspector walks a parsed tree-sitter AST and records language-specific
// functions, imports, and findings on the scan.
type inspector interface {
	Inspect(root *tree_sitter.Node, source []byte, scan *FileScan)
}

// TreeSitterScanner implements Scanner using tree-sitter grammars. A new
// tree-sitter parser is created per Scan call, so this type is safe for
// sequential use but individual Scan calls are not thread-safe.
type TreeSitterScanner struct {
	pol        policy.Policy
	languages  map[Language]*tree_sitter.Language
	inspectors map[Language]inspector
}

var _ Scanner = (*TreeSitterScanner)(nil)

// NewTreeSitterScanner creates a TreeSitterScanner with Go, TypeScript,
// Python, and Rust grammars registered. The policy supplies the credential
// keyword list and the size thresholds the rule findings are checked against.
func NewTreeSitterScanner(pol policy.Policy) *TreeSitterScanner {
	langs := map[Language]*tree_sitter.Language{
		LangGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
		LangTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
		LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
	}

	inspectors := map[Language]inspector{
		LangGo:         &goInspector{secrets: pol.Secrets},
		LangTypeScript: &tsInspector{secrets: pol.Secrets},
		LangPython:     &pyInspector{secrets: pol.Secrets},
		LangRust:       &rsInspector{secrets: pol.Secrets},
	}

	return &TreeSitterScanner{
		pol:        pol,
		languages:  langs,
		inspectors: inspectors,
	}
}

// Scan parses a single source file and collects its functions, imports, and
// rule findings.
func (s *TreeSitterScanner) Scan(_ context.Context, path string, source []byte, lang Language) (*FileScan, error) {
	tsLang, ok := s.languages[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	insp, ok := s.inspectors[lang]
	if !ok {
		return nil, fmt.Errorf("no inspector for language: %s", lang)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	scan := &FileScan{
		Path:     path,
		Language: lang,
		LOC:      countLOC(source),
	}
	insp.Inspect(tree.RootNode(), source, scan)
	s.applySizeRules(scan)

	return scan, nil
}

// applySizeRules appends findings for functions and files that exceed the
// review policy's size thresholds.
func (s *TreeSitterScanner) applySizeRules(scan *FileScan) {
	maxFn := s.pol.Review.MaxFunctionLines
	for _, fn := range scan.Functions {
		if maxFn > 0 && fn.Lines() > maxFn {
			scan.Findings = append(scan.Findings, Finding{
				Rule:     RuleLongFunction,
				Category: CategoryQuality,
				Severity: agent.SeverityWarning,
				Message:  fmt.Sprintf("function %s spans %d lines (limit %d)", fn.Name, fn.Lines(), maxFn),
				Path:     scan.Path,
				Line:     fn.StartLine,
			})
		}
	}
	if maxFile := s.pol.Review.MaxFileLines; maxFile > 0 && scan.LOC > maxFile {
		scan.Findings = append(scan.Findings, Finding{
			Rule:     RuleLongFile,
			Category: CategoryQuality,
			Severity: agent.SeverityInfo,
			Message:  fmt.Sprintf("file spans %d lines (limit %d)", scan.LOC, maxFile),
			Path:     scan.Path,
			Line:     1,
		})
	}
}

// SupportedLanguages returns the languages this scanner can handle.
func (s *TreeSitterScanner) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(s.languages))
	for l := range s.languages {
		langs = append(langs, l)
	}
	return langs
}

// Close is a no-op because parsers are created per Scan call.
func (s *TreeSitterScanner) Close() error {
	return nil
}

// countLOC counts the number of lines in source by counting newline bytes
// and adding one for the final line if the source is non-empty.
func countLOC(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	return bytes.Count(source, []byte{'\n'}) + 1
}

// lineOf returns the 1-based line a node starts on.
func lineOf(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLineOf returns the 1-based line a node ends on.
func endLineOf(node *tree_sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// stringLiteralText returns the unquoted text of a string literal node, or
// ("", false) when the node is not a plain string literal for the language.
func stringLiteralText(node *tree_sitter.Node, source []byte, kinds ...string) (string, bool) {
	if node == nil {
		return "", false
	}
	kind := node.Kind()
	for _, k := range kinds {
		if kind == k {
			text := node.Utf8Text(source)
			return trimQuotes(text), true
		}
	}
	return "", false
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// credentialFinding builds a hardcoded-credential finding for an identifier
// whose name matches the secrets keyword list and whose value is a string
// literal. The literal itself is never echoed into the message.
func credentialFinding(name, path string, line int) Finding {
	return Finding{
		Rule:     RuleHardcodedCredential,
		Category: CategorySecurity,
		Severity: agent.SeverityError,
		Message:  fmt.Sprintf("identifier %q is assigned a string literal and looks like a credential", name),
		Path:     path,
		Line:     line,
	}
}
