// Package codescan parses source files with tree-sitter and reduces them to
// the facts the review agents care about: declared functions, import
// specifiers, and rule findings such as hardcoded credentials or oversized
// functions. It deliberately stops short of interpreting the findings; weighing
// them into scores and verdicts is the agents' job.
package codescan

import (
	"context"

	"github.com/dusk-indust/convene/internal/agent"
)

// Language identifies a source language supported by the scanner.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// extToLanguage maps file extensions to scanner languages.
var extToLanguage = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".py":  LangPython,
	".rs":  LangRust,
}

// DetectLanguage reports the language for a file extension such as ".py".
// The second return value is false for extensions the scanner does not handle.
func DetectLanguage(ext string) (Language, bool) {
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// ParseLanguage reports the Language for a configuration name such as "go"
// or "typescript". The second return value is false for unknown names.
func ParseLanguage(name string) (Language, bool) {
	switch Language(name) {
	case LangGo, LangTypeScript, LangPython, LangRust:
		return Language(name), true
	}
	return "", false
}

// Rule identifiers attached to findings. Agents filter on these rather than
// on message text.
const (
	RuleHardcodedCredential = "hardcoded-credential"
	RuleDangerousCall       = "dangerous-call"
	RuleUnsafeBlock         = "unsafe-block"
	RulePanicCall           = "panic-call"
	RuleUnwrapCall          = "unwrap-call"
	RuleBareExcept          = "bare-except"
	RuleVarDeclaration      = "var-declaration"
	RuleLongFunction        = "long-function"
	RuleLongFile            = "long-file"
)

// Finding categories. They line up with the score policy's category names, so
// a security finding is weighted heavier than a quality one.
const (
	CategorySecurity    = "security"
	CategoryQuality     = "quality"
	CategoryReliability = "reliability"
)

// Finding is a single rule violation located in a source file.
type Finding struct {
	Rule     string         `json:"rule"`
	Category string         `json:"category"`
	Severity agent.Severity `json:"severity"`
	Message  string         `json:"message"`
	Path     string         `json:"path"`
	Line     int            `json:"line"` // 1-based
}

// Function is a function or method declaration with its line span.
type Function struct {
	Name      string `json:"name"`
	StartLine int    `json:"startLine"` // 1-based
	EndLine   int    `json:"endLine"`
	Exported  bool   `json:"exported"`
}

// Lines returns the number of source lines the declaration spans.
func (f Function) Lines() int {
	return f.EndLine - f.StartLine + 1
}

// Import is a raw import specifier as written in the source, before any
// resolution to repository files.
type Import struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// FileScan is the scanner's output for one source file.
type FileScan struct {
	Path      string     `json:"path"` // repo-relative
	Language  Language   `json:"language"`
	LOC       int        `json:"loc"`
	Functions []Function `json:"functions,omitempty"`
	Imports   []Import   `json:"imports,omitempty"`
	Findings  []Finding  `json:"findings,omitempty"`
}

// Scanner turns source text into a FileScan.
type Scanner interface {
	// Scan parses a single file. The path is recorded on the result and its
	// findings; it is not read from disk.
	Scan(ctx context.Context, path string, source []byte, lang Language) (*FileScan, error)

	// SupportedLanguages returns the languages this scanner can handle.
	SupportedLanguages() []Language

	// Close releases parser resources.
	Close() error
}
