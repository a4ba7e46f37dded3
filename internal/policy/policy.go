// Package policy holds the tunable rules applied during a collaboration
// run: severity weights for quality scoring, keyword lists for credential
// detection, and size limits enforced by review checks. Defaults are
// embedded in the binary; callers overlay site-specific values from a
// YAML file.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultsYAML is embedded at build time and must parse.
//
//go:embed defaults.yml
var defaultsYAML []byte

// Policy is the full rule set for one run. Start from Default and overlay
// site-specific values with LoadFile; the zero value scores everything
// at zero and matches nothing.
type Policy struct {
	Score     Score        `yaml:"score"`
	Secrets   Secrets      `yaml:"secrets"`
	Review    ReviewLimits `yaml:"review"`
	Iteration Iteration    `yaml:"iteration"`
}

// Score controls how insight severities convert into a quality score.
// Scoring starts at Base and subtracts the weight of every insight.
type Score struct {
	Base               int     `yaml:"base"`
	Error              int     `yaml:"error"`
	Warning            int     `yaml:"warning"`
	Info               int     `yaml:"info"`
	SecurityMultiplier float64 `yaml:"securityMultiplier"`
}

// Weight returns the deduction for one insight. Security-category
// insights are scaled by SecurityMultiplier; unknown severities weigh
// nothing.
func (s Score) Weight(severity, category string) int {
	var w int
	switch severity {
	case "error":
		w = s.Error
	case "warning":
		w = s.Warning
	case "info":
		w = s.Info
	default:
		return 0
	}
	if category == "security" && s.SecurityMultiplier > 0 {
		w = int(float64(w) * s.SecurityMultiplier)
	}
	return w
}

// Secrets lists identifier fragments that mark a string assignment as a
// hardcoded credential.
type Secrets struct {
	Keywords []string `yaml:"keywords"`
}

// Matches reports whether name contains any credential keyword,
// case-insensitively.
func (s Secrets) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range s.Keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ReviewLimits holds the size bounds the review checks enforce.
type ReviewLimits struct {
	MaxFunctionLines int `yaml:"maxFunctionLines"`
	MaxFileLines     int `yaml:"maxFileLines"`
}

// Iteration holds defaults for iterative runs.
type Iteration struct {
	// QualityThreshold is the score at which an iterative run may stop.
	QualityThreshold int `yaml:"qualityThreshold"`
}

// Default returns the embedded built-in policy.
func Default() Policy {
	var p Policy
	if err := yaml.Unmarshal(defaultsYAML, &p); err != nil {
		panic(fmt.Sprintf("policy: parse embedded defaults: %v", err))
	}
	return p
}

// LoadFile overlays the YAML fragment at path on top of the defaults.
// A missing file returns the defaults with no error; scalar fields not
// present in the fragment keep their default values, list fields are
// replaced wholesale when present.
func LoadFile(path string) (Policy, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("policy: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return p, nil
}
