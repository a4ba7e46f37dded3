package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoadsEmbeddedValues(t *testing.T) {
	p := Default()

	assert.Equal(t, 100, p.Score.Base)
	assert.Equal(t, 10, p.Score.Error)
	assert.Equal(t, 3, p.Score.Warning)
	assert.Equal(t, 1, p.Score.Info)
	assert.InDelta(t, 2.0, p.Score.SecurityMultiplier, 0.001)
	assert.Contains(t, p.Secrets.Keywords, "password")
	assert.Equal(t, 80, p.Iteration.QualityThreshold)
}

func TestWeightBySeverity(t *testing.T) {
	s := Default().Score

	assert.Equal(t, 10, s.Weight("error", ""))
	assert.Equal(t, 3, s.Weight("warning", "style"))
	assert.Equal(t, 1, s.Weight("info", ""))
}

func TestWeightScalesSecurityFindings(t *testing.T) {
	s := Default().Score

	assert.Equal(t, 20, s.Weight("error", "security"))
	assert.Equal(t, 6, s.Weight("warning", "security"))
}

func TestWeightUnknownSeverityIsZero(t *testing.T) {
	s := Default().Score

	assert.Equal(t, 0, s.Weight("critical", "security"))
	assert.Equal(t, 0, s.Weight("", ""))
}

func TestSecretsMatches(t *testing.T) {
	sec := Default().Secrets

	assert.True(t, sec.Matches("dbPassword"))
	assert.True(t, sec.Matches("AWS_SECRET_ACCESS_KEY"))
	assert.True(t, sec.Matches("MyAPIKey"))
	assert.False(t, sec.Matches("userName"))
	assert.False(t, sec.Matches("timeout"))
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	p, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadFileOverlaysPartialFragment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	fragment := "score:\n  error: 25\nreview:\n  maxFunctionLines: 40\n"
	require.NoError(t, os.WriteFile(path, []byte(fragment), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 25, p.Score.Error)
	assert.Equal(t, 40, p.Review.MaxFunctionLines)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, p.Score.Warning)
	assert.Equal(t, 100, p.Score.Base)
	assert.Contains(t, p.Secrets.Keywords, "token")
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("score: [not a map"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
