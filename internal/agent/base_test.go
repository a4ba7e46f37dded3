package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseAgent_RunNormalizesSeverity(t *testing.T) {
	ag := NewBaseAgent("Normalizer", func(_ context.Context, _ ExecutionContext) ([]Insight, error) {
		return []Insight{
			NewInsight(SeverityError, "real problem"),
			NewInsight(Severity("catastrophic"), "made-up severity"),
		}, nil
	})
	assert.Equal(t, "Normalizer", ag.Name())

	insights, err := ag.Run(context.Background(), NewExecutionContext("req-1", nil))
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, SeverityError, insights[0].Severity)
	assert.Equal(t, SeverityInfo, insights[1].Severity, "unknown severity downgrades to info")
}

func TestBaseAgent_RunPropagatesError(t *testing.T) {
	boom := errors.New("scan exploded")
	ag := NewBaseAgent("Failing", func(_ context.Context, _ ExecutionContext) ([]Insight, error) {
		return nil, boom
	})

	_, err := ag.Run(context.Background(), NewExecutionContext("req-2", nil))
	require.ErrorIs(t, err, boom)
}

func TestBaseAgent_MissingRunFunc(t *testing.T) {
	ag := NewBaseAgent("Hollow", nil)

	_, err := ag.Run(context.Background(), NewExecutionContext("req-3", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hollow")
}
