package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AdvanceForwardOnly(t *testing.T) {
	r := &Run{ID: "r1", Stage: StageCreated}

	for _, next := range []RunStage{StageExtracting, StageExtracted, StageEnriching, StageEnriched, StageSynthesizing, StageComplete} {
		require.NoError(t, r.Advance(next))
		assert.Equal(t, next, r.Stage)
	}
	assert.True(t, r.Terminal())
}

func TestRun_AdvanceBackwardRejected(t *testing.T) {
	r := &Run{ID: "r1", Stage: StageEnriching}
	err := r.Advance(StageExtracting)
	require.Error(t, err)
	assert.Equal(t, StageEnriching, r.Stage)
}

func TestRun_AdvanceSkipsAllowed(t *testing.T) {
	// Enrichment may be skipped entirely when there is nothing to enrich.
	r := &Run{ID: "r1", Stage: StageExtracted}
	require.NoError(t, r.Advance(StageSynthesizing))
}

func TestRun_FailFromAnyNonTerminalStage(t *testing.T) {
	r := &Run{ID: "r1", Stage: StageExtracting}
	require.NoError(t, r.Fail("ExtractionFailed"))

	assert.Equal(t, StageFailed, r.Stage)
	assert.Equal(t, StageExtracting, r.FailedStage)
	assert.Equal(t, "ExtractionFailed", r.FailureReason)
	assert.True(t, r.Terminal())

	assert.Error(t, r.Advance(StageExtracted))
	assert.Error(t, r.Fail("again"))
}
