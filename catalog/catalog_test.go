// ABOUTME: Tests for the stage and pipeline catalog
// ABOUTME: Checks lookups, ordering and the one-pipeline-per-stage invariant
package catalog

import (
	"errors"
	"testing"

	"github.com/harperreed/dealboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageInfo(t *testing.T) {
	tests := []struct {
		stage    models.StageID
		pipeline models.PipelineID
		name     string
	}{
		{models.StagePotential, models.PipelinePreApproval, "Potential Project"},
		{models.StageAssessment, models.PipelinePreApproval, "Assessment/Site Visit"},
		{models.StageQuoting, models.PipelineQuoting, "Quoting Stage"},
		{models.StageWaitingApproval, models.PipelineQuoting, "Waiting PO/Approval"},
		{models.StageInProgress, models.PipelineActive, "In Progress"},
		{models.StageCompleted, models.PipelinePostWork, "Completed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			info, err := StageInfo(tt.stage)
			require.NoError(t, err)
			assert.Equal(t, tt.stage, info.ID)
			assert.Equal(t, tt.pipeline, info.Pipeline)
			assert.Equal(t, tt.name, info.Name)
			assert.NotEmpty(t, info.Color)
		})
	}
}

func TestStageInfoUnknown(t *testing.T) {
	for _, id := range []models.StageID{"", "emergency", "site_visit", "closed", "POTENTIAL"} {
		_, err := StageInfo(id)
		require.Error(t, err, "stage %q", id)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	}
}

func TestEveryStageMapsToExactlyOnePipeline(t *testing.T) {
	seen := map[models.StageID]models.PipelineID{}
	for _, p := range Pipelines() {
		for _, sid := range p.Stages {
			_, dup := seen[sid]
			assert.False(t, dup, "stage %s appears twice", sid)
			seen[sid] = p.ID
		}
	}

	for _, s := range Stages() {
		assert.Equal(t, seen[s.ID], s.Pipeline)
	}
	assert.Len(t, seen, len(Stages()))
}

func TestDefaultStage(t *testing.T) {
	assert.Equal(t, models.StagePotential, DefaultStage())

	p, ok := PipelineOf(DefaultStage())
	require.True(t, ok)
	assert.Equal(t, DefaultPipeline, p)
}

func TestPipelineInfo(t *testing.T) {
	p, err := PipelineInfo(models.PipelineQuoting)
	require.NoError(t, err)
	assert.Equal(t, "Quoting Stage", p.Name)
	assert.Equal(t, []models.StageID{models.StageQuoting, models.StageWaitingApproval}, p.Stages)

	_, err = PipelineInfo("sales")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPipelinesReturnsCopies(t *testing.T) {
	ps := Pipelines()
	ps[0].Stages[0] = "mutated"
	ps[0].Name = "mutated"

	again := Pipelines()
	assert.Equal(t, models.StagePotential, again[0].Stages[0])
	assert.Equal(t, "Pre-Approval Admin", again[0].Name)
}

func TestStagesIn(t *testing.T) {
	stages := StagesIn(models.PipelinePreApproval)
	require.Len(t, stages, 5)
	assert.Equal(t, models.StagePotential, stages[0].ID)
	assert.Equal(t, models.StageAssessment, stages[4].ID)

	assert.Nil(t, StagesIn("nope"))
}

func TestNeighbor(t *testing.T) {
	next, ok := Neighbor(models.StageAssessment, 1)
	require.True(t, ok)
	assert.Equal(t, models.StageQuoting, next)

	prev, ok := Neighbor(models.StagePotential, -1)
	require.True(t, ok)
	assert.Equal(t, models.StagePotential, prev)

	last, ok := Neighbor(models.StageCompleted, 3)
	require.True(t, ok)
	assert.Equal(t, models.StageCompleted, last)

	_, ok = Neighbor("closed", 1)
	assert.False(t, ok)
}

func TestIsStageAndIsPipeline(t *testing.T) {
	assert.True(t, IsStage(models.StageWorkRequested))
	assert.False(t, IsStage("emergency"))
	assert.True(t, IsPipeline(models.PipelinePostWork))
	assert.False(t, IsPipeline("closed"))
	assert.Len(t, StageIDs(), 9)
}
