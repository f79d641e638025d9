// ABOUTME: Static stage and pipeline reference data
// ABOUTME: Validates stage ids and maps each stage to exactly one pipeline
package catalog

import (
	"fmt"

	"github.com/harperreed/dealboard/models"
)

// Pipeline describes a group of stages.
type Pipeline struct {
	ID     models.PipelineID `json:"id"`
	Name   string            `json:"name"`
	Color  string            `json:"color"`
	Stages []models.StageID  `json:"stages"`
}

// Stage describes a single position within a pipeline.
type Stage struct {
	ID       models.StageID    `json:"id"`
	Name     string            `json:"name"`
	Color    string            `json:"color"`
	Pipeline models.PipelineID `json:"pipeline"`
}

// The tables below are the only source of truth. Nothing mutates them after init.
var pipelines = []Pipeline{
	{
		ID:    models.PipelinePreApproval,
		Name:  "Pre-Approval Admin",
		Color: "#E5F6FD",
		Stages: []models.StageID{
			models.StagePotential,
			models.StageQuoteRequested,
			models.StageWorkRequested,
			models.StagePlanning,
			models.StageAssessment,
		},
	},
	{
		ID:     models.PipelineQuoting,
		Name:   "Quoting Stage",
		Color:  "#FDF6E5",
		Stages: []models.StageID{models.StageQuoting, models.StageWaitingApproval},
	},
	{
		ID:     models.PipelineActive,
		Name:   "Active Projects",
		Color:  "#E5FDF6",
		Stages: []models.StageID{models.StageInProgress},
	},
	{
		ID:     models.PipelinePostWork,
		Name:   "Post Work",
		Color:  "#F6E5FD",
		Stages: []models.StageID{models.StageCompleted},
	},
}

var stageMeta = map[models.StageID]struct{ name, color string }{
	models.StagePotential:       {"Potential Project", "#E8F5E9"},
	models.StageQuoteRequested:  {"Quote Requested", "#FFF3E0"},
	models.StageWorkRequested:   {"Work Requested (Emergency)", "#FFEBEE"},
	models.StagePlanning:        {"Planning", "#E3F2FD"},
	models.StageAssessment:      {"Assessment/Site Visit", "#F3E5F5"},
	models.StageQuoting:         {"Quoting Stage", "#FFF8E1"},
	models.StageWaitingApproval: {"Waiting PO/Approval", "#E0F7FA"},
	models.StageInProgress:      {"In Progress", "#E8F5E9"},
	models.StageCompleted:       {"Completed", "#F1F8E9"},
}

var (
	stageIndex    = map[models.StageID]Stage{}
	pipelineIndex = map[models.PipelineID]int{}
	stageOrder    []models.StageID
)

func init() {
	for i, p := range pipelines {
		pipelineIndex[p.ID] = i
		for _, id := range p.Stages {
			meta, ok := stageMeta[id]
			if !ok {
				panic(fmt.Sprintf("catalog: stage %q has no metadata", id))
			}
			if _, dup := stageIndex[id]; dup {
				panic(fmt.Sprintf("catalog: stage %q belongs to more than one pipeline", id))
			}
			stageIndex[id] = Stage{ID: id, Name: meta.name, Color: meta.color, Pipeline: p.ID}
			stageOrder = append(stageOrder, id)
		}
	}
	if len(stageIndex) != len(stageMeta) {
		panic("catalog: stage metadata lists stages outside any pipeline")
	}
}

// DefaultPipeline is where new deals land when no stage is given.
const DefaultPipeline = models.PipelinePreApproval

// DefaultStage returns the first stage of the default pipeline.
func DefaultStage() models.StageID {
	return pipelines[pipelineIndex[DefaultPipeline]].Stages[0]
}

// StageInfo looks up a stage. Unknown ids return a not-found error.
func StageInfo(id models.StageID) (Stage, error) {
	s, ok := stageIndex[id]
	if !ok {
		return Stage{}, &models.NotFoundError{Kind: "stage", ID: string(id)}
	}
	return s, nil
}

// PipelineInfo looks up a pipeline. Unknown ids return a not-found error.
func PipelineInfo(id models.PipelineID) (Pipeline, error) {
	i, ok := pipelineIndex[id]
	if !ok {
		return Pipeline{}, &models.NotFoundError{Kind: "pipeline", ID: string(id)}
	}
	return clonePipeline(pipelines[i]), nil
}

// IsStage reports whether id is a catalog stage.
func IsStage(id models.StageID) bool {
	_, ok := stageIndex[id]
	return ok
}

// IsPipeline reports whether id is a catalog pipeline.
func IsPipeline(id models.PipelineID) bool {
	_, ok := pipelineIndex[id]
	return ok
}

// PipelineOf returns the pipeline a stage belongs to.
func PipelineOf(id models.StageID) (models.PipelineID, bool) {
	s, ok := stageIndex[id]
	return s.Pipeline, ok
}

// Pipelines returns all pipelines in display order.
func Pipelines() []Pipeline {
	out := make([]Pipeline, len(pipelines))
	for i, p := range pipelines {
		out[i] = clonePipeline(p)
	}
	return out
}

// Stages returns all stages in display order (pipeline order, then stage order).
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	for i, id := range stageOrder {
		out[i] = stageIndex[id]
	}
	return out
}

// StagesIn returns the stages of one pipeline in display order.
func StagesIn(id models.PipelineID) []Stage {
	i, ok := pipelineIndex[id]
	if !ok {
		return nil
	}
	out := make([]Stage, 0, len(pipelines[i].Stages))
	for _, sid := range pipelines[i].Stages {
		out = append(out, stageIndex[sid])
	}
	return out
}

// Neighbor returns the stage offset positions away in display order, clamped to the ends.
func Neighbor(id models.StageID, offset int) (models.StageID, bool) {
	for i, sid := range stageOrder {
		if sid != id {
			continue
		}
		j := i + offset
		if j < 0 {
			j = 0
		}
		if j >= len(stageOrder) {
			j = len(stageOrder) - 1
		}
		return stageOrder[j], true
	}
	return "", false
}

// StageIDs lists every valid stage id, for error messages and help text.
func StageIDs() []string {
	out := make([]string, len(stageOrder))
	for i, id := range stageOrder {
		out[i] = string(id)
	}
	return out
}

func clonePipeline(p Pipeline) Pipeline {
	p.Stages = append([]models.StageID(nil), p.Stages...)
	return p
}
