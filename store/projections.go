// ABOUTME: Read-only projections over the deal collection
// ABOUTME: Stage and pipeline filters, value totals, search and the kanban board layout
package store

import (
	"strings"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
)

// DealsByStage returns the deals currently in stage, in insertion order.
func (s *DealStore) DealsByStage(stage models.StageID) []models.Deal {
	return FilterByStage(s.Deals(), stage)
}

// DealsByPipeline returns the deals currently in pipeline, in insertion order.
func (s *DealStore) DealsByPipeline(pipeline models.PipelineID) []models.Deal {
	return FilterByPipeline(s.Deals(), pipeline)
}

// TotalValueByStage sums deal values in stage. Unknown stages total zero.
func (s *DealStore) TotalValueByStage(stage models.StageID) float64 {
	return StageTotal(s.Deals(), stage)
}

// TotalValueByPipeline sums deal values in pipeline.
func (s *DealStore) TotalValueByPipeline(pipeline models.PipelineID) float64 {
	return PipelineTotal(s.Deals(), pipeline)
}

// Search returns deals whose name or company contains term, case-insensitively.
// An empty term matches everything.
func (s *DealStore) Search(term string) []models.Deal {
	return Search(s.Deals(), term)
}

// Board returns the full kanban layout from a single consistent read.
func (s *DealStore) Board() Board {
	return BuildBoard(s.Deals())
}

// FilterByStage keeps the deals in stage.
func FilterByStage(deals []models.Deal, stage models.StageID) []models.Deal {
	out := []models.Deal{}
	for _, d := range deals {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out
}

// FilterByPipeline keeps the deals in pipeline.
func FilterByPipeline(deals []models.Deal, pipeline models.PipelineID) []models.Deal {
	out := []models.Deal{}
	for _, d := range deals {
		if d.Pipeline == pipeline {
			out = append(out, d)
		}
	}
	return out
}

// StageTotal sums values of deals in stage.
func StageTotal(deals []models.Deal, stage models.StageID) float64 {
	var total float64
	for _, d := range deals {
		if d.Stage == stage {
			total += d.Value
		}
	}
	return total
}

// PipelineTotal is the sum of the stage totals of every stage in pipeline, so the
// pipeline figure always equals the sum of its columns.
func PipelineTotal(deals []models.Deal, pipeline models.PipelineID) float64 {
	var total float64
	for _, st := range catalog.StagesIn(pipeline) {
		total += StageTotal(deals, st.ID)
	}
	return total
}

// Search matches term against name and company.
func Search(deals []models.Deal, term string) []models.Deal {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := []models.Deal{}
	for _, d := range deals {
		if needle == "" ||
			strings.Contains(strings.ToLower(d.Name), needle) ||
			strings.Contains(strings.ToLower(d.Company), needle) {
			out = append(out, d)
		}
	}
	return out
}

// Board is the kanban layout: every pipeline, every stage, its deals and totals.
type Board struct {
	Pipelines []PipelineColumn `json:"pipelines"`
	Total     float64          `json:"total"`
	Count     int              `json:"count"`
}

// PipelineColumn groups the stage columns of one pipeline.
type PipelineColumn struct {
	Pipeline catalog.Pipeline `json:"pipeline"`
	Total    float64          `json:"total"`
	Stages   []StageColumn    `json:"stages"`
}

// StageColumn is one kanban column.
type StageColumn struct {
	Stage catalog.Stage `json:"stage"`
	Total float64       `json:"total"`
	Deals []models.Deal `json:"deals"`
}

// BuildBoard lays deals out in catalog order. Empty stages still get a column.
func BuildBoard(deals []models.Deal) Board {
	var b Board
	for _, p := range catalog.Pipelines() {
		col := PipelineColumn{Pipeline: p}
		for _, st := range catalog.StagesIn(p.ID) {
			sc := StageColumn{Stage: st, Deals: FilterByStage(deals, st.ID)}
			for _, d := range sc.Deals {
				sc.Total += d.Value
			}
			col.Total += sc.Total
			b.Count += len(sc.Deals)
			col.Stages = append(col.Stages, sc)
		}
		b.Total += col.Total
		b.Pipelines = append(b.Pipelines, col)
	}
	return b
}

// Column returns the stage column for id, if the board has one.
func (b Board) Column(id models.StageID) (StageColumn, bool) {
	for _, p := range b.Pipelines {
		for _, sc := range p.Stages {
			if sc.Stage.ID == id {
				return sc, true
			}
		}
	}
	return StageColumn{}, false
}
