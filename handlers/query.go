// ABOUTME: Read-only deal query tool handlers
// ABOUTME: Implements search_deals and pipeline_totals over the deal store projections
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryHandlers struct {
	deals *store.DealStore
}

func NewQueryHandlers(deals *store.DealStore) *QueryHandlers {
	return &QueryHandlers{deals: deals}
}

type SearchDealsInput struct {
	Query    string `json:"query,omitempty" jsonschema:"Case-insensitive match against deal name and company"`
	Stage    string `json:"stage,omitempty" jsonschema:"Only deals in this stage"`
	Pipeline string `json:"pipeline,omitempty" jsonschema:"Only deals in this pipeline"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 50)"`
}

type SearchDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
	Total float64      `json:"total_value"`
}

func (h *QueryHandlers) SearchDeals(_ context.Context, _ *mcp.CallToolRequest, input SearchDealsInput) (*mcp.CallToolResult, SearchDealsOutput, error) {
	if input.Limit == 0 {
		input.Limit = 50
	}
	if input.Stage != "" && !catalog.IsStage(models.StageID(input.Stage)) {
		return nil, SearchDealsOutput{}, fmt.Errorf("invalid stage: %s", input.Stage)
	}
	if input.Pipeline != "" && !catalog.IsPipeline(models.PipelineID(input.Pipeline)) {
		return nil, SearchDealsOutput{}, fmt.Errorf("invalid pipeline: %s", input.Pipeline)
	}

	deals := h.deals.Search(input.Query)
	if input.Stage != "" {
		deals = store.FilterByStage(deals, models.StageID(input.Stage))
	}
	if input.Pipeline != "" {
		deals = store.FilterByPipeline(deals, models.PipelineID(input.Pipeline))
	}

	out := SearchDealsOutput{Deals: make([]DealOutput, 0, len(deals))}
	for _, d := range deals {
		out.Total += d.Value
		if len(out.Deals) < input.Limit {
			out.Deals = append(out.Deals, dealToOutput(d))
		}
	}
	out.Count = len(deals)
	return nil, out, nil
}

type PipelineTotalsInput struct {
	Pipeline string `json:"pipeline,omitempty" jsonschema:"Limit to one pipeline"`
}

type StageTotalOutput struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type PipelineTotalOutput struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Total  float64            `json:"total"`
	Stages []StageTotalOutput `json:"stages"`
}

type PipelineTotalsOutput struct {
	Pipelines []PipelineTotalOutput `json:"pipelines"`
	Total     float64               `json:"total"`
	Count     int                   `json:"count"`
}

func (h *QueryHandlers) PipelineTotals(_ context.Context, _ *mcp.CallToolRequest, input PipelineTotalsInput) (*mcp.CallToolResult, PipelineTotalsOutput, error) {
	if input.Pipeline != "" && !catalog.IsPipeline(models.PipelineID(input.Pipeline)) {
		return nil, PipelineTotalsOutput{}, fmt.Errorf("invalid pipeline: %s", input.Pipeline)
	}

	board := h.deals.Board()
	out := PipelineTotalsOutput{Pipelines: []PipelineTotalOutput{}}
	for _, col := range board.Pipelines {
		if input.Pipeline != "" && string(col.Pipeline.ID) != input.Pipeline {
			continue
		}
		p := PipelineTotalOutput{ID: string(col.Pipeline.ID), Name: col.Pipeline.Name, Total: col.Total}
		for _, sc := range col.Stages {
			p.Stages = append(p.Stages, StageTotalOutput{
				ID:    string(sc.Stage.ID),
				Name:  sc.Stage.Name,
				Count: len(sc.Deals),
				Total: sc.Total,
			})
			out.Count += len(sc.Deals)
		}
		out.Total += p.Total
		out.Pipelines = append(out.Pipelines, p)
	}
	return nil, out, nil
}
