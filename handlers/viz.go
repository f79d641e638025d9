// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealboard/store"
	"github.com/harperreed/dealboard/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	deals *store.DealStore
	feed  *store.NotificationStore
}

func NewVizHandlers(deals *store.DealStore, feed *store.NotificationStore) *VizHandlers {
	return &VizHandlers{deals: deals, feed: feed}
}

type GenerateGraphInput struct {
	Type   string `json:"type" jsonschema:"Graph type: pipeline or deal"`
	DealID string `json:"deal_id,omitempty" jsonschema:"Deal ID (required for deal graphs)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	generator := viz.NewGraphGenerator(h.deals)

	var dot string
	var err error
	switch strings.ToLower(input.Type) {
	case "", "pipeline":
		input.Type = "pipeline"
		dot, err = generator.GeneratePipelineGraph(ctx)
	case "deal":
		if input.DealID == "" {
			return nil, GenerateGraphOutput{}, fmt.Errorf("deal_id is required for deal graphs")
		}
		dot, err = generator.GenerateDealGraph(ctx, input.DealID)
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("invalid graph type: %s (valid: pipeline, deal)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{GraphType: input.Type, DOTSource: dot}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text       string  `json:"text"`
	TotalDeals int     `json:"total_deals"`
	TotalValue float64 `json:"total_value"`
	StaleDeals int     `json:"stale_deals"`
	OpenTasks  int     `json:"open_tasks"`
}

func (h *VizHandlers) Dashboard(_ context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats := viz.GenerateDashboardStats(h.deals.Board(), h.feed.UnreadCount(), time.Now())
	return nil, DashboardOutput{
		Text:       viz.RenderDashboard(stats),
		TotalDeals: stats.TotalDeals,
		TotalValue: stats.TotalValue,
		StaleDeals: len(stats.StaleDeals),
		OpenTasks:  stats.OpenTasks,
	}, nil
}
