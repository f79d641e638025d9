// ABOUTME: MCP prompt handlers for reusable pipeline review templates
// ABOUTME: Provides pipeline-review and deal-analysis prompts built from live store data
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/harperreed/dealboard/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	deals *store.DealStore
	now   func() time.Time
}

func NewPromptHandlers(deals *store.DealStore) *PromptHandlers {
	return &PromptHandlers{deals: deals, now: time.Now}
}

// Prompts lists the templates GetPrompt can render.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "pipeline-review",
			Description: "Review every pipeline: totals per stage, stale deals and open tasks",
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze one deal and suggest next steps",
			Arguments: []*mcp.PromptArgument{
				{Name: "deal_id", Description: "Deal ID to analyze", Required: true},
			},
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(_ context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "pipeline-review":
		return h.getPipelineReviewPrompt()
	case "deal-analysis":
		return h.getDealAnalysisPrompt(request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getPipelineReviewPrompt() (*mcp.GetPromptResult, error) {
	stats := viz.GenerateDashboardStats(h.deals.Board(), 0, h.now())

	var promptText strings.Builder
	promptText.WriteString("Please review the current sales pipelines:\n\n")
	for _, p := range stats.Pipelines {
		promptText.WriteString(fmt.Sprintf("%s: %d deal(s), $%.2f\n", p.Name, p.Count, p.Total))
		for _, s := range p.Stages {
			promptText.WriteString(fmt.Sprintf("  - %s: %d deal(s), $%.2f\n", s.Name, s.Count, s.Total))
		}
	}
	promptText.WriteString(fmt.Sprintf("\nTotal: %d deal(s), $%.2f\n", stats.TotalDeals, stats.TotalValue))

	if len(stats.StaleDeals) > 0 {
		promptText.WriteString("\nStale deals (no update in 14+ days):\n")
		for _, d := range stats.StaleDeals {
			promptText.WriteString(fmt.Sprintf("  - %s (%d days)\n", d.Name, d.DaysSince))
		}
	}
	if stats.OpenTasks > 0 {
		promptText.WriteString(fmt.Sprintf("\nOpen tasks: %d\n", stats.OpenTasks))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Where deals are piling up and why that might be")
	promptText.WriteString("\n2. Which stale or high priority deals need attention first")
	promptText.WriteString("\n3. Concrete next actions for this week")

	return &mcp.GetPromptResult{
		Description: "Pipeline review",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: promptText.String()}},
		},
	}, nil
}

func (h *PromptHandlers) getDealAnalysisPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	dealID, ok := args["deal_id"]
	if !ok || dealID == "" {
		return nil, fmt.Errorf("deal_id is required")
	}

	deal, err := h.deals.Deal(dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}

	stageName := string(deal.Stage)
	if info, err := catalog.StageInfo(deal.Stage); err == nil {
		stageName = info.Name
	}

	var promptText strings.Builder
	promptText.WriteString("Please analyze this deal:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", deal.Name))
	promptText.WriteString(fmt.Sprintf("Company: %s\n", deal.Company))
	promptText.WriteString(fmt.Sprintf("Value: $%.2f\n", deal.Value))
	promptText.WriteString(fmt.Sprintf("Stage: %s\n", stageName))
	promptText.WriteString(fmt.Sprintf("Priority: %s\n", deal.Priority))
	if deal.Owner != "" {
		promptText.WriteString(fmt.Sprintf("Owner: %s\n", deal.Owner))
	}
	promptText.WriteString(fmt.Sprintf("Last Updated: %s\n", deal.LastUpdated.Format("2006-01-02")))
	if deal.Description != "" {
		promptText.WriteString(fmt.Sprintf("\nDescription: %s\n", deal.Description))
	}

	if len(deal.Activities) > 0 {
		promptText.WriteString("\nActivity:\n")
		for _, a := range deal.Activities {
			line := fmt.Sprintf("  - %s [%s] %s", a.Timestamp.Format("2006-01-02"), a.Type, a.Title)
			if a.Type == models.ActivityTask && !a.Completed {
				line += " (open)"
			}
			promptText.WriteString(line + "\n")
		}
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. An assessment of where this deal stands")
	promptText.WriteString("\n2. Risks that could stall it")
	promptText.WriteString("\n3. The next step to move it to the following stage")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Analysis for deal: %s", deal.Name),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: promptText.String()}},
		},
	}, nil
}
