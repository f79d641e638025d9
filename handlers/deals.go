// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal, move_deal, delete_deal and add_deal_activity tools
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Gate reports whether mutating tools may run. It stands in for a real session check.
type Gate func() bool

// AllowAll is a Gate that always allows.
func AllowAll() bool { return true }

func (g Gate) check() error {
	if g != nil && !g() {
		return models.ErrUnauthorized
	}
	return nil
}

type DealHandlers struct {
	deals *store.DealStore
	gate  Gate
	owner string
}

func NewDealHandlers(deals *store.DealStore, gate Gate, defaultOwner string) *DealHandlers {
	return &DealHandlers{deals: deals, gate: gate, owner: defaultOwner}
}

type CreateDealInput struct {
	Name        string  `json:"name" jsonschema:"Deal name (required)"`
	Company     string  `json:"company" jsonschema:"Customer company (required)"`
	Value       float64 `json:"value,omitempty" jsonschema:"Deal value, must not be negative"`
	Stage       string  `json:"stage,omitempty" jsonschema:"Stage id (default potential)"`
	Pipeline    string  `json:"pipeline,omitempty" jsonschema:"Pipeline id; optional, must match the stage"`
	Owner       string  `json:"owner,omitempty" jsonschema:"Person responsible for the deal"`
	Description string  `json:"description,omitempty" jsonschema:"Free text description"`
	Priority    string  `json:"priority,omitempty" jsonschema:"low, medium or high (default medium)"`
}

type ActivityOutput struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp"`
	Completed   bool   `json:"completed,omitempty"`
}

type DealOutput struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Company     string           `json:"company"`
	Value       float64          `json:"value"`
	Pipeline    string           `json:"pipeline"`
	Stage       string           `json:"stage"`
	StageName   string           `json:"stage_name"`
	Owner       string           `json:"owner,omitempty"`
	Priority    string           `json:"priority"`
	Description string           `json:"description,omitempty"`
	LastUpdated string           `json:"last_updated"`
	Activities  []ActivityOutput `json:"activities"`
}

func (h *DealHandlers) CreateDeal(_ context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, DealOutput{}, err
	}

	owner := input.Owner
	if owner == "" {
		owner = h.owner
	}

	deal, err := h.deals.CreateDeal(models.DealInput{
		Name:        input.Name,
		Company:     input.Company,
		Value:       input.Value,
		Stage:       models.StageID(input.Stage),
		Pipeline:    models.PipelineID(input.Pipeline),
		Owner:       owner,
		Description: input.Description,
		Priority:    models.Priority(input.Priority),
	})
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

type UpdateDealInput struct {
	ID          string   `json:"id" jsonschema:"Deal ID (required)"`
	Name        *string  `json:"name,omitempty" jsonschema:"New deal name"`
	Company     *string  `json:"company,omitempty" jsonschema:"New company"`
	Value       *float64 `json:"value,omitempty" jsonschema:"New value"`
	Stage       *string  `json:"stage,omitempty" jsonschema:"New stage id; the pipeline follows it"`
	Pipeline    *string  `json:"pipeline,omitempty" jsonschema:"Pipeline id; must match the resulting stage"`
	Owner       *string  `json:"owner,omitempty" jsonschema:"New owner"`
	Description *string  `json:"description,omitempty" jsonschema:"New description"`
	Priority    *string  `json:"priority,omitempty" jsonschema:"low, medium or high"`
}

func (h *DealHandlers) UpdateDeal(_ context.Context, _ *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, DealOutput{}, err
	}
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}

	upd := models.DealUpdate{
		Name:        input.Name,
		Company:     input.Company,
		Value:       input.Value,
		Owner:       input.Owner,
		Description: input.Description,
	}
	if input.Stage != nil {
		s := models.StageID(*input.Stage)
		upd.Stage = &s
	}
	if input.Pipeline != nil {
		p := models.PipelineID(*input.Pipeline)
		upd.Pipeline = &p
	}
	if input.Priority != nil {
		p := models.Priority(*input.Priority)
		upd.Priority = &p
	}

	deal, err := h.deals.UpdateDeal(input.ID, upd)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

type MoveDealInput struct {
	ID    string `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage id (required)"`
}

func (h *DealHandlers) MoveDeal(_ context.Context, _ *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, DealOutput{}, err
	}
	if input.ID == "" {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	if input.Stage == "" {
		return nil, DealOutput{}, fmt.Errorf("stage is required (valid: %s)", strings.Join(catalog.StageIDs(), ", "))
	}

	deal, err := h.deals.MoveDeal(input.ID, models.StageID(input.Stage))
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

type DeleteDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

type DeleteDealOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *DealHandlers) DeleteDeal(_ context.Context, _ *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteDealOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, DeleteDealOutput{}, err
	}
	if input.ID == "" {
		return nil, DeleteDealOutput{}, fmt.Errorf("id is required")
	}
	if err := h.deals.DeleteDeal(input.ID); err != nil {
		return nil, DeleteDealOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil, DeleteDealOutput{ID: input.ID, Deleted: true}, nil
}

type AddActivityInput struct {
	DealID      string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Type        string `json:"type" jsonschema:"comment, task, site-visit, schedule, note, call, email or meeting"`
	Title       string `json:"title" jsonschema:"Short title (required)"`
	Description string `json:"description,omitempty" jsonschema:"Details"`
	Timestamp   string `json:"timestamp,omitempty" jsonschema:"When it happened or is scheduled, RFC3339 (default now)"`
	Completed   bool   `json:"completed,omitempty" jsonschema:"Whether a task is done"`
}

func (h *DealHandlers) AddActivity(_ context.Context, _ *mcp.CallToolRequest, input AddActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, ActivityOutput{}, err
	}
	if input.DealID == "" {
		return nil, ActivityOutput{}, fmt.Errorf("deal_id is required")
	}

	var ts time.Time
	if input.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			return nil, ActivityOutput{}, fmt.Errorf("invalid timestamp format (use ISO 8601/RFC3339): %w", err)
		}
		ts = parsed
	}

	activity, err := h.deals.AddActivity(input.DealID, models.ActivityInput{
		Type:        models.ActivityType(input.Type),
		Title:       input.Title,
		Description: input.Description,
		Timestamp:   ts,
		Completed:   input.Completed,
	})
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to add activity: %w", err)
	}
	return nil, activityToOutput(activity), nil
}

func dealToOutput(deal models.Deal) DealOutput {
	out := DealOutput{
		ID:          deal.ID,
		Name:        deal.Name,
		Company:     deal.Company,
		Value:       deal.Value,
		Pipeline:    string(deal.Pipeline),
		Stage:       string(deal.Stage),
		Owner:       deal.Owner,
		Priority:    string(deal.Priority),
		Description: deal.Description,
		LastUpdated: deal.LastUpdated.Format(time.RFC3339),
		Activities:  make([]ActivityOutput, 0, len(deal.Activities)),
	}
	if info, err := catalog.StageInfo(deal.Stage); err == nil {
		out.StageName = info.Name
	}
	for _, a := range deal.Activities {
		out.Activities = append(out.Activities, activityToOutput(a))
	}
	return out
}

func activityToOutput(a models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:          a.ID,
		Type:        string(a.Type),
		Title:       a.Title,
		Description: a.Description,
		Timestamp:   a.Timestamp.Format(time.RFC3339),
		Completed:   a.Completed,
	}
}
