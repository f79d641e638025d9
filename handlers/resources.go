// ABOUTME: MCP resource handlers for exposing deal board data
// ABOUTME: Provides read-only JSON views of deals, the board and the notification feed via dealboard:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "dealboard://"

type ResourceHandlers struct {
	deals *store.DealStore
	feed  *store.NotificationStore
}

func NewResourceHandlers(deals *store.DealStore, feed *store.NotificationStore) *ResourceHandlers {
	return &ResourceHandlers{deals: deals, feed: feed}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch parts[0] {
	case "deals":
		if len(parts) == 1 || parts[1] == "" {
			return jsonResource(uri, outputsFor(h.deals.Deals()))
		}
		deal, err := h.deals.Deal(parts[1])
		if errors.Is(err, models.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, dealToOutput(deal))

	case "board":
		_, out, err := NewQueryHandlers(h.deals).PipelineTotals(ctx, nil, PipelineTotalsInput{})
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, out)

	case "notifications":
		notifications := h.feed.Notifications()
		out := make([]NotificationOutput, 0, len(notifications))
		for _, n := range notifications {
			out = append(out, notificationToOutput(n))
		}
		return jsonResource(uri, out)

	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func outputsFor(deals []models.Deal) []DealOutput {
	out := make([]DealOutput, 0, len(deals))
	for _, d := range deals {
		out = append(out, dealToOutput(d))
	}
	return out
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
