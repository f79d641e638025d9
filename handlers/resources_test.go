// ABOUTME: Tests for MCP resources, prompts and graph tools
// ABOUTME: Reads dealboard:// URIs and renders prompt templates against seeded stores
package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
}

func TestReadResource(t *testing.T) {
	deals, feed := newTestStores(t)
	dh := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, dh, "HVAC Repair", "Acme", 1500, "quoting")
	_, err := feed.AddNotification("Welcome", "")
	require.NoError(t, err)

	h := NewResourceHandlers(deals, feed)

	res, err := readResource(t, h, "dealboard://deals")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	var all []DealOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &all))
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)

	res, err = readResource(t, h, "dealboard://deals/"+created.ID)
	require.NoError(t, err)
	var one DealOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &one))
	assert.Equal(t, "HVAC Repair", one.Name)

	res, err = readResource(t, h, "dealboard://board")
	require.NoError(t, err)
	var board PipelineTotalsOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &board))
	assert.Equal(t, 1500.0, board.Total)

	res, err = readResource(t, h, "dealboard://notifications")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "Welcome")

	_, err = readResource(t, h, "dealboard://deals/missing")
	assert.Error(t, err)
	_, err = readResource(t, h, "crm://deals")
	assert.ErrorContains(t, err, "invalid URI scheme")
	_, err = readResource(t, h, "dealboard://contacts")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	deals, _ := newTestStores(t)
	dh := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, dh, "HVAC Repair", "Acme", 1500, "quoting")

	h := NewPromptHandlers(deals)
	assert.Len(t, h.Prompts(), 2)

	res, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "pipeline-review"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Quoting Stage: 1 deal(s), $1500.00")

	res, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "deal-analysis", Arguments: map[string]string{"deal_id": created.ID}},
	})
	require.NoError(t, err)
	text = res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Name: HVAC Repair")
	assert.Contains(t, text, "Company: Acme")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "deal-analysis"},
	})
	assert.ErrorContains(t, err, "deal_id is required")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "contact-summary"},
	})
	assert.ErrorContains(t, err, "unknown prompt")
}

func TestVizHandlers(t *testing.T) {
	deals, feed := newTestStores(t)
	dh := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, dh, "HVAC Repair", "Acme", 1500, "quoting")

	h := NewVizHandlers(deals, feed)
	ctx := context.Background()

	_, out, err := h.GenerateGraph(ctx, nil, GenerateGraphInput{})
	require.NoError(t, err)
	assert.Equal(t, "pipeline", out.GraphType)
	assert.Contains(t, out.DOTSource, "digraph")

	_, out, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "deal", DealID: created.ID})
	require.NoError(t, err)
	assert.Contains(t, out.DOTSource, "HVAC Repair")

	_, _, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "deal"})
	assert.ErrorContains(t, err, "deal_id is required")
	_, _, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "contacts"})
	assert.ErrorContains(t, err, "invalid graph type")

	_, dash, err := h.Dashboard(ctx, nil, DashboardInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, dash.TotalDeals)
	assert.Contains(t, dash.Text, "DEALBOARD PIPELINE DASHBOARD")
}
