// ABOUTME: Tests for search and pipeline total MCP tools
// ABOUTME: Verifies filtering, limits and per-stage sums
package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQueryDeals(t *testing.T) *QueryHandlers {
	t.Helper()
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")
	createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "quoting")
	createTestDeal(t, h, "Boiler Install", "Acme", 8000, "potential")
	createTestDeal(t, h, "Roof Survey", "Globex", 500, "potential")
	createTestDeal(t, h, "Duct Cleaning", "Initech", 1000, "completed")
	return NewQueryHandlers(deals)
}

func TestSearchDealsHandler(t *testing.T) {
	h := seedQueryDeals(t)
	ctx := context.Background()

	_, out, err := h.SearchDeals(ctx, nil, SearchDealsInput{Query: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 9500.0, out.Total)

	_, out, err = h.SearchDeals(ctx, nil, SearchDealsInput{Pipeline: "pre_approval"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = h.SearchDeals(ctx, nil, SearchDealsInput{Query: "acme", Stage: "quoting"})
	require.NoError(t, err)
	require.Len(t, out.Deals, 1)
	assert.Equal(t, "HVAC Repair", out.Deals[0].Name)

	_, out, err = h.SearchDeals(ctx, nil, SearchDealsInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out.Deals, 1)
	assert.Equal(t, 4, out.Count, "count reports every match even past the limit")

	_, out, err = h.SearchDeals(ctx, nil, SearchDealsInput{Query: "nothing matches"})
	require.NoError(t, err)
	assert.NotNil(t, out.Deals)
	assert.Empty(t, out.Deals)

	_, _, err = h.SearchDeals(ctx, nil, SearchDealsInput{Stage: "site_visit"})
	assert.ErrorContains(t, err, "invalid stage")
}

func TestPipelineTotalsHandler(t *testing.T) {
	h := seedQueryDeals(t)
	ctx := context.Background()

	_, out, err := h.PipelineTotals(ctx, nil, PipelineTotalsInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count)
	assert.Equal(t, 11000.0, out.Total)
	require.Len(t, out.Pipelines, 4)

	for _, p := range out.Pipelines {
		var sum float64
		for _, s := range p.Stages {
			sum += s.Total
		}
		assert.Equal(t, p.Total, sum, "pipeline %s", p.ID)
	}

	_, out, err = h.PipelineTotals(ctx, nil, PipelineTotalsInput{Pipeline: "pre_approval"})
	require.NoError(t, err)
	require.Len(t, out.Pipelines, 1)
	assert.Equal(t, 8500.0, out.Total)
	assert.Len(t, out.Pipelines[0].Stages, 5)

	_, _, err = h.PipelineTotals(ctx, nil, PipelineTotalsInput{Pipeline: "sales"})
	assert.Error(t, err)
}
