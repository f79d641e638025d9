// ABOUTME: Tests for the deal MCP tool handlers
// ABOUTME: Covers create, update, move, delete, activities and the authentication gate
package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) (*store.DealStore, *store.NotificationStore) {
	t.Helper()
	logger := log.New(io.Discard)
	return store.NewDealStore(store.WithLogger(logger)), store.NewNotificationStore(store.WithLogger(logger))
}

func createTestDeal(t *testing.T, h *DealHandlers, name, company string, value float64, stage string) DealOutput {
	t.Helper()
	_, out, err := h.CreateDeal(context.Background(), nil, CreateDealInput{
		Name:    name,
		Company: company,
		Value:   value,
		Stage:   stage,
	})
	require.NoError(t, err)
	return out
}

func denyAll() bool { return false }

func TestCreateDealHandler(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "Dana")

	out := createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "")

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "potential", out.Stage)
	assert.Equal(t, "Potential Project", out.StageName)
	assert.Equal(t, "pre_approval", out.Pipeline)
	assert.Equal(t, "medium", out.Priority)
	assert.Equal(t, "Dana", out.Owner, "default owner applies when none is given")
	assert.Empty(t, out.Activities)
	assert.Equal(t, 1, deals.Len())
}

func TestCreateDealHandlerValidation(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")

	_, _, err := h.CreateDeal(context.Background(), nil, CreateDealInput{Company: "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = h.CreateDeal(context.Background(), nil, CreateDealInput{Name: "X", Company: "Acme", Stage: "emergency"})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 0, deals.Len())
}

func TestUpdateDealHandler(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "")

	value := 2500.0
	stage := "quoting"
	_, out, err := h.UpdateDeal(context.Background(), nil, UpdateDealInput{
		ID:    created.ID,
		Value: &value,
		Stage: &stage,
	})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, out.Value)
	assert.Equal(t, "quoting", out.Stage)
	assert.Equal(t, "quoting", out.Pipeline)
	assert.Equal(t, "HVAC Repair", out.Name, "unset fields are left alone")

	_, _, err = h.UpdateDeal(context.Background(), nil, UpdateDealInput{})
	assert.Error(t, err)
}

func TestMoveDealHandler(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "")

	_, out, err := h.MoveDeal(context.Background(), nil, MoveDealInput{ID: created.ID, Stage: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", out.Stage)
	assert.Equal(t, "active", out.Pipeline)

	_, _, err = h.MoveDeal(context.Background(), nil, MoveDealInput{ID: created.ID})
	assert.ErrorContains(t, err, "stage is required")

	_, _, err = h.MoveDeal(context.Background(), nil, MoveDealInput{ID: "missing", Stage: "completed"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteDealHandler(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "")

	_, out, err := h.DeleteDeal(context.Background(), nil, DeleteDealInput{ID: created.ID})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, 0, deals.Len())

	_, _, err = h.DeleteDeal(context.Background(), nil, DeleteDealInput{ID: created.ID})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddActivityHandler(t *testing.T) {
	deals, _ := newTestStores(t)
	h := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, h, "HVAC Repair", "Acme", 1500, "")

	_, out, err := h.AddActivity(context.Background(), nil, AddActivityInput{
		DealID:    created.ID,
		Type:      "call",
		Title:     "Intro call",
		Timestamp: "2026-03-01T15:04:05Z",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "call", out.Type)
	assert.Equal(t, "2026-03-01T15:04:05Z", out.Timestamp)

	deal, err := deals.Deal(created.ID)
	require.NoError(t, err)
	require.Len(t, deal.Activities, 1)

	_, _, err = h.AddActivity(context.Background(), nil, AddActivityInput{DealID: created.ID, Type: "call", Title: "x", Timestamp: "yesterday"})
	assert.ErrorContains(t, err, "invalid timestamp")

	_, _, err = h.AddActivity(context.Background(), nil, AddActivityInput{DealID: created.ID, Type: "fax", Title: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDealHandlersRequireAuthentication(t *testing.T) {
	deals, _ := newTestStores(t)
	open := NewDealHandlers(deals, AllowAll, "")
	created := createTestDeal(t, open, "HVAC Repair", "Acme", 1500, "")

	h := NewDealHandlers(deals, denyAll, "")
	ctx := context.Background()

	_, _, err := h.CreateDeal(ctx, nil, CreateDealInput{Name: "X", Company: "Y"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = h.MoveDeal(ctx, nil, MoveDealInput{ID: created.ID, Stage: "completed"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = h.DeleteDeal(ctx, nil, DeleteDealInput{ID: created.ID})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = h.AddActivity(ctx, nil, AddActivityInput{DealID: created.ID, Type: "note", Title: "x"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	deal, err := deals.Deal(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StagePotential, deal.Stage)
	assert.Empty(t, deal.Activities)
}
