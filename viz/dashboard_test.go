// ABOUTME: Tests for dashboard statistics and rendering
// ABOUTME: Builds boards from in-memory deal stores with a fixed clock
package viz

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T, now time.Time) *store.DealStore {
	t.Helper()
	return store.NewDealStore(
		store.WithClock(func() time.Time { return now }),
		store.WithLogger(log.New(io.Discard)),
	)
}

func TestGenerateDashboardStats(t *testing.T) {
	old := testStore(t, fixedNow.Add(-30*24*time.Hour))
	stale, err := old.CreateDeal(models.DealInput{Name: "Old boiler", Company: "Acme", Value: 2000, Priority: models.PriorityHigh})
	require.NoError(t, err)

	s := testStore(t, fixedNow)
	fresh, err := s.CreateDeal(models.DealInput{Name: "HVAC Repair", Company: "Acme", Value: 1500, Stage: models.StageQuoting})
	require.NoError(t, err)
	_, err = s.AddActivity(fresh.ID, models.ActivityInput{Type: models.ActivityTask, Title: "Send quote", Timestamp: fixedNow.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = s.AddActivity(fresh.ID, models.ActivityInput{Type: models.ActivityCall, Title: "Intro call", Timestamp: fixedNow.Add(-30 * 24 * time.Hour)})
	require.NoError(t, err)

	fresh, err = s.Deal(fresh.ID)
	require.NoError(t, err)
	board := store.BuildBoard([]models.Deal{stale, fresh})

	stats := GenerateDashboardStats(board, 3, fixedNow)
	assert.Equal(t, 2, stats.TotalDeals)
	assert.Equal(t, 3500.0, stats.TotalValue)
	assert.Equal(t, 3, stats.Unread)
	assert.Equal(t, 1, stats.OpenTasks)
	assert.Equal(t, 1, stats.HighPriority)

	require.Len(t, stats.StaleDeals, 1)
	assert.Equal(t, "Old boiler", stats.StaleDeals[0].Name)
	assert.Equal(t, 30, stats.StaleDeals[0].DaysSince)

	require.Len(t, stats.RecentActivity, 1)
	assert.Contains(t, stats.RecentActivity[0].Description, "Send quote")

	require.Len(t, stats.Pipelines, 4)
	assert.Equal(t, 1, stats.Pipelines[0].Count)
	assert.Equal(t, 1500.0, stats.Pipelines[1].Total)
}

func TestRenderDashboard(t *testing.T) {
	s := testStore(t, fixedNow)
	_, err := s.CreateDeal(models.DealInput{Name: "Rooftop unit", Company: "Globex", Value: 12000, Stage: models.StageInProgress})
	require.NoError(t, err)

	out := RenderDashboard(GenerateDashboardStats(s.Board(), 0, fixedNow))
	assert.Contains(t, out, "PIPELINE OVERVIEW")
	assert.Contains(t, out, "Active Projects")
	assert.Contains(t, out, "In Progress")
	assert.Contains(t, out, "██████████")
	assert.Contains(t, out, "$12,000")
	assert.NotContains(t, out, "NEEDS ATTENTION")
}

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:         "$0",
		999:       "$999",
		1000:      "$1,000",
		1500.4:    "$1,500",
		1234567.6: "$1,234,568",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatMoney(in))
	}
}
