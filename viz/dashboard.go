// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides ASCII pipeline overview with per-stage bars and needs-attention lists
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
)

// StaleAfter is how long a deal can go without an update before it needs attention.
const StaleAfter = 14 * 24 * time.Hour

type DashboardStats struct {
	Pipelines []PipelineStats

	TotalDeals int
	TotalValue float64
	Unread     int

	// Activity in the last 7 days, newest first
	RecentActivity []ActivityItem

	// Needs attention
	StaleDeals   []StaleDeal
	OpenTasks    int
	HighPriority int
}

type PipelineStats struct {
	ID     models.PipelineID
	Name   string
	Count  int
	Total  float64
	Stages []PipelineStageStats
}

type PipelineStageStats struct {
	Stage models.StageID
	Name  string
	Count int
	Total float64
}

type ActivityItem struct {
	Date        time.Time
	Description string
}

type StaleDeal struct {
	Name      string
	DaysSince int
}

// GenerateDashboardStats derives dashboard figures from a board and the unread count.
func GenerateDashboardStats(board store.Board, unread int, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		TotalDeals: board.Count,
		TotalValue: board.Total,
		Unread:     unread,
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, col := range board.Pipelines {
		ps := PipelineStats{ID: col.Pipeline.ID, Name: col.Pipeline.Name, Total: col.Total}
		for _, sc := range col.Stages {
			ps.Count += len(sc.Deals)
			ps.Stages = append(ps.Stages, PipelineStageStats{
				Stage: sc.Stage.ID,
				Name:  sc.Stage.Name,
				Count: len(sc.Deals),
				Total: sc.Total,
			})

			for _, deal := range sc.Deals {
				if deal.Priority == models.PriorityHigh {
					stats.HighPriority++
				}
				if since := now.Sub(deal.LastUpdated); since > StaleAfter {
					stats.StaleDeals = append(stats.StaleDeals, StaleDeal{
						Name:      deal.Name,
						DaysSince: int(since.Hours() / 24),
					})
				}
				for _, a := range deal.Activities {
					if a.Type == models.ActivityTask && !a.Completed {
						stats.OpenTasks++
					}
					if a.Timestamp.After(weekAgo) && !a.Timestamp.After(now) {
						stats.RecentActivity = append(stats.RecentActivity, ActivityItem{
							Date:        a.Timestamp,
							Description: fmt.Sprintf("%s: %s (%s)", deal.Name, a.Title, a.Type),
						})
					}
				}
			}
		}
		stats.Pipelines = append(stats.Pipelines, ps)
	}

	sort.SliceStable(stats.RecentActivity, func(i, j int) bool {
		return stats.RecentActivity[i].Date.After(stats.RecentActivity[j].Date)
	})
	sort.SliceStable(stats.StaleDeals, func(i, j int) bool {
		return stats.StaleDeals[i].DaysSince > stats.StaleDeals[j].DaysSince
	})
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DEALBOARD PIPELINE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipelines(&out, stats.Pipelines)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d deals  💰 %s total  🔔 %d unread\n\n",
		stats.TotalDeals, formatMoney(stats.TotalValue), stats.Unread))

	if len(stats.RecentActivity) > 0 {
		out.WriteString("RECENT ACTIVITY\n")
		for i, item := range stats.RecentActivity {
			if i == 5 {
				out.WriteString(fmt.Sprintf("  … and %d more\n", len(stats.RecentActivity)-5))
				break
			}
			out.WriteString(fmt.Sprintf("  %s  %s\n", item.Date.Format("Jan 02"), item.Description))
		}
		out.WriteString("\n")
	}

	if len(stats.StaleDeals) > 0 || stats.OpenTasks > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.StaleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - stale (no update in 14+ days)\n", len(stats.StaleDeals)))
		}
		if stats.OpenTasks > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d open tasks\n", stats.OpenTasks))
		}
	}

	return out.String()
}

func renderPipelines(out *strings.Builder, pipelines []PipelineStats) {
	maxCount := 0
	for _, p := range pipelines {
		for _, s := range p.Stages {
			if s.Count > maxCount {
				maxCount = s.Count
			}
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, p := range pipelines {
		out.WriteString(fmt.Sprintf("  %s  %d deal(s) %s\n", p.Name, p.Count, formatMoney(p.Total)))
		for _, s := range p.Stages {
			// 0-10 blocks
			barLength := (s.Count * 10) / maxCount
			bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
			out.WriteString(fmt.Sprintf("    %-28s %s  %2d (%s)\n", s.Name, bar, s.Count, formatMoney(s.Total)))
		}
	}
}
