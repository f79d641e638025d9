// ABOUTME: Kanban board view for the TUI
// ABOUTME: Shows one pipeline's stages as columns and moves deals between neighboring stages
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	columnActiveStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	cardSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("255")).
				Bold(true)

	highPriorityStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("9"))
)

// board is the current layout, filtered by the search query.
func (m Model) board() store.Board {
	return store.BuildBoard(store.Search(m.deals.Deals(), m.searchQuery))
}

// column returns the deals under the cursor's stage.
func (m Model) column() []models.Deal {
	col, _ := m.board().Column(m.currentStage().ID)
	return col.Deals
}

func (m Model) selectedDeal() (models.Deal, bool) {
	deals := m.column()
	if m.row < 0 || m.row >= len(deals) {
		return models.Deal{}, false
	}
	return deals[m.row], true
}

func (m Model) renderBoardView() string {
	var s strings.Builder

	board := m.board()

	title := "DEALBOARD"
	if m.feed != nil {
		if unread := m.feed.UnreadCount(); unread > 0 {
			title += fmt.Sprintf("  🔔 %d", unread)
		}
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")

	s.WriteString(m.renderTabs(board))
	s.WriteString("\n\n")

	if m.searching {
		s.WriteString(m.searchInput.View())
		s.WriteString("\n\n")
	} else if m.searchQuery != "" {
		s.WriteString(helpStyle.Render(fmt.Sprintf("filter: %q (esc clears)", m.searchQuery)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderColumns(board))
	s.WriteString("\n")

	s.WriteString(m.renderMessages())
	s.WriteString(m.renderBoardHelp())

	return s.String()
}

func (m Model) renderTabs(board store.Board) string {
	current := m.currentStage().Pipeline
	var rendered []string
	for _, col := range board.Pipelines {
		label := fmt.Sprintf("%s $%.0f", col.Pipeline.Name, col.Total)
		if col.Pipeline.ID == current {
			rendered = append(rendered, tabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumns(board store.Board) string {
	current := m.currentStage()

	var stages []store.StageColumn
	for _, col := range board.Pipelines {
		if col.Pipeline.ID == current.Pipeline {
			stages = col.Stages
		}
	}
	if len(stages) == 0 {
		return ""
	}

	width := m.width/len(stages) - 4
	if width < 16 {
		width = 16
	}
	cardLines := m.height - 12
	if cardLines < 3 {
		cardLines = 3
	}

	columns := make([]string, 0, len(stages))
	for _, sc := range stages {
		active := sc.Stage.ID == current.ID

		var body strings.Builder
		body.WriteString(columnHeaderStyle.Render(truncate(sc.Stage.Name, width-2)))
		body.WriteString(fmt.Sprintf("\n%d · $%.0f\n", len(sc.Deals), sc.Total))

		for i, deal := range sc.Deals {
			if i >= cardLines {
				body.WriteString(fmt.Sprintf("… %d more\n", len(sc.Deals)-i))
				break
			}
			line := truncate(fmt.Sprintf("%s · %s", deal.Name, deal.Company), width-4)
			if deal.Priority == models.PriorityHigh {
				line = highPriorityStyle.Render("!") + " " + line
			} else {
				line = "  " + line
			}
			if active && i == m.row {
				body.WriteString(cardSelectedStyle.Render(line))
			} else {
				body.WriteString(cardStyle.Render(line))
			}
			body.WriteString("\n")
		}

		style := columnStyle
		if active {
			style = columnActiveStyle
		}
		columns = append(columns, style.Width(width).Render(body.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m Model) renderMessages() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case m.status != "":
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"←/→: Stage",
		"↑/↓: Deal",
		"Shift+←/→ or H/L: Move deal",
		"Tab: Pipeline",
		"Enter: Details",
		"n: New",
		"d: Delete",
		"/: Search",
		"N: Notifications",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	m.err = nil
	m.status = ""

	switch msg.String() {
	case "left", "h":
		m.focusStage(m.stage - 1)
	case "right", "l":
		m.focusStage(m.stage + 1)
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.column())-1 {
			m.row++
		}
	case "tab":
		m.focusPipeline(1)
	case "shift+tab":
		m.focusPipeline(-1)
	case "shift+right", "L":
		m.moveSelected(1)
	case "shift+left", "H":
		m.moveSelected(-1)
	case "enter":
		if deal, ok := m.selectedDeal(); ok {
			m.selectedID = deal.ID
			m.viewMode = ViewDetail
		}
	case "n":
		if m.allowed() {
			m.startEdit(nil)
		}
	case "d":
		if deal, ok := m.selectedDeal(); ok && m.allowed() {
			m.selectedID = deal.ID
			m.deleteReturn = ViewBoard
			m.viewMode = ViewConfirmDelete
		}
	case "/":
		m.searching = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, textinput.Blink
	case "esc":
		m.searchQuery = ""
		m.row = 0
	case "N":
		m.viewMode = ViewNotifications
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		m.searching = false
		m.searchInput.Blur()
		m.row = 0
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// focusStage moves the cursor to stage index i, clamped, and resets the row.
func (m *Model) focusStage(i int) {
	n := len(catalog.Stages())
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	m.stage = i
	m.row = 0
}

// focusPipeline jumps to the first stage of the next or previous pipeline, wrapping.
func (m *Model) focusPipeline(step int) {
	pipelines := catalog.Pipelines()
	current := m.currentStage().Pipeline
	idx := 0
	for i, p := range pipelines {
		if p.ID == current {
			idx = i
		}
	}
	idx = (idx + step + len(pipelines)) % len(pipelines)
	m.focusStageID(pipelines[idx].Stages[0])
}

func (m *Model) focusStageID(id models.StageID) {
	for i, st := range catalog.Stages() {
		if st.ID == id {
			m.stage = i
			m.row = 0
			return
		}
	}
}

// moveSelected moves the selected deal to the neighboring stage and keeps it selected.
func (m *Model) moveSelected(offset int) {
	deal, ok := m.selectedDeal()
	if !ok || !m.allowed() {
		return
	}
	target, ok := catalog.Neighbor(deal.Stage, offset)
	if !ok || target == deal.Stage {
		return
	}

	moved, err := m.deals.MoveDeal(deal.ID, target)
	if err != nil {
		m.err = err
		return
	}

	m.focusStageID(moved.Stage)
	for i, d := range m.column() {
		if d.ID == moved.ID {
			m.row = i
		}
	}
	if info, err := catalog.StageInfo(moved.Stage); err == nil {
		m.status = fmt.Sprintf("%s → %s", moved.Name, info.Name)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
