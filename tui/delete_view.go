// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Handles deletion of deals with a confirmation dialog
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	deal, err := m.deals.Deal(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error loading deal: %v", err)
	}
	title := warningStyle.Render("⚠  DELETE DEAL  ⚠")
	message := "Are you sure you want to delete this deal?"
	dealInfo := fmt.Sprintf("\n%s\n%s · $%.2f · %d activities\n", deal.Name, deal.Company, deal.Value, len(deal.Activities))
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		dealInfo,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	// Center the box on screen
	dialog := lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)

	return dialog
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		// Confirm delete
		if err := m.deals.DeleteDeal(m.selectedID); err != nil {
			m.err = err
		} else {
			m.status = "Successfully deleted"
			m.selectedID = ""
			if n := len(m.column()); m.row >= n && n > 0 {
				m.row = n - 1
			}
		}
		m.viewMode = ViewBoard
	case "n", "N", "esc":
		// Cancel delete
		m.viewMode = m.deleteReturn
	}

	return m, nil
}
