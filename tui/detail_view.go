// ABOUTME: Deal detail view for the TUI
// ABOUTME: Shows fields and the activity timeline and appends notes inline
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(12)

	activityTypeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Width(11)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	deal, err := m.deals.Deal(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error loading deal: %v\n\n%s", err, helpStyle.Render("Esc: Back"))
	}

	s.WriteString(titleStyle.Render(strings.ToUpper(deal.Name)))
	s.WriteString("\n")

	stageName, pipelineName := string(deal.Stage), string(deal.Pipeline)
	if info, err := catalog.StageInfo(deal.Stage); err == nil {
		stageName = info.Name
	}
	if info, err := catalog.PipelineInfo(deal.Pipeline); err == nil {
		pipelineName = info.Name
	}

	s.WriteString(m.renderField("Company", deal.Company))
	s.WriteString(m.renderField("Value", fmt.Sprintf("$%.2f", deal.Value)))
	s.WriteString(m.renderField("Pipeline", pipelineName))
	s.WriteString(m.renderField("Stage", stageName))
	s.WriteString(m.renderField("Priority", string(deal.Priority)))
	if deal.Owner != "" {
		s.WriteString(m.renderField("Owner", deal.Owner))
	}
	s.WriteString(m.renderField("Updated", deal.LastUpdated.Format("Jan 02 2006 15:04")))
	if deal.Description != "" {
		s.WriteString("\n")
		s.WriteString(deal.Description)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(columnHeaderStyle.Render(fmt.Sprintf("Activity (%d)", len(deal.Activities))))
	s.WriteString("\n")
	for _, a := range deal.Activities {
		title := a.Title
		if a.Type == models.ActivityTask {
			if a.Completed {
				title = "[x] " + title
			} else {
				title = "[ ] " + title
			}
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n", a.Timestamp.Format("Jan 02 15:04"), activityTypeStyle.Render(string(a.Type)), title))
	}

	if m.addingNote {
		s.WriteString("\n")
		s.WriteString(m.noteInput.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderMessages())
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"e: Edit",
		"a: Add note",
		"g: Graph",
		"d: Delete",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.addingNote {
		return m.handleNoteKeys(msg)
	}

	m.err = nil
	m.status = ""

	switch msg.String() {
	case "esc":
		m.viewMode = ViewBoard
	case "e":
		deal, err := m.deals.Deal(m.selectedID)
		if err != nil {
			m.err = err
			return m, nil
		}
		if m.allowed() {
			m.startEdit(&deal)
		}
	case "a":
		if m.allowed() {
			m.addingNote = true
			m.noteInput.SetValue("")
			m.noteInput.Focus()
			return m, textinput.Blink
		}
	case "g":
		if err := m.generateGraph(); err != nil {
			m.err = err
			return m, nil
		}
		m.viewMode = ViewGraph
	case "d":
		if m.allowed() {
			m.deleteReturn = ViewDetail
			m.viewMode = ViewConfirmDelete
		}
	}
	return m, nil
}

func (m Model) handleNoteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.addingNote = false
		m.noteInput.Blur()
		return m, nil
	case "enter":
		m.addingNote = false
		m.noteInput.Blur()
		title := strings.TrimSpace(m.noteInput.Value())
		if title == "" {
			return m, nil
		}
		if _, err := m.deals.AddActivity(m.selectedID, models.ActivityInput{
			Type:  models.ActivityNote,
			Title: title,
		}); err != nil {
			m.err = err
		} else {
			m.status = "Note added"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}
