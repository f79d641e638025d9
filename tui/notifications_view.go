// ABOUTME: TUI view for the notification feed
// ABOUTME: Lists notifications newest first with mark-read and clear actions
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) renderNotificationsView() string {
	var s strings.Builder

	items := m.feed.Notifications()
	s.WriteString(titleStyle.Render(fmt.Sprintf("NOTIFICATIONS  %d unread", m.feed.UnreadCount())))
	s.WriteString("\n")

	if len(items) == 0 {
		s.WriteString("No notifications\n")
	} else {
		columns := []table.Column{
			{Title: "", Width: 2},
			{Title: "When", Width: 14},
			{Title: "Title", Width: 30},
			{Title: "Message", Width: 50},
		}

		var rows []table.Row
		for _, n := range items {
			indicator := " "
			if !n.Read {
				indicator = "●"
			}
			rows = append(rows, table.Row{
				indicator,
				n.Timestamp.Format("Jan 02 15:04"),
				n.Title,
				n.Message,
			})
		}

		height := m.height - 10
		if height < 3 {
			height = 3
		}
		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithHeight(height),
		)
		s.WriteString(t.View())
	}

	s.WriteString("\n")
	s.WriteString(m.renderMessages())
	s.WriteString(m.renderNotificationsHelp())
	return s.String()
}

func (m Model) renderNotificationsHelp() string {
	help := []string{
		"r: Mark all read",
		"c: Clear",
		"Esc: Back (marks read)",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleNotificationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""

	switch msg.String() {
	case "esc":
		// Leaving the feed counts as having seen it.
		if m.gate == nil || m.gate() {
			m.feed.MarkAsRead()
		}
		m.viewMode = ViewBoard
	case "r":
		if m.allowed() {
			m.status = fmt.Sprintf("Marked %d read", m.feed.MarkAsRead())
		}
	case "c":
		if m.allowed() {
			m.status = fmt.Sprintf("Cleared %d", m.feed.ClearNotifications())
		}
	}
	return m, nil
}
