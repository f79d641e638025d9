// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban board over the deal store with detail, edit, graph and notification views
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
	ViewNotifications
)

// Model is the main bubbletea model
type Model struct {
	deals *store.DealStore
	feed  *store.NotificationStore
	gate  func() bool

	viewMode ViewMode

	// Board state: stage indexes catalog.Stages(), row the deal within that stage.
	stage int
	row   int

	// Search
	searchInput textinput.Model
	searching   bool
	searchQuery string

	// Detail view state
	selectedID string
	noteInput  textinput.Model
	addingNote bool

	// Edit view state; editing is empty for a new deal
	formInputs []textinput.Model
	focusIndex int
	editingID  string

	// Graph view state
	graphDOT string

	// View to return to when a delete is cancelled
	deleteReturn ViewMode

	// UI state
	status string
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model. gate reports whether changes are allowed; nil allows all.
func NewModel(deals *store.DealStore, feed *store.NotificationStore, gate func() bool) Model {
	search := textinput.New()
	search.Placeholder = "name or company"
	search.Prompt = "/ "

	note := textinput.New()
	note.Placeholder = "note"
	note.Prompt = "+ "

	return Model{
		deals:       deals,
		feed:        feed,
		gate:        gate,
		viewMode:    ViewBoard,
		searchInput: search,
		noteInput:   note,
		width:       120,
		height:      30,
	}
}

// Run starts the full-screen program.
func Run(deals *store.DealStore, feed *store.NotificationStore, gate func() bool) error {
	p := tea.NewProgram(NewModel(deals, feed, gate), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBoard:
		return m.renderBoardView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewNotifications:
		return m.renderNotificationsView()
	}
	return ""
}

// typing reports whether keys should go to a text input.
func (m Model) typing() bool {
	return m.searching || m.addingNote || m.viewMode == ViewEdit
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if !m.typing() {
			return m, tea.Quit
		}
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewNotifications:
		return m.handleNotificationKeys(msg)
	}

	return m, nil
}

// allowed records an error and returns false when changes are not permitted.
func (m *Model) allowed() bool {
	if m.gate != nil && !m.gate() {
		m.err = models.ErrUnauthorized
		return false
	}
	return true
}

// currentStage is the catalog stage under the board cursor.
func (m Model) currentStage() catalog.Stage {
	stages := catalog.Stages()
	return stages[m.stage]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)
