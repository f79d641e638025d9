package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dealboard/models"
)

// Form field order.
const (
	fieldName = iota
	fieldCompany
	fieldValue
	fieldStage
	fieldPriority
	fieldOwner
	fieldDescription
	fieldCount
)

func (m Model) renderEditView() string {
	var s strings.Builder

	// Title
	if m.editingID == "" {
		s.WriteString(titleStyle.Render("NEW DEAL"))
	} else {
		s.WriteString(titleStyle.Render("EDIT DEAL"))
	}
	s.WriteString("\n\n")

	// Form fields
	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderMessages())

	// Help
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		m.viewMode = m.returnView()
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex - 1 + len(m.formInputs)) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		deal, err := m.saveDeal()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.selectedID = deal.ID
		m.focusStageID(deal.Stage)
		for i, d := range m.column() {
			if d.ID == deal.ID {
				m.row = i
			}
		}
		if m.editingID == "" {
			m.status = fmt.Sprintf("Created %s", deal.Name)
			m.viewMode = ViewBoard
		} else {
			m.status = "Saved"
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	// Update current input
	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m Model) returnView() ViewMode {
	if m.editingID != "" {
		return ViewDetail
	}
	return ViewBoard
}

// startEdit opens the form for deal, or a blank form in the current stage when deal is nil.
func (m *Model) startEdit(deal *models.Deal) {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := []string{"Name", "Company", "Value", "Stage", "Priority (low, medium, high)", "Owner", "Description"}
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = 100
	}
	inputs[fieldDescription].CharLimit = 500

	m.editingID = ""
	if deal != nil {
		m.editingID = deal.ID
		inputs[fieldName].SetValue(deal.Name)
		inputs[fieldCompany].SetValue(deal.Company)
		inputs[fieldValue].SetValue(strconv.FormatFloat(deal.Value, 'f', -1, 64))
		inputs[fieldStage].SetValue(string(deal.Stage))
		inputs[fieldPriority].SetValue(string(deal.Priority))
		inputs[fieldOwner].SetValue(deal.Owner)
		inputs[fieldDescription].SetValue(deal.Description)
	} else {
		inputs[fieldStage].SetValue(string(m.currentStage().ID))
	}

	m.formInputs = inputs
	m.focusIndex = 0
	m.updateFormFocus()
	m.err = nil
	m.viewMode = ViewEdit
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m *Model) saveDeal() (models.Deal, error) {
	get := func(i int) string { return strings.TrimSpace(m.formInputs[i].Value()) }

	var value float64
	if v := get(fieldValue); v != "" {
		parsed, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(v, ",", ""), "$"), 64)
		if err != nil {
			return models.Deal{}, fmt.Errorf("value must be a number")
		}
		value = parsed
	}

	if m.editingID == "" {
		return m.deals.CreateDeal(models.DealInput{
			Name:        get(fieldName),
			Company:     get(fieldCompany),
			Value:       value,
			Stage:       models.StageID(get(fieldStage)),
			Priority:    models.Priority(get(fieldPriority)),
			Owner:       get(fieldOwner),
			Description: get(fieldDescription),
		})
	}

	name, company, owner, description := get(fieldName), get(fieldCompany), get(fieldOwner), get(fieldDescription)
	update := models.DealUpdate{
		Name:        &name,
		Company:     &company,
		Value:       &value,
		Owner:       &owner,
		Description: &description,
	}
	// Blank stage or priority keeps the current one.
	if v := get(fieldStage); v != "" {
		stage := models.StageID(v)
		update.Stage = &stage
	}
	if v := get(fieldPriority); v != "" {
		priority := models.Priority(v)
		update.Priority = &priority
	}
	return m.deals.UpdateDeal(m.editingID, update)
}
