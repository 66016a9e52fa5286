// Package tui is the terminal front end for the note browser.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/streed/notes-browser/internal/browser"
	"github.com/streed/notes-browser/internal/constants"
	"github.com/streed/notes-browser/internal/models"
)

const submitTimeout = 30 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("4")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	noteTitleStyle = lipgloss.NewStyle().Bold(true)
	tagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	previewStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	modalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 2)
)

// Updates wakes the program when the controller state changes. Pass its
// OnChange method to browser.OnChange.
type Updates chan struct{}

func NewUpdates() Updates {
	return make(Updates, 1)
}

func (u Updates) OnChange(browser.View) {
	select {
	case u <- struct{}{}:
	default:
	}
}

type changedMsg struct{}

type submitResultMsg struct {
	note *models.Note
	err  error
}

type modalField int

const (
	fieldTitle modalField = iota
	fieldContent
	fieldTag
	fieldCount
)

type Model struct {
	controller *browser.Controller
	updates    Updates
	view       browser.View

	search  textinput.Model
	title   textinput.Model
	content textinput.Model
	tag     int
	focus   modalField

	submitting bool
	formErr    string
	status     string
	width      int
}

func New(controller *browser.Controller, updates Updates) Model {
	search := textinput.New()
	search.Placeholder = "Search notes..."
	search.Prompt = "Search: "
	search.Focus()

	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = constants.MaxTitleLength

	content := textinput.New()
	content.Placeholder = "Content"
	content.CharLimit = constants.MaxContentLength

	return Model{
		controller: controller,
		updates:    updates,
		view:       controller.View(),
		search:     search,
		title:      title,
		content:    content,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh(), m.waitForChange())
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		m.controller.Refresh()
		return changedMsg{}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		<-m.updates
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.view = m.controller.View()
		return m, m.waitForChange()

	case submitResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.formErr = msg.err.Error()
		} else {
			m.formErr = ""
			m.status = fmt.Sprintf("Created %q", msg.note.Title)
			m.search.Focus()
		}
		m.view = m.controller.View()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.search.Width = msg.Width - len(m.search.Prompt) - 2
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		if m.view.ModalOpen {
			m, cmd = m.updateModal(msg)
		} else {
			m, cmd = m.updateBrowser(msg)
		}
		m.view = m.controller.View()
		return m, cmd
	}

	return m, nil
}

func (m Model) updateBrowser(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+n":
		m.controller.OpenCreateModal()
		m.resetForm()
		m.search.Blur()
		return m, m.title.Focus()

	case "left", "pgup":
		if m.view.Page > 1 {
			m.controller.OnPageChange(m.view.Page - 2)
		}
		return m, nil

	case "right", "pgdown":
		if m.view.Page < m.view.TotalPages {
			m.controller.OnPageChange(m.view.Page)
		}
		return m, nil

	case "ctrl+r":
		m.status = ""
		m.controller.Reload()
		return m, nil

	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.controller.OnSearchChange("")
		}
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		m.status = ""
		m.controller.OnSearchChange(after)
	}
	return m, cmd
}

func (m Model) updateModal(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.controller.CloseCreateModal()
		m.resetForm()
		return m, m.search.Focus()

	case "tab", "down":
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case "shift+tab", "up":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case "enter":
		m.submitting = true
		m.formErr = ""
		return m, m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldContent:
		m.content, cmd = m.content.Update(msg)
	case fieldTag:
		switch msg.String() {
		case "left", "h":
			m.tag = (m.tag + len(models.Tags) - 1) % len(models.Tags)
		case "right", "l", " ":
			m.tag = (m.tag + 1) % len(models.Tags)
		}
	}
	return m, cmd
}

func (m *Model) setFocus(field modalField) tea.Cmd {
	m.focus = field
	m.title.Blur()
	m.content.Blur()
	switch field {
	case fieldTitle:
		return m.title.Focus()
	case fieldContent:
		return m.content.Focus()
	}
	return nil
}

func (m *Model) resetForm() {
	m.title.SetValue("")
	m.content.SetValue("")
	m.tag = 0
	m.formErr = ""
	m.focus = fieldTitle
	m.title.Blur()
	m.content.Blur()
}

func (m Model) submit() tea.Cmd {
	req := models.CreateNoteRequest{
		Title:   m.title.Value(),
		Content: m.content.Value(),
		Tag:     models.Tags[m.tag],
	}
	controller := m.controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		note, err := controller.SubmitNote(ctx, req)
		return submitResultMsg{note: note, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Notes"))
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	if m.view.ModalOpen {
		b.WriteString(m.modalView())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("tab: next field • ←/→: tag • enter: save • esc: cancel"))
		return b.String()
	}

	b.WriteString(m.listView())

	if m.view.ShowPagination {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Page %d of %d", m.view.Page, m.view.TotalPages))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("type to search • ←/→: page • ctrl+n: new note • ctrl+r: reload • esc: clear • ctrl+c: quit"))
	return b.String()
}

func (m Model) listView() string {
	switch {
	case m.view.Loading:
		return "Loading...\n"
	case m.view.Err != nil && len(m.view.Notes) == 0:
		return errorStyle.Render("Error loading notes") + "\n"
	}

	var b strings.Builder
	if m.view.Err != nil {
		b.WriteString(errorStyle.Render("Error loading notes"))
		b.WriteString("\n\n")
	}
	if len(m.view.Notes) == 0 {
		b.WriteString(mutedStyle.Render("No notes found."))
		b.WriteString("\n")
		return b.String()
	}

	for _, note := range m.view.Notes {
		b.WriteString(noteTitleStyle.Render(note.Title))
		b.WriteString(" ")
		b.WriteString(tagStyle.Render("[" + string(note.Tag) + "]"))
		b.WriteString("\n")
		if preview := note.Preview(constants.ShortPreviewLength); preview != "" {
			b.WriteString("  ")
			b.WriteString(previewStyle.Render(preview))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) modalView() string {
	var b strings.Builder
	b.WriteString(noteTitleStyle.Render("New note"))
	b.WriteString("\n\n")
	b.WriteString(m.title.View())
	b.WriteString("\n")
	b.WriteString(m.content.View())
	b.WriteString("\n")

	var tags []string
	for i, tag := range models.Tags {
		label := string(tag)
		if i == m.tag {
			label = tagStyle.Render("<" + label + ">")
		}
		tags = append(tags, label)
	}
	tagLine := "Tag: " + strings.Join(tags, " ")
	if m.focus == fieldTag {
		tagLine = "> " + tagLine
	}
	b.WriteString(tagLine)

	if m.submitting {
		b.WriteString("\n\nSaving...")
	}
	if m.formErr != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.formErr))
	}
	return modalStyle.Render(b.String())
}
