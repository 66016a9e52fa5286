package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/notes-browser/internal/browser"
	interrors "github.com/streed/notes-browser/internal/errors"
	"github.com/streed/notes-browser/internal/models"
	"github.com/streed/notes-browser/internal/querycache"
)

type stubService struct {
	mu         sync.Mutex
	totalPages int
	searches   []string
	created    []models.CreateNoteRequest
}

func (s *stubService) FetchNotes(ctx context.Context, page, perPage int, search string) (*models.NotesPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, search)
	return &models.NotesPage{
		Notes: []models.Note{{
			ID:      fmt.Sprintf("p%d", page),
			Title:   fmt.Sprintf("Note on page %d", page),
			Content: "some content",
			Tag:     models.TagWork,
		}},
		TotalPages: s.totalPages,
	}, nil
}

func (s *stubService) CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	return &models.Note{ID: "new", Title: req.Title, Tag: req.Tag}, nil
}

func (s *stubService) DeleteNote(ctx context.Context, id string) (*models.Note, error) {
	return nil, interrors.ErrNoteNotFound
}

func setupModel(t *testing.T, totalPages int) (Model, *browser.Controller, *stubService) {
	t.Helper()
	svc := &stubService{totalPages: totalPages}
	updates := NewUpdates()
	c := browser.New(svc,
		browser.WithDebounceDelay(20*time.Millisecond),
		browser.WithRetryPolicy(querycache.NoRetry),
		browser.OnChange(updates.OnChange),
	)
	t.Cleanup(c.Close)
	return New(c, updates), c, svc
}

func settle(t *testing.T, m Model, c *browser.Controller) Model {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Await(ctx)
	require.NoError(t, err)
	updated, _ := m.Update(changedMsg{})
	return updated.(Model)
}

func press(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestInitialLoad(t *testing.T) {
	m, c, _ := setupModel(t, 3)

	cmd := m.Init()
	require.NotNil(t, cmd)
	c.Refresh()
	m = settle(t, m, c)

	out := m.View()
	assert.Contains(t, out, "Note on page 1")
	assert.Contains(t, out, "[Work]")
	assert.Contains(t, out, "Page 1 of 3")
}

func TestPaginationHiddenForSinglePage(t *testing.T) {
	m, c, _ := setupModel(t, 1)
	c.Refresh()
	m = settle(t, m, c)

	assert.NotContains(t, m.View(), "Page 1 of")
}

func TestViewStates(t *testing.T) {
	m, _, _ := setupModel(t, 1)

	m.view = browser.View{Page: 1, Loading: true, Fetching: true}
	assert.Contains(t, m.View(), "Loading...")

	m.view = browser.View{Page: 1, Err: &interrors.FetchError{Err: errors.New("down")}}
	assert.Contains(t, m.View(), "Error loading notes")

	m.view = browser.View{Page: 1}
	assert.Contains(t, m.View(), "No notes found.")
}

func TestTypingUpdatesSearch(t *testing.T) {
	m, c, svc := setupModel(t, 1)

	m = typeText(m, "cats")
	assert.Equal(t, "cats", m.search.Value())
	assert.Equal(t, "cats", c.View().SearchInput)

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.searches) == 1 && svc.searches[0] == "cats"
	}, time.Second, 5*time.Millisecond)

	m = settle(t, m, c)
	assert.Equal(t, "cats", m.view.DebouncedSearch)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", m.search.Value())
	assert.Equal(t, "", c.View().SearchInput)
}

func TestArrowKeysChangePage(t *testing.T) {
	m, c, _ := setupModel(t, 2)
	c.Refresh()
	m = settle(t, m, c)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.view.Page, "cannot go before the first page")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	m = settle(t, m, c)
	assert.Equal(t, 2, m.view.Page)
	assert.Contains(t, m.View(), "Note on page 2")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.view.Page, "cannot go past the last page")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.view.Page)
}

func TestCtrlRReloads(t *testing.T) {
	m, c, svc := setupModel(t, 2)
	c.Refresh()
	m = settle(t, m, c)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = settle(t, m, c)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.searches, 2)
	assert.Contains(t, m.View(), "Note on page 1")
}

func TestModalOpenAndCancel(t *testing.T) {
	m, c, _ := setupModel(t, 1)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.True(t, m.view.ModalOpen)
	assert.True(t, c.View().ModalOpen)
	assert.Contains(t, m.View(), "New note")

	m = typeText(m, "Draft")
	assert.Equal(t, "Draft", m.title.Value())
	assert.Equal(t, "", m.search.Value(), "typing in the modal leaves the search alone")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.view.ModalOpen)
	assert.Equal(t, "", m.title.Value())
}

func TestModalSubmit(t *testing.T) {
	m, c, svc := setupModel(t, 1)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = typeText(m, "no")

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.True(t, m.view.ModalOpen, "invalid notes keep the modal open")
	assert.Contains(t, m.formErr, "title must be at least")

	m = typeText(m, "tes")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "body")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.tag)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	assert.False(t, m.view.ModalOpen)
	assert.Empty(t, m.formErr)
	assert.Contains(t, m.status, "notes")

	svc.mu.Lock()
	require.Len(t, svc.created, 1)
	assert.Equal(t, models.CreateNoteRequest{Title: "notes", Content: "body", Tag: models.TagWork}, svc.created[0])
	svc.mu.Unlock()

	m = settle(t, m, c)
	assert.Contains(t, m.View(), "Note on page 1")
}

func TestCtrlCQuits(t *testing.T) {
	m, _, _ := setupModel(t, 1)
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestUpdatesCoalesce(t *testing.T) {
	u := NewUpdates()
	u.OnChange(browser.View{})
	u.OnChange(browser.View{})
	assert.Len(t, u, 1)
}
