package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/streed/notes-browser/internal/constants"
	interrors "github.com/streed/notes-browser/internal/errors"
)

// NoteTag is the single category attached to a note.
type NoteTag string

const (
	TagTodo     NoteTag = "Todo"
	TagWork     NoteTag = "Work"
	TagPersonal NoteTag = "Personal"
	TagMeeting  NoteTag = "Meeting"
	TagShopping NoteTag = "Shopping"
)

// Tags lists every accepted tag in display order.
var Tags = []NoteTag{TagTodo, TagWork, TagPersonal, TagMeeting, TagShopping}

func (t NoteTag) Valid() bool {
	for _, tag := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParseTag matches s against the known tags case-insensitively. An empty
// string yields the default tag.
func ParseTag(s string) (NoteTag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TagTodo, nil
	}
	for _, tag := range Tags {
		if strings.EqualFold(s, string(tag)) {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w: %s", interrors.ErrInvalidTag, s)
}

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tag       NoteTag   `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Preview returns the content flattened to one line and cut to n runes.
func (n *Note) Preview(limit int) string {
	preview := strings.ReplaceAll(n.Content, "\n", " ")
	if utf8.RuneCountInString(preview) <= limit {
		return preview
	}
	runes := []rune(preview)
	if limit <= 3 {
		return string(runes[:max(limit, 0)])
	}
	return string(runes[:limit-3]) + "..."
}

// NotesPage is one page of a note listing.
type NotesPage struct {
	Notes      []Note `json:"notes"`
	TotalPages int    `json:"totalPages"`
}

type CreateNoteRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Tag     NoteTag `json:"tag"`
}

// Normalize trims the title and fills the default tag.
func (r *CreateNoteRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Tag == "" {
		r.Tag = TagTodo
	}
}

// Validate checks the request against the note form rules.
func (r CreateNoteRequest) Validate() error {
	titleLen := utf8.RuneCountInString(strings.TrimSpace(r.Title))
	switch {
	case titleLen < constants.MinTitleLength:
		return fmt.Errorf("%w: title must be at least %d characters", interrors.ErrInvalidNote, constants.MinTitleLength)
	case titleLen > constants.MaxTitleLength:
		return fmt.Errorf("%w: title must be at most %d characters", interrors.ErrInvalidNote, constants.MaxTitleLength)
	case utf8.RuneCountInString(r.Content) > constants.MaxContentLength:
		return fmt.Errorf("%w: content must be at most %d characters", interrors.ErrInvalidNote, constants.MaxContentLength)
	case !r.Tag.Valid():
		return fmt.Errorf("%w: %q", interrors.ErrInvalidTag, r.Tag)
	}
	return nil
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
