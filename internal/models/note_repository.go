package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	interrors "github.com/streed/notes-browser/internal/errors"
)

const noteColumns = "id, title, content, tag, created_at, updated_at"

type NoteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db, now: time.Now}
}

func (r *NoteRepository) Create(req CreateNoteRequest) (*Note, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := r.now().UTC()
	_, err := r.db.Exec(
		"INSERT INTO notes (id, title, content, tag, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, req.Title, req.Content, string(req.Tag), now, now,
	)
	if err != nil {
		return nil, queryError("failed to create note", err)
	}

	return r.GetByID(id)
}

func (r *NoteRepository) GetByID(id string) (*Note, error) {
	note, err := scanNote(r.db.QueryRow(
		"SELECT "+noteColumns+" FROM notes WHERE id = ?",
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrNoteNotFound
	}
	if err != nil {
		return nil, queryError("failed to get note", err)
	}

	return note, nil
}

// ListPage returns the 1-based page of notes matching search, newest first,
// along with the total page count for that search.
func (r *NoteRepository) ListPage(page, perPage int, search string) (*NotesPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", interrors.ErrInvalidPage, page)
	}
	if perPage < 1 {
		return nil, fmt.Errorf("%w: %d", interrors.ErrInvalidPerPage, perPage)
	}

	where := ""
	args := []interface{}{}
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		where = ` WHERE lower(title) LIKE ? ESCAPE '\' OR lower(content) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM notes"+where, args...).Scan(&total); err != nil {
		return nil, queryError("failed to count notes", err)
	}

	result := &NotesPage{
		Notes:      []Note{},
		TotalPages: TotalPages(total, perPage),
	}
	if total == 0 {
		return result, nil
	}

	query := "SELECT " + noteColumns + " FROM notes" + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, queryError("failed to list notes", err)
	}
	defer rows.Close()

	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, queryError("failed to scan note", err)
		}
		result.Notes = append(result.Notes, *note)
	}

	if err = rows.Err(); err != nil {
		return nil, queryError("error iterating rows", err)
	}

	return result, nil
}

// Delete removes a note and returns it as it was before deletion.
func (r *NoteRepository) Delete(id string) (*Note, error) {
	note, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec("DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return nil, queryError("failed to delete note", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, queryError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return nil, interrors.ErrNoteNotFound
	}

	return note, nil
}

func (r *NoteRepository) Count() (int, error) {
	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&total); err != nil {
		return 0, queryError("failed to count notes", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*Note, error) {
	var note Note
	var tag string
	if err := row.Scan(&note.ID, &note.Title, &note.Content, &tag, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}
	note.Tag = NoteTag(tag)
	return &note, nil
}

// queryError marks err as a storage failure so callers can tell it apart
// from validation and not-found errors.
func queryError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, interrors.ErrDatabaseQuery, err)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
