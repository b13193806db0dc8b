package repository

import (
	"database/sql"
	"fmt"
	"time"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// NoteRepository handles database operations for notes
type NoteRepository struct {
	db *database.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *database.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteSelect = "SELECT id, user_id, title, content, color_id, is_pinned, created_at, updated_at FROM notes "

func scanNote(row interface{ Scan(...interface{}) error }) (*models.Note, error) {
	n := &models.Note{}
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.ColorID, &n.IsPinned, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// CreateNote inserts a note
func (r *NoteRepository) CreateNote(n *models.Note) (*models.Note, error) {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(`
		INSERT INTO notes (user_id, title, content, color_id, is_pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.UserID, n.Title, n.Content, n.ColorID, n.IsPinned, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	n.UpdatedAt = now
	return n, nil
}

// GetNote retrieves one of the user's notes
func (r *NoteRepository) GetNote(id, userID int64) (*models.Note, error) {
	n, err := scanNote(r.db.QueryRow(noteSelect+"WHERE id = ? AND user_id = ?", id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// ListNotes returns the user's notes, pinned first then most recently updated
func (r *NoteRepository) ListNotes(userID int64) ([]models.Note, error) {
	rows, err := r.db.Query(noteSelect+"WHERE user_id = ? ORDER BY is_pinned DESC, updated_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// UpdateNote saves a note's fields and bumps updated_at
func (r *NoteRepository) UpdateNote(n *models.Note) error {
	n.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(`
		UPDATE notes SET title = ?, content = ?, color_id = ?, is_pinned = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, n.Title, n.Content, n.ColorID, n.IsPinned, n.UpdatedAt, n.ID, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

// DeleteNote deletes one of the user's notes
func (r *NoteRepository) DeleteNote(id, userID int64) error {
	if _, err := r.db.Exec("DELETE FROM notes WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}
