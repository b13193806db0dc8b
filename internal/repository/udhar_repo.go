package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// UdharRepository handles database operations for udhar entries and their repayments
type UdharRepository struct {
	db *database.DB
}

// NewUdharRepository creates a new udhar repository
func NewUdharRepository(db *database.DB) *UdharRepository {
	return &UdharRepository{db: db}
}

const udharSelect = `
	SELECT id, user_id, person_name, amount, rate, date, due_date, reason, type, is_closed, created_at, updated_at
	FROM udhars
`

func scanUdhar(row interface{ Scan(...interface{}) error }) (*models.Udhar, error) {
	u := &models.Udhar{}
	var (
		rate    decimal.NullDecimal
		dueDate sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.UserID, &u.PersonName, &u.Amount, &rate, &u.Date, &dueDate,
		&u.Reason, &u.Type, &u.IsClosed, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if rate.Valid {
		u.Rate = &rate.Decimal
	}
	if dueDate.Valid {
		u.DueDate = &dueDate.Time
	}
	return u, nil
}

// CreateUdhar inserts an udhar entry
func (r *UdharRepository) CreateUdhar(u *models.Udhar) (*models.Udhar, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO udhars (user_id, person_name, amount, rate, date, due_date, reason, type, is_closed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, u.UserID, u.PersonName, u.Amount, nullDecimal(u.Rate), u.Date, u.DueDate,
		u.Reason, u.Type, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create udhar: %w", err)
	}
	return r.GetUdharByID(id, u.UserID)
}

// GetUdharByID retrieves one of the user's udhar entries with its repayments
func (r *UdharRepository) GetUdharByID(id, userID int64) (*models.Udhar, error) {
	u, err := scanUdhar(r.db.QueryRow(udharSelect+"WHERE id = ? AND user_id = ?", id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get udhar: %w", err)
	}

	if u.Repayments, err = r.GetRepayments(u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUdhars returns the user's udhar entries, most recent first
func (r *UdharRepository) ListUdhars(userID int64) ([]models.Udhar, error) {
	rows, err := r.db.Query(udharSelect+"WHERE user_id = ? ORDER BY date DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query udhars: %w", err)
	}
	defer rows.Close()

	udhars := []models.Udhar{}
	for rows.Next() {
		u, err := scanUdhar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan udhar: %w", err)
		}
		udhars = append(udhars, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate udhars: %w", err)
	}

	for i := range udhars {
		if udhars[i].Repayments, err = r.GetRepayments(udhars[i].ID); err != nil {
			return nil, err
		}
	}
	return udhars, nil
}

// UpdateUdhar saves the editable fields of an udhar entry
func (r *UdharRepository) UpdateUdhar(u *models.Udhar) error {
	query := `
		UPDATE udhars
		SET person_name = ?, amount = ?, rate = ?, date = ?, due_date = ?, reason = ?, type = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.Exec(query, u.PersonName, u.Amount, nullDecimal(u.Rate), u.Date, u.DueDate, u.Reason, u.Type,
		time.Now().UTC(), u.ID, u.UserID)
	if err != nil {
		return fmt.Errorf("failed to update udhar: %w", err)
	}
	return nil
}

// CloseUdhar marks an udhar entry settled
func (r *UdharRepository) CloseUdhar(id, userID int64) error {
	if _, err := r.db.Exec("UPDATE udhars SET is_closed = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		true, time.Now().UTC(), id, userID); err != nil {
		return fmt.Errorf("failed to close udhar: %w", err)
	}
	return nil
}

// DeleteUdhar deletes an udhar entry and its repayments
func (r *UdharRepository) DeleteUdhar(id, userID int64) error {
	if _, err := r.db.Exec("DELETE FROM udhars WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete udhar: %w", err)
	}
	return nil
}

// AddRepayment records a repayment against an udhar entry
func (r *UdharRepository) AddRepayment(rp *models.Repayment) (*models.Repayment, error) {
	rp.CreatedAt = time.Now().UTC()
	id, err := r.db.ExecReturningID("INSERT INTO repayments (udhar_id, amount, date, note, created_at) VALUES (?, ?, ?, ?, ?)",
		rp.UdharID, rp.Amount, rp.Date, rp.Note, rp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add repayment: %w", err)
	}
	rp.ID = id
	return rp, nil
}

// GetRepayments lists the repayments of an udhar entry in date order
func (r *UdharRepository) GetRepayments(udharID int64) ([]models.Repayment, error) {
	rows, err := r.db.Query("SELECT id, udhar_id, amount, date, note, created_at FROM repayments WHERE udhar_id = ? ORDER BY date ASC, id ASC", udharID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repayments: %w", err)
	}
	defer rows.Close()

	repayments := []models.Repayment{}
	for rows.Next() {
		var rp models.Repayment
		if err := rows.Scan(&rp.ID, &rp.UdharID, &rp.Amount, &rp.Date, &rp.Note, &rp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repayment: %w", err)
		}
		repayments = append(repayments, rp)
	}
	return repayments, rows.Err()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
