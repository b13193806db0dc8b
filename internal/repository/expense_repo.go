package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// ExpenseRepository handles database operations for expenses
type ExpenseRepository struct {
	db *database.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseSelect = `
	SELECT e.id, e.family_id, e.user_id, u.username, e.amount, e.category, e.date,
	       e.description, e.uuid, e.items, e.image, e.created_at
	FROM expenses e
	INNER JOIN users u ON u.id = e.user_id
`

func scanExpense(row interface{ Scan(...interface{}) error }) (*models.Expense, error) {
	e := &models.Expense{}
	var (
		familyID    sql.NullInt64
		uuid, image sql.NullString
		items       string
	)
	if err := row.Scan(&e.ID, &familyID, &e.UserID, &e.Username, &e.Amount, &e.Category, &e.Date,
		&e.Description, &uuid, &items, &image, &e.CreatedAt); err != nil {
		return nil, err
	}
	if familyID.Valid {
		e.FamilyID = &familyID.Int64
	}
	if uuid.Valid {
		e.UUID = &uuid.String
	}
	if image.Valid {
		e.Image = &image.String
	}
	e.Items = []string{}
	if items != "" {
		if err := json.Unmarshal([]byte(items), &e.Items); err != nil {
			return nil, fmt.Errorf("failed to decode expense items: %w", err)
		}
	}
	return e, nil
}

func encodeItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode expense items: %w", err)
	}
	return string(b), nil
}

// CreateExpense inserts an expense
func (r *ExpenseRepository) CreateExpense(e *models.Expense) (*models.Expense, error) {
	items, err := encodeItems(e.Items)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO expenses (family_id, user_id, amount, category, date, description, uuid, items, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, e.FamilyID, e.UserID, e.Amount, e.Category, e.Date,
		e.Description, e.UUID, items, e.Image, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return r.GetExpenseByID(id)
}

// GetExpenseByID retrieves an expense by ID
func (r *ExpenseRepository) GetExpenseByID(id int64) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(expenseSelect+"WHERE e.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// UUIDExists reports whether another expense already carries the uuid
func (r *ExpenseRepository) UUIDExists(uuid string, exceptID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM expenses WHERE uuid = ? AND id <> ?", uuid, exceptID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check expense uuid: %w", err)
	}
	return count > 0, nil
}

// ListVisibleExpenses returns expenses the user created or that belong to one of their families
func (r *ExpenseRepository) ListVisibleExpenses(userID int64) ([]models.Expense, error) {
	query := expenseSelect + `
		WHERE e.user_id = ?
		   OR e.family_id IN (SELECT family_id FROM family_members WHERE user_id = ?)
		ORDER BY e.date DESC, e.id DESC
	`
	rows, err := r.db.Query(query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// UpdateExpense saves the editable fields of an expense
func (r *ExpenseRepository) UpdateExpense(e *models.Expense) error {
	items, err := encodeItems(e.Items)
	if err != nil {
		return err
	}
	query := `
		UPDATE expenses
		SET amount = ?, category = ?, date = ?, description = ?, uuid = ?, items = ?, image = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, e.Amount, e.Category, e.Date, e.Description, e.UUID, items, e.Image, e.ID); err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// DeleteExpense deletes an expense
func (r *ExpenseRepository) DeleteExpense(id int64) error {
	if _, err := r.db.Exec("DELETE FROM expenses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
