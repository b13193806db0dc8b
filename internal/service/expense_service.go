package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"selfmanager/internal/models"
	"selfmanager/internal/notify"
	"selfmanager/internal/repository"
	"selfmanager/internal/validation"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

var maxAmount = decimal.RequireFromString("99999999.99")

// ExpenseService handles expenses shared within a family
type ExpenseService struct {
	expenses *repository.ExpenseRepository
	families *repository.FamilyRepository
	notifier Notifier
	now      func() time.Time
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenses *repository.ExpenseRepository, families *repository.FamilyRepository, notifier Notifier) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		families: families,
		notifier: notifier,
		now:      time.Now,
	}
}

// ExpenseInput is the client-editable part of an expense. Nil fields keep their current value on update.
type ExpenseInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Date        *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description *string          `json:"description"`
	Items       []string         `json:"items"`
	UUID        *string          `json:"uuid" validate:"omitempty,max=100"`
	Image       *string          `json:"-"`
}

func validateAmount(errs validation.Errors, amount decimal.Decimal) {
	switch {
	case !amount.IsPositive():
		errs.Add("amount", "Ensure this value is greater than 0.")
	case !amount.Equal(amount.Round(2)):
		errs.Add("amount", "Ensure that there are no more than 2 decimal places.")
	case amount.GreaterThan(maxAmount):
		errs.Add("amount", "Ensure that there are no more than 10 digits in total.")
	}
}

func (s *ExpenseService) apply(e *models.Expense, in ExpenseInput, creating bool) error {
	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs = fieldErrs
	}

	if in.Amount != nil {
		validateAmount(errs, *in.Amount)
	} else if creating {
		errs.Add("amount", "This field is required.")
	}
	if in.Date == nil && creating {
		errs.Add("date", "This field is required.")
	}
	if in.UUID != nil && *in.UUID != "" {
		taken, err := s.expenses.UUIDExists(*in.UUID, e.ID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("uuid", "expense with this uuid already exists.")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Date != nil {
		date, err := time.Parse(DateLayout, *in.Date)
		if err != nil {
			return validation.FieldError("date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
		e.Date = date
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Items != nil {
		e.Items = in.Items
	}
	if in.UUID != nil && *in.UUID != "" {
		e.UUID = in.UUID
	}
	if in.Image != nil {
		e.Image = in.Image
	}
	return nil
}

// CreateExpense records an expense and shares it with the creator's first family
func (s *ExpenseService) CreateExpense(user *models.User, in ExpenseInput) (*models.Expense, error) {
	expense := &models.Expense{UserID: user.ID, Items: []string{}}
	if err := s.apply(expense, in, true); err != nil {
		return nil, err
	}
	if expense.UUID == nil {
		id := uuid.NewString()
		expense.UUID = &id
	}

	familyID, err := s.families.GetFirstFamilyID(user.ID)
	if err != nil {
		return nil, err
	}
	expense.FamilyID = familyID
	expense.CreatedAt = s.now().UTC()

	created, err := s.expenses.CreateExpense(expense)
	if err != nil {
		return nil, err
	}

	if created.FamilyID != nil {
		s.notifyNewExpense(user, created)
	}
	return created, nil
}

func (s *ExpenseService) notifyNewExpense(user *models.User, e *models.Expense) {
	family, err := s.families.GetFamilyByID(*e.FamilyID)
	if err != nil || family == nil {
		log.Printf("Failed to load family for expense %d notification: %v", e.ID, err)
		return
	}

	recipients := lo.Without(lo.Uniq(append([]int64{family.OwnerID}, family.MemberIDs...)), user.ID)
	if len(recipients) == 0 {
		return
	}
	s.notifier.Dispatch(recipients, NewExpenseNotification(user, e))
}

// NewExpenseNotification builds the push payload announcing an expense
func NewExpenseNotification(user *models.User, e *models.Expense) notify.Notification {
	body := fmt.Sprintf("%s added an expense of ₹%s", user.DisplayName(), e.Amount.StringFixed(2))
	if len(e.Items) > 0 {
		body += " for " + strings.Join(e.Items, ", ")
	}

	data := map[string]string{
		"type":       "new_expense",
		"expense_id": strconv.FormatInt(e.ID, 10),
	}
	if e.FamilyID != nil {
		data["family_id"] = strconv.FormatInt(*e.FamilyID, 10)
	}
	return notify.Notification{Title: "New Expense Added", Body: body, Data: data}
}

// ListExpenses returns the expenses the user created or that belong to their families
func (s *ExpenseService) ListExpenses(userID int64) ([]models.Expense, error) {
	return s.expenses.ListVisibleExpenses(userID)
}

// GetExpense returns an expense visible to the user
func (s *ExpenseService) GetExpense(userID, expenseID int64) (*models.Expense, error) {
	expense, err := s.expenses.GetExpenseByID(expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}
	if expense.UserID == userID {
		return expense, nil
	}
	if expense.FamilyID != nil {
		member, err := s.families.IsMember(userID, *expense.FamilyID)
		if err != nil {
			return nil, err
		}
		if member {
			return expense, nil
		}
	}
	return nil, ErrExpenseNotFound
}

func (s *ExpenseService) getOwnExpense(userID, expenseID int64) (*models.Expense, error) {
	expense, err := s.GetExpense(userID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.UserID != userID {
		return nil, deny(ReasonNotCreator, "Only the creator can modify this expense.")
	}
	return expense, nil
}

// UpdateExpense applies in to one of the user's own expenses
func (s *ExpenseService) UpdateExpense(userID, expenseID int64, in ExpenseInput) (*models.Expense, error) {
	expense, err := s.getOwnExpense(userID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(expense, in, false); err != nil {
		return nil, err
	}
	if err := s.expenses.UpdateExpense(expense); err != nil {
		return nil, err
	}
	return s.expenses.GetExpenseByID(expenseID)
}

// DeleteExpense removes one of the user's own expenses. The removed expense is
// returned so its image can be cleaned up.
func (s *ExpenseService) DeleteExpense(userID, expenseID int64) (*models.Expense, error) {
	expense, err := s.getOwnExpense(userID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.expenses.DeleteExpense(expenseID); err != nil {
		return nil, err
	}
	return expense, nil
}
