package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"selfmanager/internal/models"
	"selfmanager/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestExpenseService(t *testing.T) {
	env := newTestEnv(t)
	expenses := NewExpenseService(repository.NewExpenseRepository(env.db), env.families, env.dispatcher)

	asha := env.createUser(t, "asha", "Asha")
	bala := env.createUser(t, "bala", "Bala")
	chen := env.createUser(t, "chen", "Chen")
	require.NoError(t, env.users.UpdateFCMToken(asha.ID, "tok-asha"))
	family := env.familyOf(t, "Home", asha, bala)

	t.Run("validation", func(t *testing.T) {
		_, err := expenses.CreateExpense(bala, ExpenseInput{Date: ptr("2026-03-01")})
		requireFieldError(t, err, "amount")

		_, err = expenses.CreateExpense(bala, ExpenseInput{Amount: ptr(decimal.RequireFromString("1.234")), Date: ptr("2026-03-01")})
		requireFieldError(t, err, "amount")

		_, err = expenses.CreateExpense(bala, ExpenseInput{Amount: ptr(decimal.NewFromInt(5)), Date: ptr("01/03/2026")})
		requireFieldError(t, err, "date")
	})

	expense, err := expenses.CreateExpense(bala, ExpenseInput{
		Amount:   ptr(decimal.RequireFromString("250.50")),
		Category: ptr("Groceries"),
		Date:     ptr("2026-03-01"),
		Items:    []string{"milk", "bread"},
	})
	require.NoError(t, err)
	require.NotNil(t, expense.FamilyID)
	require.Equal(t, family.ID, *expense.FamilyID)
	require.NotNil(t, expense.UUID)
	require.Equal(t, []string{"milk", "bread"}, expense.Items)
	require.True(t, decimal.RequireFromString("250.5").Equal(expense.Amount))

	t.Run("family is notified", func(t *testing.T) {
		env.dispatcher.Wait()
		calls := env.sender.Calls()
		require.NotEmpty(t, calls)
		last := calls[len(calls)-1]
		require.Equal(t, []string{"tok-asha"}, last.Tokens)
		require.Equal(t, "New Expense Added", last.Notification.Title)
		require.Equal(t, "Bala added an expense of ₹250.50 for milk, bread", last.Notification.Body)
		require.Equal(t, "new_expense", last.Notification.Data["type"])
	})

	t.Run("uuid must be unique", func(t *testing.T) {
		_, err := expenses.CreateExpense(asha, ExpenseInput{
			Amount: ptr(decimal.NewFromInt(10)),
			Date:   ptr("2026-03-02"),
			UUID:   expense.UUID,
		})
		requireFieldError(t, err, "uuid")
	})

	t.Run("visibility", func(t *testing.T) {
		got, err := expenses.GetExpense(asha.ID, expense.ID)
		require.NoError(t, err)
		require.Equal(t, "bala", got.Username)

		_, err = expenses.GetExpense(chen.ID, expense.ID)
		require.ErrorIs(t, err, ErrExpenseNotFound)

		list, err := expenses.ListExpenses(asha.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = expenses.ListExpenses(chen.ID)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("only the creator modifies", func(t *testing.T) {
		_, err := expenses.UpdateExpense(asha.ID, expense.ID, ExpenseInput{Category: ptr("Fuel")})
		requireDenied(t, err, ReasonNotCreator)

		got, err := expenses.UpdateExpense(bala.ID, expense.ID, ExpenseInput{Category: ptr("Dairy")})
		require.NoError(t, err)
		require.Equal(t, "Dairy", got.Category)
		require.True(t, decimal.RequireFromString("250.50").Equal(got.Amount))

		_, err = expenses.DeleteExpense(asha.ID, expense.ID)
		requireDenied(t, err, ReasonNotCreator)

		_, err = expenses.DeleteExpense(bala.ID, expense.ID)
		require.NoError(t, err)
		_, err = expenses.GetExpense(bala.ID, expense.ID)
		require.ErrorIs(t, err, ErrExpenseNotFound)
	})

	t.Run("user without family keeps it private", func(t *testing.T) {
		before := len(env.sender.Calls())
		solo, err := expenses.CreateExpense(chen, ExpenseInput{Amount: ptr(decimal.NewFromInt(99)), Date: ptr("2026-03-05")})
		require.NoError(t, err)
		require.Nil(t, solo.FamilyID)
		env.dispatcher.Wait()
		require.Len(t, env.sender.Calls(), before)
	})
}

func TestNewExpenseNotification(t *testing.T) {
	user := &models.User{Username: "bala"}
	familyID := int64(2)
	e := &models.Expense{ID: 5, FamilyID: &familyID, Amount: decimal.NewFromInt(40)}

	n := NewExpenseNotification(user, e)
	require.Equal(t, "bala added an expense of ₹40.00", n.Body)
	require.Equal(t, map[string]string{"type": "new_expense", "expense_id": "5", "family_id": "2"}, n.Data)
}

func TestUdharService(t *testing.T) {
	env := newTestEnv(t)
	udhars := NewUdharService(repository.NewUdharRepository(env.db))
	asha := env.createUser(t, "asha", "Asha")
	bala := env.createUser(t, "bala", "Bala")

	_, err := udhars.CreateUdhar(asha.ID, UdharInput{PersonName: ptr("Ravi"), Amount: ptr(decimal.NewFromInt(100)), Date: ptr("2026-02-01"), Type: ptr("LEND")})
	requireFieldError(t, err, "type")

	_, err = udhars.CreateUdhar(asha.ID, UdharInput{Amount: ptr(decimal.NewFromInt(100))})
	requireFieldError(t, err, "person_name")

	udhar, err := udhars.CreateUdhar(asha.ID, UdharInput{
		PersonName: ptr("Ravi"),
		Amount:     ptr(decimal.NewFromInt(1000)),
		Rate:       ptr(decimal.RequireFromString("1.5")),
		Date:       ptr("2026-02-01"),
		DueDate:    ptr("2026-05-01"),
		Type:       ptr(models.UdharGive),
	})
	require.NoError(t, err)
	require.NotNil(t, udhar.DueDate)
	require.False(t, udhar.IsClosed)

	t.Run("repayments reduce the balance", func(t *testing.T) {
		_, err := udhars.AddRepayment(asha.ID, udhar.ID, RepaymentInput{Amount: ptr(decimal.NewFromInt(300)), Date: ptr("2026-03-01"), Note: "first"})
		require.NoError(t, err)
		_, err = udhars.AddRepayment(asha.ID, udhar.ID, RepaymentInput{Amount: ptr(decimal.NewFromInt(200))})
		require.NoError(t, err)

		got, err := udhars.GetUdhar(asha.ID, udhar.ID)
		require.NoError(t, err)
		require.Len(t, got.Repayments, 2)
		require.True(t, decimal.NewFromInt(500).Equal(got.TotalPaid()))
		require.True(t, decimal.NewFromInt(500).Equal(got.Balance()))

		_, err = udhars.AddRepayment(asha.ID, udhar.ID, RepaymentInput{Amount: ptr(decimal.NewFromInt(-1))})
		requireFieldError(t, err, "amount")
	})

	t.Run("entries are private", func(t *testing.T) {
		_, err := udhars.GetUdhar(bala.ID, udhar.ID)
		require.ErrorIs(t, err, ErrUdharNotFound)
		_, err = udhars.AddRepayment(bala.ID, udhar.ID, RepaymentInput{Amount: ptr(decimal.NewFromInt(1))})
		require.ErrorIs(t, err, ErrUdharNotFound)
	})

	t.Run("update and close", func(t *testing.T) {
		got, err := udhars.UpdateUdhar(asha.ID, udhar.ID, UdharInput{Reason: ptr("school fees"), DueDate: ptr("")})
		require.NoError(t, err)
		require.Equal(t, "school fees", got.Reason)
		require.Nil(t, got.DueDate)
		require.Equal(t, "Ravi", got.PersonName)

		closed, err := udhars.CloseUdhar(asha.ID, udhar.ID)
		require.NoError(t, err)
		require.True(t, closed.IsClosed)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, udhars.DeleteUdhar(asha.ID, udhar.ID))
		list, err := udhars.ListUdhars(asha.ID)
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestAttendanceService(t *testing.T) {
	env := newTestEnv(t)
	attendance := NewAttendanceService(repository.NewAttendanceRepository(env.db))
	asha := env.createUser(t, "asha", "Asha")

	first, err := attendance.CreateAttendance(asha.ID, AttendanceInput{Date: ptr("2026-04-01"), Status: ptr("FULL-DAY")})
	require.NoError(t, err)

	_, err = attendance.CreateAttendance(asha.ID, AttendanceInput{Date: ptr("2026-04-01"), Status: ptr("HALF-DAY")})
	requireFieldError(t, err, "non_field_errors")

	second, err := attendance.CreateAttendance(asha.ID, AttendanceInput{Date: ptr("2026-04-02"), Status: ptr("HALF-DAY"), Remark: ptr("dentist")})
	require.NoError(t, err)

	t.Run("range filter", func(t *testing.T) {
		all, err := attendance.ListAttendance(asha.ID, "", "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, second.ID, all[0].ID)

		some, err := attendance.ListAttendance(asha.ID, "2026-04-02", "")
		require.NoError(t, err)
		require.Len(t, some, 1)

		_, err = attendance.ListAttendance(asha.ID, "April", "")
		requireFieldError(t, err, "from")
	})

	t.Run("moving onto a taken date is refused", func(t *testing.T) {
		_, err := attendance.UpdateAttendance(asha.ID, second.ID, AttendanceInput{Date: ptr("2026-04-01")})
		requireFieldError(t, err, "non_field_errors")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, attendance.DeleteAttendance(asha.ID, first.ID))
		_, err := attendance.GetAttendance(asha.ID, first.ID)
		require.ErrorIs(t, err, ErrAttendanceNotFound)
	})
}

func TestNoteService(t *testing.T) {
	env := newTestEnv(t)
	notes := NewNoteService(repository.NewNoteRepository(env.db))
	asha := env.createUser(t, "asha", "Asha")
	bala := env.createUser(t, "bala", "Bala")

	plain, err := notes.CreateNote(asha.ID, NoteInput{Title: ptr("Shopping"), Content: ptr("eggs")})
	require.NoError(t, err)
	_, err = notes.CreateNote(asha.ID, NoteInput{Title: ptr("Later")})
	require.NoError(t, err)

	pinned, err := notes.UpdateNote(asha.ID, plain.ID, NoteInput{IsPinned: ptr(true), ColorID: ptr(3)})
	require.NoError(t, err)
	require.True(t, pinned.IsPinned)
	require.Equal(t, "eggs", pinned.Content)

	list, err := notes.ListNotes(asha.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, plain.ID, list[0].ID)

	_, err = notes.GetNote(bala.ID, plain.ID)
	require.ErrorIs(t, err, ErrNoteNotFound)

	_, err = notes.CreateNote(asha.ID, NoteInput{ColorID: ptr(-1)})
	requireFieldError(t, err, "color_id")

	require.NoError(t, notes.DeleteNote(asha.ID, plain.ID))
	_, err = notes.GetNote(asha.ID, plain.ID)
	require.ErrorIs(t, err, ErrNoteNotFound)
}
