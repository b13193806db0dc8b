package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"selfmanager/internal/models"
)

func TestExpenseVisibility(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	expenses := NewExpenseRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	family, err := families.CreateFamily("F", "FAM001", alice.ID, true)
	require.NoError(t, err)
	require.NoError(t, families.SaveJoinRequest(family.ID, bob.ID))
	jr, err := families.GetJoinRequest(family.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, families.AcceptJoinRequest(jr))

	uid := "exp-1"
	created, err := expenses.CreateExpense(&models.Expense{
		FamilyID:  &family.ID,
		UserID:    alice.ID,
		Amount:    decimal.RequireFromString("120.50"),
		Category:  "Food",
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UUID:      &uid,
		Items:     []string{"rice", "dal"},
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, created.Amount.Equal(decimal.RequireFromString("120.50")))
	require.Equal(t, []string{"rice", "dal"}, created.Items)
	require.Equal(t, "alice", created.Username)

	for _, tt := range []struct {
		name string
		user int64
		want int
	}{
		{"creator", alice.ID, 1},
		{"family member", bob.ID, 1},
		{"outsider", carol.ID, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			list, err := expenses.ListVisibleExpenses(tt.user)
			require.NoError(t, err)
			require.Len(t, list, tt.want)
		})
	}

	exists, err := expenses.UUIDExists(uid, 0)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = expenses.UUIDExists(uid, created.ID)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUdharRepayments(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	udhars := NewUdharRepository(db)
	owner := createUser(t, users, "owner")

	rate := decimal.RequireFromString("1.5")
	u, err := udhars.CreateUdhar(&models.Udhar{
		UserID:     owner.ID,
		PersonName: "Ravi",
		Amount:     decimal.RequireFromString("1000"),
		Rate:       &rate,
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Type:       models.UdharGive,
	})
	require.NoError(t, err)
	require.NotNil(t, u.Rate)
	require.Nil(t, u.DueDate)

	_, err = udhars.AddRepayment(&models.Repayment{UdharID: u.ID, Amount: decimal.RequireFromString("400"), Date: time.Now().UTC()})
	require.NoError(t, err)

	got, err := udhars.GetUdharByID(u.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, got.Repayments, 1)
	require.True(t, got.Balance().Equal(decimal.RequireFromString("600")))

	other, err := udhars.GetUdharByID(u.ID, owner.ID+1)
	require.NoError(t, err)
	require.Nil(t, other)

	require.NoError(t, udhars.CloseUdhar(u.ID, owner.ID))
	got, err = udhars.GetUdharByID(u.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, got.IsClosed)
}

func TestAttendanceUniquePerDay(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	attendance := NewAttendanceRepository(db)
	u := createUser(t, users, "worker")

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	_, err := attendance.CreateAttendance(&models.Attendance{UserID: u.ID, Date: day, Status: "FULL-DAY"})
	require.NoError(t, err)

	_, err = attendance.CreateAttendance(&models.Attendance{UserID: u.ID, Date: day, Status: "HALF-DAY"})
	require.ErrorIs(t, err, ErrDuplicateAttendance)

	list, err := attendance.ListAttendance(u.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestNotesPinnedFirst(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	notes := NewNoteRepository(db)
	u := createUser(t, users, "writer")

	_, err := notes.CreateNote(&models.Note{UserID: u.ID, Title: "plain"})
	require.NoError(t, err)
	_, err = notes.CreateNote(&models.Note{UserID: u.ID, Title: "pinned", IsPinned: true})
	require.NoError(t, err)
	_, err = notes.CreateNote(&models.Note{UserID: u.ID + 1, Title: "someone else"})
	require.Error(t, err)

	list, err := notes.ListNotes(u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "pinned", list[0].Title)
}
