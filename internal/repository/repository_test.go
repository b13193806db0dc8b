package repository

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))
	return db
}

func createUser(t *testing.T, users *UserRepository, username string) *models.User {
	t.Helper()
	u, err := users.CreateUser(username, username+"@example.com", "hash", "", "")
	require.NoError(t, err)
	return u
}

func sendMessage(t *testing.T, messages *MessageRepository, familyID, senderID int64, content string, at time.Time) *models.Message {
	t.Helper()
	msg, err := messages.CreateMessage(&models.Message{
		FamilyID:  familyID,
		SenderID:  senderID,
		Content:   content,
		Kind:      models.MessageKindText,
		CreatedAt: at,
	})
	require.NoError(t, err)
	return msg
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)

	u, err := users.CreateUser("asha", "Asha@Example.com", "hash", "Asha", "Rao")
	require.NoError(t, err)

	t.Run("profile created with user", func(t *testing.T) {
		got, err := users.GetUserByID(u.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, u.ID, got.Profile.UserID)
		require.False(t, got.Profile.IsDeleted)
		require.Nil(t, got.Profile.FCMToken)
	})

	t.Run("email lookup ignores case", func(t *testing.T) {
		got, err := users.GetUserByEmail("asha@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "asha", got.Username)
	})

	t.Run("missing user is nil", func(t *testing.T) {
		got, err := users.GetUserByUsername("nobody")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("fcm token round trip", func(t *testing.T) {
		token, err := users.GetFCMToken(u.ID)
		require.NoError(t, err)
		require.Empty(t, token)

		require.NoError(t, users.UpdateFCMToken(u.ID, "tok-asha"))
		token, err = users.GetFCMToken(u.ID)
		require.NoError(t, err)
		require.Equal(t, "tok-asha", token)
	})

	t.Run("soft delete then restore", func(t *testing.T) {
		require.NoError(t, users.SoftDeleteUser(u.ID, time.Now().UTC()))

		restored, err := users.RestoreUser(u.ID)
		require.NoError(t, err)
		require.True(t, restored)

		restored, err = users.RestoreUser(u.ID)
		require.NoError(t, err)
		require.False(t, restored)
	})

	t.Run("purge only removes old deletions", func(t *testing.T) {
		old := createUser(t, users, "old")
		recent := createUser(t, users, "recent")
		now := time.Now().UTC()
		require.NoError(t, users.SoftDeleteUser(old.ID, now.Add(-31*24*time.Hour)))
		require.NoError(t, users.SoftDeleteUser(recent.ID, now.Add(-time.Hour)))

		purged, err := users.PurgeDeletedUsers(now.Add(-30 * 24 * time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, purged)

		gone, err := users.GetUserByID(old.ID)
		require.NoError(t, err)
		require.Nil(t, gone)

		kept, err := users.GetUserByID(recent.ID)
		require.NoError(t, err)
		require.NotNil(t, kept)
	})
}

func TestOTPRepository(t *testing.T) {
	db := setupTestDB(t)
	otps := NewOTPRepository(db)
	now := time.Now().UTC()

	_, err := otps.Create("a@example.com", "1234567", now.Add(-time.Minute))
	require.NoError(t, err)
	latest, err := otps.Create("a@example.com", "1234567", now)
	require.NoError(t, err)

	got, err := otps.GetLatest("a@example.com", "1234567", false)
	require.NoError(t, err)
	require.Equal(t, latest.ID, got.ID)

	verified, err := otps.GetLatest("a@example.com", "1234567", true)
	require.NoError(t, err)
	require.Nil(t, verified)

	require.NoError(t, otps.MarkVerified(latest.ID))
	verified, err = otps.GetLatest("a@example.com", "1234567", true)
	require.NoError(t, err)
	require.NotNil(t, verified)
	require.True(t, verified.IsVerified)

	require.NoError(t, otps.DeleteVerified("a@example.com"))
	verified, err = otps.GetLatest("a@example.com", "1234567", true)
	require.NoError(t, err)
	require.Nil(t, verified)
}

func TestFamilyMembership(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	owner := createUser(t, users, "owner")
	member := createUser(t, users, "member")
	outsider := createUser(t, users, "outsider")

	family, err := families.CreateFamily("Rao", "ABC123", owner.ID, true)
	require.NoError(t, err)
	require.Equal(t, "owner", family.OwnerUsername)
	require.Equal(t, []int64{owner.ID}, family.MemberIDs)

	require.NoError(t, families.SaveJoinRequest(family.ID, member.ID))
	jr, err := families.GetJoinRequest(family.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, models.JoinRequestPending, jr.Status)
	require.NoError(t, families.AcceptJoinRequest(jr))

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{"owner", owner.ID, true},
		{"accepted member", member.ID, true},
		{"outsider", outsider.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := families.IsMember(tt.userID, family.ID)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("owner counts even when not listed", func(t *testing.T) {
		members, err := families.GetFamilyMembers(family.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)

		for _, m := range members {
			if m.UserID == owner.ID {
				require.NoError(t, families.DeleteFamilyMember(m.ID))
			}
		}
		ok, err := families.IsMember(owner.ID, family.ID)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("unknown family", func(t *testing.T) {
		ok, err := families.IsMember(owner.ID, family.ID+100)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("rejected request can be reopened", func(t *testing.T) {
		require.NoError(t, families.SaveJoinRequest(family.ID, outsider.ID))
		jr, err := families.GetJoinRequest(family.ID, outsider.ID)
		require.NoError(t, err)
		require.NoError(t, families.RejectJoinRequest(jr.ID))

		require.NoError(t, families.SaveJoinRequest(family.ID, outsider.ID))
		pending, err := families.GetPendingJoinRequests(family.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, outsider.ID, pending[0].UserID)
		require.Equal(t, "Rao", pending[0].FamilyName)
	})
}

func TestMessageRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	messages := NewMessageRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	family, err := families.CreateFamily("F", "FAM001", alice.ID, true)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sendMessage(t, messages, family.ID, alice.ID, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	t.Run("list is newest first and paged", func(t *testing.T) {
		count, err := messages.CountFamilyMessages(family.ID)
		require.NoError(t, err)
		require.Equal(t, 5, count)

		page, err := messages.ListFamilyMessages(family.ID, 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, "m4", page[0].Content)
		require.Equal(t, "m3", page[1].Content)

		page, err = messages.ListFamilyMessages(family.ID, 2, 4)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, "m0", page[0].Content)
	})

	t.Run("mark all read creates receipts once", func(t *testing.T) {
		n, err := messages.MarkAllRead(family.ID, bob.ID)
		require.NoError(t, err)
		require.EqualValues(t, 5, n)

		n, err = messages.MarkAllRead(family.ID, bob.ID)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)

		page, err := messages.ListFamilyMessages(family.ID, 1, 0)
		require.NoError(t, err)
		require.Len(t, page[0].ReadReceipts, 1)
		require.Equal(t, "bob", page[0].ReadReceipts[0].User.Username)
	})

	t.Run("delete clears replies and receipts", func(t *testing.T) {
		target := sendMessage(t, messages, family.ID, alice.ID, "target", base.Add(time.Hour))
		_, err := messages.MarkAllRead(family.ID, bob.ID)
		require.NoError(t, err)

		reply, err := messages.CreateMessage(&models.Message{
			FamilyID:  family.ID,
			SenderID:  bob.ID,
			Content:   "reply",
			Kind:      models.MessageKindText,
			CreatedAt: base.Add(2 * time.Hour),
			ReplyToID: &target.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, reply.ReplyTo)
		require.Equal(t, target.ID, reply.ReplyTo.ID)
		require.Equal(t, "target", reply.ReplyTo.Content)
		require.Equal(t, "alice", reply.ReplyTo.Sender.Username)

		deleted, err := messages.DeleteMessage(target.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		got, err := messages.GetMessageByID(reply.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Nil(t, got.ReplyToID)
		require.Nil(t, got.ReplyTo)

		var receipts int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM message_read_receipts WHERE message_id = ?", target.ID).Scan(&receipts))
		require.Zero(t, receipts)

		deleted, err = messages.DeleteMessage(target.ID)
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("edit marks message edited", func(t *testing.T) {
		msg := sendMessage(t, messages, family.ID, alice.ID, "hi", base)
		require.False(t, msg.IsEdited)
		require.NoError(t, messages.UpdateMessageContent(msg.ID, "hi!"))

		got, err := messages.GetMessageByID(msg.ID)
		require.NoError(t, err)
		require.Equal(t, "hi!", got.Content)
		require.True(t, got.IsEdited)
		require.Equal(t, alice.ID, got.SenderID)
		require.Equal(t, family.ID, got.FamilyID)
	})
}
