package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

const migrationsDir = "../../migrations"

func openMigrated(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(migrationsDir); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openMigrated(t)
	ctx := context.Background()

	tables := []string{
		"users", "profiles", "otp_requests", "families", "family_members", "join_requests",
		"messages", "message_read_receipts", "expenses", "udhars", "repayments", "attendance", "notes",
	}

	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// A second run must be a no-op
	if err := db.RunMigrations(migrationsDir); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openMigrated(t)

	err := db.WithTx(func(tx *Tx) error {
		_, err := tx.ExecReturningID("INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
			"testuser", "test@example.com", "hashedpass")
		return err
	})
	if err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", "testuser").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	if _, err := tx.Exec("INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		"testuser2", "test2@example.com", "hashedpass"); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", "testuser2").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}

// TestInsertIgnoreAgainstUniqueKey checks the receipt insert-or-ignore path end to end
func TestInsertIgnoreAgainstUniqueKey(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openMigrated(t)
	now := time.Now().UTC()

	userID, err := db.ExecReturningID("INSERT INTO users (username, email) VALUES (?, ?)", "a", "a@example.com")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	familyID, err := db.ExecReturningID("INSERT INTO families (name, family_code, owner_id, created_at) VALUES (?, ?, ?, ?)",
		"Fam", "ABC123", userID, now)
	if err != nil {
		t.Fatalf("insert family: %v", err)
	}
	messageID, err := db.ExecReturningID("INSERT INTO messages (family_id, sender_id, content, created_at) VALUES (?, ?, ?, ?)",
		familyID, userID, "hi", now)
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}

	insert := db.Dialect.InsertIgnore("INSERT INTO message_read_receipts (message_id, user_id, read_at) VALUES (?, ?, ?)",
		"message_id", "user_id")

	for i, want := range []int64{1, 0} {
		result, err := db.Exec(insert, messageID, userID, now)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		affected, _ := result.RowsAffected()
		if affected != want {
			t.Errorf("insert %d affected %d rows, want %d", i, affected, want)
		}
	}

	_, err = db.Exec("INSERT INTO message_read_receipts (message_id, user_id, read_at) VALUES (?, ?, ?)", messageID, userID, now)
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}
