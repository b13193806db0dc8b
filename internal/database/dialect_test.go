package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM messages WHERE id = ?",
			expected: "SELECT * FROM messages WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM messages WHERE id = ?",
			expected: "SELECT * FROM messages WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO messages (family_id, sender_id) VALUES (?, ?)",
			expected: "INSERT INTO messages (family_id, sender_id) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE messages SET content = ?, is_edited = ? WHERE id = ?",
			expected: "UPDATE messages SET content = ?, is_edited = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInsertIgnore(t *testing.T) {
	insert := "INSERT INTO message_read_receipts (message_id, user_id, read_at) SELECT m.id, ?, ? FROM messages m WHERE m.family_id = ?"

	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "SQLite uses OR IGNORE",
			dialect:  NewSQLiteDialect(),
			expected: "INSERT OR IGNORE INTO message_read_receipts (message_id, user_id, read_at) SELECT m.id, ?, ? FROM messages m WHERE m.family_id = ?",
		},
		{
			name:     "MySQL uses INSERT IGNORE",
			dialect:  NewMySQLDialect(),
			expected: "INSERT IGNORE INTO message_read_receipts (message_id, user_id, read_at) SELECT m.id, ?, ? FROM messages m WHERE m.family_id = ?",
		},
		{
			name:     "PostgreSQL appends ON CONFLICT",
			dialect:  NewPostgresDialect(),
			expected: insert + " ON CONFLICT (message_id, user_id) DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.InsertIgnore(insert, "message_id", "user_id")
			if result != tt.expected {
				t.Errorf("InsertIgnore() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "adds both options",
			url:      "user:pass@tcp(localhost:3306)/selfmanager",
			expected: "user:pass@tcp(localhost:3306)/selfmanager?parseTime=true&multiStatements=true",
		},
		{
			name:     "keeps existing query",
			url:      "user:pass@tcp(localhost:3306)/selfmanager?charset=utf8mb4",
			expected: "user:pass@tcp(localhost:3306)/selfmanager?charset=utf8mb4&parseTime=true&multiStatements=true",
		},
		{
			name:     "respects explicit parseTime",
			url:      "user:pass@tcp(localhost:3306)/selfmanager?parseTime=false",
			expected: "user:pass@tcp(localhost:3306)/selfmanager?parseTime=false&multiStatements=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewMySQLDialect().DSN(DialectConfig{URL: tt.url})
			if result != tt.expected {
				t.Errorf("DSN() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		input   string
		driver  string
		wantErr bool
	}{
		{input: "", driver: "sqlite3"},
		{input: "SQLite", driver: "sqlite3"},
		{input: "postgresql", driver: "postgres"},
		{input: "mysql", driver: "mysql"},
		{input: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			dialect, err := DialectFor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && dialect.DriverName() != tt.driver {
				t.Errorf("DialectFor(%q) driver = %v, want %v", tt.input, dialect.DriverName(), tt.driver)
			}
		})
	}
}
