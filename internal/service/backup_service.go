package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"selfmanager/internal/database"
)

// BackupTables lists every application table, parents before children
var BackupTables = []string{
	"users",
	"profiles",
	"otp_requests",
	"families",
	"family_members",
	"join_requests",
	"messages",
	"message_read_receipts",
	"expenses",
	"udhars",
	"repayments",
	"attendance",
	"notes",
}

// Row is one exported table row keyed by column name
type Row map[string]interface{}

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	DatabaseType string           `json:"database_type"`
	Tables       map[string][]Row `json:"tables"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportTo(file)
}

// ExportTo writes a complete backup of the database as indented JSON
func (s *BackupService) ExportTo(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.MigrationsSubdir(),
		Tables:       make(map[string][]Row, len(BackupTables)),
	}

	for _, table := range BackupTables {
		rows, err := s.exportTable(table)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", table, err)
		}
		backup.Tables[table] = rows
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %s", strings.Join(lo.Map(BackupTables, func(table string, _ int) string {
		return fmt.Sprintf("%d %s", len(backup.Tables[table]), table)
	}), ", "))
	return nil
}

func (s *BackupService) exportTable(table string) ([]Row, error) {
	rows, err := s.db.Query("SELECT * FROM " + table + " ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := lo.Map(values, func(_ interface{}, i int) interface{} { return &values[i] })
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a backup in one transaction. Rows whose id already exists are skipped.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		// Import in order of dependencies
		for _, table := range BackupTables {
			imported, err := importTable(tx, table, backup.Tables[table])
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", table, err)
			}
			log.Printf("Imported %d of %d %s", imported, len(backup.Tables[table]), table)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.db.Dialect.MigrationsSubdir() == "postgres" {
		if err := s.resetSequences(); err != nil {
			return err
		}
	}

	log.Println("Database import completed successfully")
	return nil
}

func importTable(tx *database.Tx, table string, rows []Row) (int64, error) {
	var imported int64
	for _, row := range rows {
		columns := lo.Keys(row)
		slices.Sort(columns)

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "),
			strings.Join(lo.Map(columns, func(string, int) string { return "?" }), ", "))
		args := lo.Map(columns, func(column string, _ int) interface{} { return importValue(row[column]) })

		result, err := tx.Exec(tx.GetDialect().InsertIgnore(query, "id"), args...)
		if err != nil {
			return imported, err
		}
		n, _ := result.RowsAffected()
		imported += n
	}
	return imported, nil
}

// importValue turns a decoded JSON value back into a database argument
func importValue(v interface{}) interface{} {
	switch value := v.(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n
		}
		return value.String()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t
		}
		return value
	default:
		return value
	}
}

// resetSequences moves each serial sequence past the highest imported id
func (s *BackupService) resetSequences() error {
	for _, table := range BackupTables {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s", table, table)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

// TableCount is the number of rows held in one table
type TableCount struct {
	Table string
	Rows  int64
}

// Counts returns the row count of every application table
func (s *BackupService) Counts() ([]TableCount, error) {
	counts := make([]TableCount, 0, len(BackupTables))
	for _, table := range BackupTables {
		var n int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// Clear deletes every row from the application tables, children first
func (s *BackupService) Clear() error {
	return s.db.WithTx(func(tx *database.Tx) error {
		for _, table := range slices.Backward(BackupTables) {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Printf("Cleared table: %s", table)
		}
		return nil
	})
}
