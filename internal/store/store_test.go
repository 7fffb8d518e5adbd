package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range Tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}

	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	expected := map[string][]string{
		TableReceipts:      {"receipt_id", "block_height", "predecessor_id", "receiver_id", "receipt_kind"},
		TableData:          {"data_id", "receipt_id", "data"},
		TableActions:       {"receipt_id", "signer_id", "signer_public_key", "gas_price", "gas_price_fallback"},
		TableActionActions: {"receipt_id", "index_in_action_receipt", "action_kind", "args"},
		TableInputData:     {"receipt_id", "data_id"},
		TableOutputData:    {"receipt_id", "data_id", "receiver_id"},
	}

	for table, cols := range expected {
		columns := getTableColumns(t, s.db, table)
		if !slices.Equal(columns, cols) {
			t.Errorf("%s columns = %v, want %v", table, columns, cols)
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	expected := map[string]string{
		TableReceipts:   "idx_receipts_receiver",
		TableData:       "idx_receipt_data_receipt",
		TableInputData:  "idx_input_data_data_id",
		TableOutputData: "idx_output_data_data_id",
	}

	for table, idx := range expected {
		if !slices.Contains(getTableIndexes(t, s.db, table), idx) {
			t.Errorf("%s table missing index %q", table, idx)
		}
	}
}

func TestMigration_RecreatesIndexesOnOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// Simulate a database created before v1.
	for _, stmt := range []string{
		"DROP INDEX idx_input_data_data_id",
		"DROP INDEX idx_output_data_data_id",
		"PRAGMA user_version = 0",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
	if !slices.Contains(getTableIndexes(t, s.db, TableInputData), "idx_input_data_data_id") {
		t.Error("migration did not recreate idx_input_data_data_id")
	}
	if !slices.Contains(getTableIndexes(t, s.db, TableOutputData), "idx_output_data_data_id") {
		t.Error("migration did not recreate idx_output_data_data_id")
	}
}

func TestConstraint_ReceiptKindCheck(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO receipts (receipt_id, block_height, predecessor_id, receiver_id, receipt_kind)
		VALUES (x'01', '1', 'a', 'b', 'DELAYED')
	`)
	if err == nil {
		t.Error("expected CHECK constraint violation for unknown receipt_kind")
	}
}

func TestConstraint_ForeignKey(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO receipt_action_input_data (receipt_id, data_id)
		VALUES (x'01', x'02')
	`)
	if err == nil {
		t.Error("expected foreign key violation for edge without receipt")
	}
}

// createTestStore opens a fresh database that is closed when the test ends.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
