package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/technohippies/scarlett-sub000/internal/config"
	"github.com/technohippies/scarlett-sub000/internal/db"
)

// OpenTestDB connects to the postgres instance named by TEST_DB_HOST. Tests
// skip when the variable is unset so the suite stays runnable without a
// database.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "scarlett",
		Password: "scarlett_pass",
		DBName:   "scarlett_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// ResetTables empties the given tables between test cases.
func ResetTables(t *testing.T, conn *sql.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}
