package schema_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/JaimeStill/labrecon/internal/schema"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.TempDir()+"/schema.db?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestUpSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	for range 2 {
		if err := schema.Up(ctx, db, "sqlite"); err != nil {
			t.Fatalf("Up() error = %v", err)
		}
	}

	for _, table := range []string{"reconciliations", "divergence_resolutions", "procedure_aliases"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing after Up", table)
		}
	}

	if err := db.Ping(); err != nil {
		t.Errorf("shared db closed by migrations: %v", err)
	}
}

func TestCompletedContentKeyUnique(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	if err := schema.Up(ctx, db, "sqlite"); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	insert := `INSERT INTO reconciliations
		(id, name, content_key, status, outcome, total_a, total_b, result, created_at, updated_at)
		VALUES (?, 'march', 'k1', ?, 'OK', '0', '0', '{}', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

	if _, err := db.Exec(insert, "a", "archived"); err != nil {
		t.Fatalf("insert archived: %v", err)
	}
	if _, err := db.Exec(insert, "b", "completed"); err != nil {
		t.Fatalf("insert completed alongside archived: %v", err)
	}
	if _, err := db.Exec(insert, "c", "completed"); err == nil {
		t.Error("second completed row with the same content key should violate the unique index")
	}
}

func TestDownSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	m, err := schema.New(ctx, db, "sqlite")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	version, dirty, err := m.Version()
	if err != nil || dirty || version != 2 {
		t.Fatalf("Version() = %d, %v, %v; want 2, false, nil", version, dirty, err)
	}

	if err := m.Down(); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if tableExists(t, db, "reconciliations") {
		t.Error("reconciliations should be dropped")
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := schema.New(context.Background(), openSQLite(t), "mysql")
	if !errors.Is(err, schema.ErrUnsupportedDriver) {
		t.Errorf("New() error = %v, want ErrUnsupportedDriver", err)
	}
}
