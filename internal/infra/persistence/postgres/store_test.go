package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite" // stands in for a live server behind OverrideSQLOpen

	"clamflow/pkg/domain"
)

func TestNewStoreWrapsOpenFailure(t *testing.T) {
	openErr := errors.New("connection refused")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, openErr })
	defer restore()

	_, err := NewStore("", domain.NewRulesEngine())
	var se domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !errors.Is(err, openErr) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
}

func openStubDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE state (bucket TEXT PRIMARY KEY, payload BLOB NOT NULL)`); err != nil {
		t.Fatalf("create stub table: %v", err)
	}
	return db, path
}

func TestNewStoreClosesHandleOnLoadFailure(t *testing.T) {
	db, _ := openStubDB(t)
	if _, err := db.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)`, "meta", []byte(`{"schema_version":999}`)); err != nil {
		t.Fatalf("seed future snapshot: %v", err)
	}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	_, err := NewStore("", domain.NewRulesEngine())
	if !domain.IsSchemaVersion(err) {
		t.Fatalf("expected schema version error, got %v", err)
	}
	if pingErr := db.Ping(); pingErr == nil {
		t.Fatalf("expected handle closed after failed open")
	}
}

func TestDestroyStateDropsTable(t *testing.T) {
	db, path := openStubDB(t)
	if _, err := db.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)`, "meta", []byte(`{"schema_version":1}`)); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if err := DestroyState(context.Background(), ""); err != nil {
		t.Fatalf("destroy state: %v", err)
	}

	check, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen stub db: %v", err)
	}
	defer func() { _ = check.Close() }()
	var name string
	err = check.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='state'`).Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected state table dropped, got name=%q err=%v", name, err)
	}
}

// Integration round-trip against a real server; set CLAMFLOW_TEST_POSTGRES_DSN
// to run.
func TestStoreRoundTripIntegration(t *testing.T) {
	dsn := os.Getenv("CLAMFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLAMFLOW_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	store, err := NewStore(dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	var supplier domain.Supplier
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		supplier, err = tx.CreateSupplier(domain.Supplier{Name: "Ocean Harvest", LicenseNumber: "LIC003"})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, ok := reopened.GetSupplier(supplier.ID)
	if !ok || got.Name != "Ocean Harvest" {
		t.Fatalf("expected supplier to survive reopen, got %v ok=%v", got, ok)
	}
	if got := len(reopened.ListProductGrades()); got != 4 {
		t.Fatalf("expected 4 seeded grades, got %d", got)
	}
}
