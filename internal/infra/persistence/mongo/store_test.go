package mongo

import (
	"context"
	"os"
	"testing"

	"clamflow/pkg/domain"
)

// Integration round-trip against a real server; set CLAMFLOW_TEST_MONGO_URI
// to run.
func TestStoreRoundTripIntegration(t *testing.T) {
	uri := os.Getenv("CLAMFLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CLAMFLOW_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	store, err := NewStore(ctx, uri, "clamflow_test", domain.NewRulesEngine())
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
		supplier, err = tx.CreateSupplier(domain.Supplier{Name: "Bay Clams", LicenseNumber: "LIC002"})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(ctx, uri, "clamflow_test", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, ok := reopened.GetSupplier(supplier.ID)
	if !ok || got.Name != "Bay Clams" {
		t.Fatalf("expected supplier to survive reopen, got %v ok=%v", got, ok)
	}
	if got := len(reopened.ListProductGrades()); got != 4 {
		t.Fatalf("expected 4 seeded grades, got %d", got)
	}
}
