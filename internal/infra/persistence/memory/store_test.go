package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"clamflow/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(domain.NewRulesEngine())
	store.SetNowFunc(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	return store
}

func createSupplier(t *testing.T, store *Store) Supplier {
	t.Helper()
	var created Supplier
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateSupplier(Supplier{Name: "Bay Clams", Contact: "555-0102", LicenseNumber: "LIC002"})
		return err
	}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return created
}

func TestNewStoreSeedsProductGrades(t *testing.T) {
	store := newTestStore(t)
	grades := store.ListProductGrades()
	if len(grades) != 4 {
		t.Fatalf("expected 4 seeded grades, got %d", len(grades))
	}
	byType := map[domain.ProductType]int{}
	for _, g := range grades {
		byType[g.ProductType]++
		if g.Code != "A" && g.Code != "B" {
			t.Fatalf("unexpected grade code %q", g.Code)
		}
	}
	if byType[domain.ProductShellOn] != 2 || byType[domain.ProductMeat] != 2 {
		t.Fatalf("expected two grades per product type, got %v", byType)
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := newTestStore(t)
	supplier := createSupplier(t, store)

	fault := errors.New("mid-transaction fault")
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateReceipt(RawMaterial{SupplierID: supplier.ID, Weight: 10}); err != nil {
			return err
		}
		if _, err := tx.CreateLot(Lot{LotNumber: "L-100", TotalWeight: 10}); err != nil {
			return err
		}
		return fault
	})
	if !errors.Is(err, fault) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	if got := len(store.ListReceipts()); got != 0 {
		t.Fatalf("expected no receipts after rollback, got %d", got)
	}
	if _, ok := store.GetLot("L-100"); ok {
		t.Fatalf("expected no lot after rollback")
	}
}

func TestBlockingRuleViolationAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)
	supplier := Supplier{Name: "x"}

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var cErr error
		supplier, cErr = tx.CreateSupplier(supplier)
		return cErr
	})
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violations in result")
	}
	if got := len(store.ListSuppliers()); got != 0 {
		t.Fatalf("expected blocked transaction to leave no suppliers, got %d", got)
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (r blockAllRule) Evaluate(_ context.Context, _ TransactionView, changes []Change) (Result, error) {
	var res Result
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{Rule: r.Name(), Severity: domain.SeverityBlock, Message: "blocked"})
	}
	return res, nil
}

func TestCreateReceiptRequiresSupplier(t *testing.T) {
	store := newTestStore(t)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateReceipt(RawMaterial{SupplierID: 99, Weight: 5})
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for missing supplier, got %v", err)
	}
}

func TestCreateLotRejectsDuplicateLotNumber(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateLot(Lot{LotNumber: "L-001"})
		return err
	}); err != nil {
		t.Fatalf("first lot: %v", err)
	}
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateLot(Lot{LotNumber: "L-001"})
		return err
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate lot number, got %v", err)
	}
}

func TestDeleteSupplierGuardedByReceipts(t *testing.T) {
	store := newTestStore(t)
	supplier := createSupplier(t, store)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateReceipt(RawMaterial{SupplierID: supplier.ID, Weight: 12})
		return err
	}); err != nil {
		t.Fatalf("create receipt: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSupplier(supplier.ID)
	})
	if !domain.IsReferentialIntegrity(err) {
		t.Fatalf("expected referential integrity error, got %v", err)
	}

	var unreferenced Supplier
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var cErr error
		unreferenced, cErr = tx.CreateSupplier(Supplier{Name: "Ocean Harvest"})
		return cErr
	}); err != nil {
		t.Fatalf("create second supplier: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSupplier(unreferenced.ID)
	}); err != nil {
		t.Fatalf("delete unreferenced supplier: %v", err)
	}
}

func TestDeleteProductGradeGuardedByBatchBoxes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var gradeID uint64
	for _, g := range store.ListProductGrades() {
		if g.Code == "A" && g.ProductType == domain.ProductShellOn {
			gradeID = g.ID
		}
	}
	if gradeID == 0 {
		t.Fatalf("seeded grade A shell-on missing")
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateLot(Lot{LotNumber: "L-001"}); err != nil {
			return err
		}
		_, err := tx.CreateProcessingBatch(ProcessingBatch{
			LotNumber:     "L-001",
			ShellOnWeight: 10,
			Boxes:         []domain.Box{{Type: domain.ProductShellOn, Weight: 10, BoxNumber: "B1", Grade: "A"}},
			Status:        domain.BatchStatusCompleted,
		})
		return err
	}); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteProductGrade(gradeID)
	})
	if !domain.IsReferentialIntegrity(err) {
		t.Fatalf("expected referential integrity error, got %v", err)
	}
}

func TestShellWeightDeleteExactness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var first, second ShellWeight
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		if first, err = tx.CreateShellWeight(ShellWeight{Weight: 3.5}); err != nil {
			return err
		}
		second, err = tx.CreateShellWeight(ShellWeight{Weight: 4.5})
		return err
	}); err != nil {
		t.Fatalf("create shell weights: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteShellWeight(first.ID)
	}); err != nil {
		t.Fatalf("delete shell weight: %v", err)
	}

	remaining := store.ListShellWeights()
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("expected only entry %d to remain, got %v", second.ID, remaining)
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteShellWeight(first.ID)
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for repeated delete, got %v", err)
	}
}

func TestSequencesNeverReuseIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var first ShellWeight
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		first, err = tx.CreateShellWeight(ShellWeight{Weight: 1})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteShellWeight(first.ID)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var second ShellWeight
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		second, err = tx.CreateShellWeight(ShellWeight{Weight: 2})
		return err
	}); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected id %d to be allocated after %d", second.ID, first.ID)
	}
}

func TestResetReseedsReferenceData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createSupplier(t, store)

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := len(store.ListSuppliers()); got != 0 {
		t.Fatalf("expected suppliers wiped by reset, got %d", got)
	}
	if got := len(store.ListProductGrades()); got != 4 {
		t.Fatalf("expected grades reseeded after reset, got %d", got)
	}
}

func TestViewSeesCommittedStateOnly(t *testing.T) {
	store := newTestStore(t)
	supplier := createSupplier(t, store)
	ctx := context.Background()

	fault := errors.New("abort")
	_, _ = store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateReceipt(RawMaterial{SupplierID: supplier.ID, Weight: 9}); err != nil {
			return err
		}
		return fault
	})

	if err := store.View(ctx, func(view TransactionView) error {
		if got := len(view.ListReceipts()); got != 0 {
			t.Fatalf("expected view of committed state only, got %d receipts", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
