package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"clamflow/internal/core"
)

func seedTraceabilityChain(t *testing.T) *core.Service {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	supplier, _, err := svc.CreateSupplier(ctx, "Bay Clams", "555-0102", "LIC002")
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	receipt, _, err := svc.RecordReceipt(ctx, supplier.ID, 50, "", time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("record receipt: %v", err)
	}
	if _, _, err := svc.AssembleLot(ctx, "L-001", []uint64{receipt.ID}, ""); err != nil {
		t.Fatalf("assemble lot: %v", err)
	}
	if _, _, err := svc.SubmitProcessingBatch(ctx, "L-001", []core.Box{
		{Type: core.ProductShellOn, Weight: 30, BoxNumber: "B1", Grade: "A"},
	}); err != nil {
		t.Fatalf("submit batch: %v", err)
	}
	if _, _, err := svc.CreatePackage(ctx, "L-001", "B1", core.ProductShellOn, 30, "A", "QR-001", time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("create package: %v", err)
	}
	return svc
}

func TestWriteTraceabilityWorkbook(t *testing.T) {
	svc := seedTraceabilityChain(t)

	var buf bytes.Buffer
	if err := WriteTraceabilityWorkbook(context.Background(), svc.Store(), &buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	for _, sheet := range []string{SheetReceipts, SheetLots, SheetBatches, SheetPackages} {
		if idx, err := file.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("missing sheet %s (idx %d, err %v)", sheet, idx, err)
		}
	}
	if idx, _ := file.GetSheetIndex("Sheet1"); idx >= 0 {
		t.Fatalf("expected default sheet removed")
	}

	rows, err := file.GetRows(SheetReceipts)
	if err != nil {
		t.Fatalf("read receipt rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one receipt row, got %d", len(rows))
	}
	if rows[1][1] != "Bay Clams" || rows[1][2] != "LIC002" {
		t.Fatalf("unexpected receipt row %v", rows[1])
	}
	if rows[1][5] != "L-001" || rows[1][6] != "assigned" {
		t.Fatalf("expected receipt stamped with lot, got %v", rows[1])
	}

	rows, err = file.GetRows(SheetLots)
	if err != nil {
		t.Fatalf("read lot rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "L-001" {
		t.Fatalf("unexpected lot rows %v", rows)
	}

	rows, err = file.GetRows(SheetPackages)
	if err != nil {
		t.Fatalf("read package rows: %v", err)
	}
	if len(rows) != 2 || rows[1][6] != "QR-001" {
		t.Fatalf("unexpected package rows %v", rows)
	}
}

func TestWriteTraceabilityWorkbookEmptyStore(t *testing.T) {
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())

	var buf bytes.Buffer
	if err := WriteTraceabilityWorkbook(context.Background(), svc.Store(), &buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()
	rows, err := file.GetRows(SheetBatches)
	if err != nil {
		t.Fatalf("read batch rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
