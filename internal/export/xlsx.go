// Package export renders traceability reports from a persistent store.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"clamflow/pkg/domain"
)

// Sheet names of the traceability workbook, ordered along the processing
// chain.
const (
	SheetReceipts = "Receipts"
	SheetLots     = "Lots"
	SheetBatches  = "Processing Batches"
	SheetPackages = "Packages"
)

const dateLayout = "2006-01-02 15:04:05"

// WriteTraceabilityWorkbook renders the full receipt, lot, batch, and package
// chain as one xlsx workbook with a sheet per collection.
func WriteTraceabilityWorkbook(ctx context.Context, store domain.PersistentStore, w io.Writer) error {
	var (
		receipts  []domain.RawMaterial
		lots      []domain.Lot
		batches   []domain.ProcessingBatch
		packages  []domain.Package
		suppliers = map[uint64]domain.Supplier{}
	)
	err := store.View(ctx, func(view domain.TransactionView) error {
		receipts = view.ListReceipts()
		lots = view.ListLots()
		batches = view.ListProcessingBatches()
		packages = view.ListPackages()
		for _, s := range view.ListSuppliers() {
			suppliers[s.ID] = s
		}
		return nil
	})
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := writeReceiptSheet(file, receipts, suppliers); err != nil {
		return err
	}
	if err := writeLotSheet(file, lots); err != nil {
		return err
	}
	if err := writeBatchSheet(file, batches); err != nil {
		return err
	}
	if err := writePackageSheet(file, packages); err != nil {
		return err
	}
	// excelize starts with a default sheet named Sheet1
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return file.Write(w)
}

func writeReceiptSheet(file *excelize.File, receipts []domain.RawMaterial, suppliers map[uint64]domain.Supplier) error {
	header := []any{"ID", "Supplier", "License", "Weight", "Date", "Lot Number", "Status"}
	rows := make([][]any, 0, len(receipts))
	for _, r := range receipts {
		supplierName, license := "", ""
		if s, ok := suppliers[r.SupplierID]; ok {
			supplierName, license = s.Name, s.LicenseNumber
		}
		lotNumber := ""
		if r.LotNumber != nil {
			lotNumber = *r.LotNumber
		}
		rows = append(rows, []any{r.ID, supplierName, license, r.Weight, r.Date.Format(dateLayout), lotNumber, string(r.Status)})
	}
	return writeSheet(file, SheetReceipts, header, rows)
}

func writeLotSheet(file *excelize.File, lots []domain.Lot) error {
	header := []any{"ID", "Lot Number", "Receipt IDs", "Total Weight", "Status", "Notes", "Created"}
	rows := make([][]any, 0, len(lots))
	for _, l := range lots {
		ids := make([]string, 0, len(l.ReceiptIDs))
		for _, id := range l.ReceiptIDs {
			ids = append(ids, fmt.Sprintf("%d", id))
		}
		rows = append(rows, []any{l.ID, l.LotNumber, strings.Join(ids, ", "), l.TotalWeight, string(l.Status), l.Notes, l.CreatedAt.Format(dateLayout)})
	}
	return writeSheet(file, SheetLots, header, rows)
}

func writeBatchSheet(file *excelize.File, batches []domain.ProcessingBatch) error {
	header := []any{"ID", "Lot Number", "Shell-On Weight", "Meat Weight", "Boxes", "Yield %", "Date", "Status"}
	rows := make([][]any, 0, len(batches))
	for _, b := range batches {
		boxes := make([]string, 0, len(b.Boxes))
		for _, box := range b.Boxes {
			boxes = append(boxes, fmt.Sprintf("%s %s %.2f (%s)", box.BoxNumber, box.Type, box.Weight, box.Grade))
		}
		rows = append(rows, []any{b.ID, b.LotNumber, b.ShellOnWeight, b.MeatWeight, strings.Join(boxes, "; "), b.YieldPercentage, b.Date.Format(dateLayout), string(b.Status)})
	}
	return writeSheet(file, SheetBatches, header, rows)
}

func writePackageSheet(file *excelize.File, packages []domain.Package) error {
	header := []any{"ID", "Lot Number", "Box Number", "Type", "Grade", "Weight", "QR Code", "Date"}
	rows := make([][]any, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, []any{p.ID, p.LotNumber, p.BoxNumber, string(p.Type), p.Grade, p.Weight, p.QRCode, p.Date.Format(dateLayout)})
	}
	return writeSheet(file, SheetPackages, header, rows)
}

func writeSheet(file *excelize.File, name string, header []any, rows [][]any) error {
	if _, err := file.NewSheet(name); err != nil {
		return err
	}
	if err := file.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
