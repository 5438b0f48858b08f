package core

import (
	"context"
	"sort"

	"clamflow/pkg/domain"
)

// LotSummary is the read-side join consumed by lot pickers: a lot plus the
// denormalized names of the suppliers behind its receipts.
type LotSummary struct {
	Lot
	SupplierNames []string `json:"supplier_names"`
}

// AssembleLot groups pending receipts into a new lot. Either every selected
// receipt is stamped assigned with the lot number and the lot record is
// created, or nothing changes. TotalWeight is the sum of the selected
// receipts' weights at assembly time.
func (s *Service) AssembleLot(ctx context.Context, lotNumber string, receiptIDs []uint64, notes string) (Lot, Result, error) {
	ctx, finish := s.instrument(ctx, "assemble_lot")
	if lotNumber == "" {
		err := domain.ValidationError{Field: "lotNumber", Reason: "must not be empty"}
		finish(lotNumber, err)
		return Lot{}, Result{}, err
	}
	if len(receiptIDs) == 0 {
		err := domain.ValidationError{Field: "receiptIds", Reason: "must not be empty"}
		finish(lotNumber, err)
		return Lot{}, Result{}, err
	}
	var created Lot
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		if _, exists := view.FindLot(lotNumber); exists {
			return domain.ConflictError{Entity: EntityLot, Key: lotNumber, Reason: "lot number already exists"}
		}
		var totalWeight float64
		seen := make(map[uint64]struct{}, len(receiptIDs))
		for _, id := range receiptIDs {
			if _, dup := seen[id]; dup {
				return domain.ValidationError{Field: "receiptIds", Reason: "duplicate receipt id"}
			}
			seen[id] = struct{}{}
			receipt, ok := view.FindReceipt(id)
			if !ok {
				return domain.NotFoundError{Entity: EntityReceipt, Key: formatEntityID(id)}
			}
			if receipt.Status != ReceiptStatusPending {
				return domain.ConflictError{Entity: EntityReceipt, Key: formatEntityID(id), Reason: "receipt already assigned"}
			}
			totalWeight += receipt.Weight
		}
		for _, id := range receiptIDs {
			if _, err := tx.UpdateReceipt(id, func(r *RawMaterial) error {
				r.Status = ReceiptStatusAssigned
				assigned := lotNumber
				r.LotNumber = &assigned
				return nil
			}); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateLot(Lot{
			LotNumber:   lotNumber,
			ReceiptIDs:  append([]uint64(nil), receiptIDs...),
			TotalWeight: totalWeight,
			Notes:       notes,
			Status:      LotStatusPending,
		})
		return err
	})
	finish(lotNumber, err)
	return created, res, err
}

// GetLot returns a lot by its business lot number.
func (s *Service) GetLot(ctx context.Context, lotNumber string) (Lot, error) {
	var lot Lot
	err := s.store.View(ctx, func(view TransactionView) error {
		found, ok := view.FindLot(lotNumber)
		if !ok {
			return domain.NotFoundError{Entity: EntityLot, Key: lotNumber}
		}
		lot = found
		return nil
	})
	if err != nil {
		return Lot{}, err
	}
	return lot, nil
}

// ListLots returns every lot ordered by id.
func (s *Service) ListLots(ctx context.Context) ([]Lot, error) {
	var out []Lot
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListLots()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAvailableLots returns lots not yet completed, each joined with the
// distinct supplier names behind its receipts.
func (s *Service) ListAvailableLots(ctx context.Context) ([]LotSummary, error) {
	var out []LotSummary
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, lot := range view.ListLots() {
			if lot.Status == LotStatusCompleted {
				continue
			}
			names := make(map[string]struct{})
			for _, receiptID := range lot.ReceiptIDs {
				receipt, ok := view.FindReceipt(receiptID)
				if !ok {
					continue
				}
				if supplier, ok := view.FindSupplier(receipt.SupplierID); ok {
					names[supplier.Name] = struct{}{}
				}
			}
			summary := LotSummary{Lot: lot}
			for name := range names {
				summary.SupplierNames = append(summary.SupplierNames, name)
			}
			sort.Strings(summary.SupplierNames)
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteLot transitions a lot from processing to completed. A completed lot
// is terminal and rejects further processing batches.
func (s *Service) CompleteLot(ctx context.Context, lotNumber string) (Lot, Result, error) {
	ctx, finish := s.instrument(ctx, "complete_lot")
	var updated Lot
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateLot(lotNumber, func(l *Lot) error {
			if l.Status != LotStatusProcessing {
				return domain.ConflictError{Entity: EntityLot, Key: lotNumber, Reason: "only a processing lot can be completed"}
			}
			l.Status = LotStatusCompleted
			return nil
		})
		return err
	})
	finish(lotNumber, err)
	return updated, res, err
}
