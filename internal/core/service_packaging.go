package core

import (
	"context"
	"time"

	"clamflow/pkg/domain"
)

// CreatePackage records a sealed output unit. The lot must exist and the
// box number must correspond to a box of the same product type recorded by a
// processing batch of that lot.
func (s *Service) CreatePackage(ctx context.Context, lotNumber, boxNumber string, productType ProductType, weight float64, grade, qrCode string, date time.Time) (Package, Result, error) {
	ctx, finish := s.instrument(ctx, "create_package")
	if weight <= 0 {
		err := domain.ValidationError{Field: "weight", Reason: "must be greater than zero"}
		finish(lotNumber, err)
		return Package{}, Result{}, err
	}
	if productType != ProductShellOn && productType != ProductMeat {
		err := domain.ValidationError{Field: "type", Reason: "unknown product type"}
		finish(lotNumber, err)
		return Package{}, Result{}, err
	}
	if date.IsZero() {
		date = s.clock.Now().UTC()
	}
	var created Package
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		if _, ok := view.FindLot(lotNumber); !ok {
			return domain.NotFoundError{Entity: EntityLot, Key: lotNumber}
		}
		if !boxExists(view, lotNumber, boxNumber, productType) {
			return domain.NotFoundError{Entity: EntityProcessingBatch, Key: boxNumber}
		}
		var err error
		created, err = tx.CreatePackage(Package{
			LotNumber: lotNumber,
			Type:      productType,
			Weight:    weight,
			BoxNumber: boxNumber,
			Grade:     grade,
			QRCode:    qrCode,
			Date:      date,
		})
		return err
	})
	finish(formatEntityID(created.ID), err)
	return created, res, err
}

func boxExists(view TransactionView, lotNumber, boxNumber string, productType ProductType) bool {
	for _, batch := range view.ListProcessingBatches() {
		if batch.LotNumber != lotNumber {
			continue
		}
		for _, box := range batch.Boxes {
			if box.BoxNumber == boxNumber && box.Type == productType {
				return true
			}
		}
	}
	return false
}

// ListPackages returns every sealed package ordered by id.
func (s *Service) ListPackages(ctx context.Context) ([]Package, error) {
	var out []Package
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListPackages()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
