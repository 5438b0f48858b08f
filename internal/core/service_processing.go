package core

import (
	"context"
	"fmt"

	"clamflow/pkg/domain"
)

// SubmitProcessingBatch records one processing event for a lot: graded boxes,
// derived shell-on and meat totals, and the yield against the lot's intake
// weight. Creating the batch and moving a pending lot to processing commit
// together or not at all. A lot may receive further batches until it is
// completed.
func (s *Service) SubmitProcessingBatch(ctx context.Context, lotNumber string, boxes []Box) (ProcessingBatch, Result, error) {
	ctx, finish := s.instrument(ctx, "submit_processing_batch")
	if len(boxes) == 0 {
		err := domain.ValidationError{Field: "boxes", Reason: "must not be empty"}
		finish(lotNumber, err)
		return ProcessingBatch{}, Result{}, err
	}
	for i, box := range boxes {
		if box.Weight <= 0 {
			err := domain.ValidationError{Field: fmt.Sprintf("boxes[%d].weight", i), Reason: "must be greater than zero"}
			finish(lotNumber, err)
			return ProcessingBatch{}, Result{}, err
		}
		if box.Grade == "" {
			err := domain.ValidationError{Field: fmt.Sprintf("boxes[%d].grade", i), Reason: "must not be empty"}
			finish(lotNumber, err)
			return ProcessingBatch{}, Result{}, err
		}
		if box.Type != ProductShellOn && box.Type != ProductMeat {
			err := domain.ValidationError{Field: fmt.Sprintf("boxes[%d].type", i), Reason: "unknown product type"}
			finish(lotNumber, err)
			return ProcessingBatch{}, Result{}, err
		}
	}
	var created ProcessingBatch
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		lot, ok := view.FindLot(lotNumber)
		if !ok {
			return domain.NotFoundError{Entity: EntityLot, Key: lotNumber}
		}
		if lot.Status == LotStatusCompleted {
			return domain.ConflictError{Entity: EntityLot, Key: lotNumber, Reason: "lot already completed"}
		}
		var shellOn, meat float64
		for i, box := range boxes {
			if _, ok := view.FindProductGrade(box.Grade, box.Type); !ok {
				return domain.ValidationError{Field: fmt.Sprintf("boxes[%d].grade", i), Reason: fmt.Sprintf("grade %s not valid for %s", box.Grade, box.Type)}
			}
			switch box.Type {
			case ProductShellOn:
				shellOn += box.Weight
			case ProductMeat:
				meat += box.Weight
			}
		}
		// Yield relates output to the lot's intake weight at assembly time.
		yield := 0.0
		if lot.TotalWeight > 0 {
			yield = (shellOn + meat) / lot.TotalWeight * 100
		}
		var err error
		created, err = tx.CreateProcessingBatch(ProcessingBatch{
			LotNumber:       lotNumber,
			ShellOnWeight:   shellOn,
			MeatWeight:      meat,
			Boxes:           append([]Box(nil), boxes...),
			Date:            s.clock.Now().UTC(),
			YieldPercentage: yield,
			Status:          BatchStatusCompleted,
		})
		if err != nil {
			return err
		}
		if lot.Status == LotStatusPending {
			if _, err := tx.UpdateLot(lotNumber, func(l *Lot) error {
				l.Status = LotStatusProcessing
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	finish(lotNumber, err)
	return created, res, err
}

// ListProcessingBatches returns every batch ordered by id.
func (s *Service) ListProcessingBatches(ctx context.Context) ([]ProcessingBatch, error) {
	var out []ProcessingBatch
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListProcessingBatches()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
