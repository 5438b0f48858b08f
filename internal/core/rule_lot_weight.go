package core

import (
	"context"
	"fmt"
	"math"

	"clamflow/pkg/domain"
)

const weightEpsilon = 1e-9

// NewLotWeightConsistencyRule blocks commits that leave a lot's recorded
// total weight out of sync with the receipts assigned to it, or that
// reference receipts which are missing or not stamped for the lot.
func NewLotWeightConsistencyRule() domain.Rule {
	return lotWeightConsistencyRule{}
}

type lotWeightConsistencyRule struct{}

func (lotWeightConsistencyRule) Name() string { return "lot_weight_consistency" }

func (r lotWeightConsistencyRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	seen := map[string]struct{}{}
	for _, change := range changes {
		lotNumber, ok := affectedLotNumber(change)
		if !ok {
			continue
		}
		if _, done := seen[lotNumber]; done {
			continue
		}
		seen[lotNumber] = struct{}{}

		lot, found := view.FindLot(lotNumber)
		if !found {
			// Deleted or never created inside this transaction.
			continue
		}
		var sum float64
		for _, receiptID := range lot.ReceiptIDs {
			receipt, found := view.FindReceipt(receiptID)
			if !found {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("lot references missing receipt %d", receiptID),
					Entity:   domain.EntityLot,
					EntityID: lot.LotNumber,
				})
				continue
			}
			if receipt.Status != domain.ReceiptStatusAssigned || receipt.LotNumber == nil || *receipt.LotNumber != lot.LotNumber {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("receipt %d is not assigned to lot %s", receiptID, lot.LotNumber),
					Entity:   domain.EntityLot,
					EntityID: lot.LotNumber,
				})
				continue
			}
			sum += receipt.Weight
		}
		if math.Abs(sum-lot.TotalWeight) > weightEpsilon {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("lot total weight %.3f does not match receipt sum %.3f", lot.TotalWeight, sum),
				Entity:   domain.EntityLot,
				EntityID: lot.LotNumber,
			})
		}
	}
	return result, nil
}

func affectedLotNumber(change domain.Change) (string, bool) {
	switch change.Entity {
	case domain.EntityLot:
		if lot, ok := change.After.(domain.Lot); ok {
			return lot.LotNumber, true
		}
		if lot, ok := change.Before.(domain.Lot); ok {
			return lot.LotNumber, true
		}
	case domain.EntityReceipt:
		if receipt, ok := change.After.(domain.RawMaterial); ok && receipt.LotNumber != nil {
			return *receipt.LotNumber, true
		}
		if receipt, ok := change.Before.(domain.RawMaterial); ok && receipt.LotNumber != nil {
			return *receipt.LotNumber, true
		}
	}
	return "", false
}

// NewBatchWeightConsistencyRule blocks processing batches whose declared
// shell-on and meat weights disagree with the per-box breakdown.
func NewBatchWeightConsistencyRule() domain.Rule {
	return batchWeightConsistencyRule{}
}

type batchWeightConsistencyRule struct{}

func (batchWeightConsistencyRule) Name() string { return "batch_weight_consistency" }

func (r batchWeightConsistencyRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityProcessingBatch {
			continue
		}
		batch, ok := change.After.(domain.ProcessingBatch)
		if !ok {
			continue
		}
		var shellOn, meat float64
		for _, box := range batch.Boxes {
			switch box.Type {
			case domain.ProductShellOn:
				shellOn += box.Weight
			case domain.ProductMeat:
				meat += box.Weight
			}
		}
		if math.Abs(shellOn-batch.ShellOnWeight) > weightEpsilon {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("shell-on weight %.3f does not match box sum %.3f", batch.ShellOnWeight, shellOn),
				Entity:   domain.EntityProcessingBatch,
				EntityID: fmt.Sprintf("%d", batch.ID),
			})
		}
		if math.Abs(meat-batch.MeatWeight) > weightEpsilon {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("meat weight %.3f does not match box sum %.3f", batch.MeatWeight, meat),
				Entity:   domain.EntityProcessingBatch,
				EntityID: fmt.Sprintf("%d", batch.ID),
			})
		}
	}
	return result, nil
}
