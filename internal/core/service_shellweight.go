package core

import (
	"context"
	"sort"
	"time"

	"clamflow/pkg/domain"
)

// RecordShellWeight appends a standalone shell-weight observation to the
// ledger.
func (s *Service) RecordShellWeight(ctx context.Context, weight float64, date time.Time, notes string) (ShellWeight, Result, error) {
	ctx, finish := s.instrument(ctx, "record_shell_weight")
	if weight <= 0 {
		err := domain.ValidationError{Field: "weight", Reason: "must be greater than zero"}
		finish("", err)
		return ShellWeight{}, Result{}, err
	}
	if date.IsZero() {
		date = s.clock.Now().UTC()
	}
	var created ShellWeight
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateShellWeight(ShellWeight{Weight: weight, Date: date, Notes: notes})
		return err
	})
	finish(formatEntityID(created.ID), err)
	return created, res, err
}

// DeleteShellWeight removes exactly one ledger entry by id.
func (s *Service) DeleteShellWeight(ctx context.Context, id uint64) (Result, error) {
	ctx, finish := s.instrument(ctx, "delete_shell_weight")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteShellWeight(id)
	})
	finish(formatEntityID(id), err)
	return res, err
}

// ListShellWeights returns ledger entries, newest observation first.
func (s *Service) ListShellWeights(ctx context.Context) ([]ShellWeight, error) {
	var out []ShellWeight
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListShellWeights()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
