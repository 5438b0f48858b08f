package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"clamflow/internal/photo"
	"clamflow/pkg/domain"
)

// RecordReceipt registers an incoming raw material delivery against a
// supplier. The receipt starts pending with no lot assignment.
func (s *Service) RecordReceipt(ctx context.Context, supplierID uint64, weight float64, photoURL string, date time.Time) (RawMaterial, Result, error) {
	ctx, finish := s.instrument(ctx, "record_receipt")
	if weight <= 0 {
		err := domain.ValidationError{Field: "weight", Reason: "must be greater than zero"}
		finish("", err)
		return RawMaterial{}, Result{}, err
	}
	if date.IsZero() {
		date = s.clock.Now().UTC()
	}
	var created RawMaterial
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateReceipt(RawMaterial{
			SupplierID: supplierID,
			Weight:     weight,
			PhotoURL:   photoURL,
			Date:       date,
			Status:     ReceiptStatusPending,
		})
		return err
	})
	finish(formatEntityID(created.ID), err)
	return created, res, err
}

// ListPendingReceipts returns receipts not yet assembled into a lot, newest
// delivery first.
func (s *Service) ListPendingReceipts(ctx context.Context) ([]RawMaterial, error) {
	var out []RawMaterial
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, r := range view.ListReceipts() {
			if r.Status == ReceiptStatusPending {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ListReceipts returns every recorded receipt ordered by id.
func (s *Service) ListReceipts(ctx context.Context) ([]RawMaterial, error) {
	var out []RawMaterial
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListReceipts()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttachReceiptPhoto streams a photo into the configured photo store and
// records the resulting URL on the receipt. Fails when no photo backend is
// configured.
func (s *Service) AttachReceiptPhoto(ctx context.Context, receiptID uint64, filename string, r io.Reader, contentType string) (RawMaterial, Result, error) {
	ctx, finish := s.instrument(ctx, "attach_receipt_photo")
	if s.photos == nil {
		err := domain.ValidationError{Field: "photo", Reason: "no photo store configured"}
		finish(formatEntityID(receiptID), err)
		return RawMaterial{}, Result{}, err
	}
	key := fmt.Sprintf("receipts/%d/%d-%s", receiptID, s.clock.Now().UTC().UnixNano(), path.Base(filename))
	info, err := s.photos.Put(ctx, key, r, photo.PutOptions{ContentType: contentType})
	if err != nil {
		finish(formatEntityID(receiptID), err)
		return RawMaterial{}, Result{}, err
	}
	var updated RawMaterial
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateReceipt(receiptID, func(rm *RawMaterial) error {
			rm.PhotoURL = info.URL
			return nil
		})
		return err
	})
	if err != nil {
		// The stored blob has no owner once the update fails; remove it.
		_, _ = s.photos.Delete(ctx, key)
		finish(formatEntityID(receiptID), err)
		return RawMaterial{}, Result{}, err
	}
	finish(formatEntityID(receiptID), nil)
	return updated, res, nil
}
