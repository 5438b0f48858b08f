package core

import (
	"context"
	"strings"
	"testing"

	"clamflow/internal/photo"
	"clamflow/pkg/domain"
)

func TestAttachReceiptPhoto(t *testing.T) {
	photos := photo.NewMemory()
	svc := newTestService(t, WithPhotoStore(photos))
	ctx := context.Background()
	supplier := mustCreateSupplier(t, svc, "Bay Clams")
	receipt := mustRecordReceipt(t, svc, supplier.ID, 10)

	updated, _, err := svc.AttachReceiptPhoto(ctx, receipt.ID, "delivery.jpg", strings.NewReader("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if updated.PhotoURL == "" {
		t.Fatalf("expected photo url recorded on receipt")
	}

	infos, err := photos.List(ctx, "receipts/")
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one stored photo, got %d", len(infos))
	}
	if infos[0].ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %s", infos[0].ContentType)
	}
	if infos[0].URL != updated.PhotoURL {
		t.Fatalf("receipt url %q does not match stored photo %q", updated.PhotoURL, infos[0].URL)
	}
}

func TestAttachReceiptPhotoErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// No photo backend configured.
	if _, _, err := svc.AttachReceiptPhoto(ctx, 1, "a.jpg", strings.NewReader("x"), ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error without photo store, got %v", err)
	}

	photos := photo.NewMemory()
	svc = newTestService(t, WithPhotoStore(photos))
	if _, _, err := svc.AttachReceiptPhoto(ctx, 999, "a.jpg", strings.NewReader("x"), ""); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown receipt, got %v", err)
	}

	// A failed update must not leave the uploaded blob behind.
	infos, err := photos.List(ctx, "")
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected orphaned photo removed, found %d", len(infos))
	}
}
