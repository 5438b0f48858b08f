package memory

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"clamflow/internal/photo/core"
)

func TestStoreRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "receipts/1/a.jpg", strings.NewReader("jpeg-bytes"), core.PutOptions{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"receipt": "1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("jpeg-bytes")) || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.ETag == "" || info.URL == "" {
		t.Fatalf("expected etag and url, got %+v", info)
	}

	got, rc, err := store.Get(ctx, "receipts/1/a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected contents %q", data)
	}
	if got.Metadata["receipt"] != "1" {
		t.Fatalf("expected metadata preserved, got %v", got.Metadata)
	}

	head, err := store.Head(ctx, "receipts/1/a.jpg")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ETag != info.ETag {
		t.Fatalf("head etag mismatch")
	}
}

func TestStorePutIsCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected overwrite to fail")
	}
	if _, err := store.Put(ctx, "  ", strings.NewReader("a"), core.PutOptions{}); err == nil {
		t.Fatalf("expected blank key to fail")
	}
}

func TestStoreMissingKeys(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist from get, got %v", err)
	}
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist from head, got %v", err)
	}
	deleted, err := store.Delete(ctx, "nope")
	if err != nil || deleted {
		t.Fatalf("expected (false, nil) for missing delete, got (%v, %v)", deleted, err)
	}
}

func TestStoreDeleteAndList(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"receipts/2/b.jpg", "receipts/1/a.jpg", "other/c.jpg"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "receipts/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "receipts/1/a.jpg" || infos[1].Key != "receipts/2/b.jpg" {
		t.Fatalf("unexpected listing %v", infos)
	}

	deleted, err := store.Delete(ctx, "receipts/1/a.jpg")
	if err != nil || !deleted {
		t.Fatalf("delete: (%v, %v)", deleted, err)
	}
	infos, err = store.List(ctx, "receipts/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one remaining, got %v", infos)
	}
}

func TestStorePresignURL(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	url, err := store.PresignURL(ctx, "k", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "memory://photo/") {
		t.Fatalf("unexpected url %s", url)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported method error, got %v", err)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
