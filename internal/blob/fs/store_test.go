package fs

import (
	"bytes"
	"context"
	"io"
	"testing"

	"pdtcore/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs driver")
	}
	info, err := store.Put(ctx, "uploads/20240101_120000_data.csv", bytes.NewReader([]byte("a,b\n1,2\n")), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 8 || info.ContentType != "text/csv" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "uploads/20240101_120000_data.csv", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only conflict")
	}
	got, rc, err := store.Get(ctx, "uploads/20240101_120000_data.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "a,b\n1,2\n" || got.ContentType != "text/csv" {
		t.Fatalf("round trip mismatch: %q %+v", data, got)
	}
	list, err := store.List(ctx, "uploads/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if ok, err := store.Delete(ctx, "uploads/20240101_120000_data.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, "uploads/20240101_120000_data.csv"); ok {
		t.Fatalf("second delete must report missing")
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/absolute"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestStoreHeadMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Head(context.Background(), "missing"); err == nil {
		t.Fatalf("expected missing head error")
	}
}
