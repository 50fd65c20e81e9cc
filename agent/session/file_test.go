package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(FileConfig{Path: filepath.Join(t.TempDir(), "sessions.json")})
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return store
}

func TestFileStoreGetUnknownUser(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	data, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Fatalf("unknown user must yield empty map, got %v", data)
	}
}

func TestFileStoreRejectsEmptyUserID(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if err := store.Update(context.Background(), "", map[string]any{"a": 1}); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if err := store.Delete(context.Background(), ""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestFileStoreUpdateMergesAndStamps(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	ctx := context.Background()

	if err := store.Update(ctx, "u1", map[string]any{"name": "Ada", "system_size_kw": 5.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Update(ctx, "u1", map[string]any{"system_size_kw": 7.5}); err != nil {
		t.Fatalf("update: %v", err)
	}

	data, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data["name"] != "Ada" {
		t.Fatal("earlier keys must survive a partial update")
	}
	if Float(data, "system_size_kw", 0) != 7.5 {
		t.Fatalf("partial update must overwrite, got %v", data["system_size_kw"])
	}

	stamp, _ := data[LastUpdatedKey].(string)
	if _, err := time.Parse(time.RFC3339Nano, stamp); err != nil {
		t.Fatalf("last_updated stamp unparseable: %q", stamp)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	first, err := NewFileStore(FileConfig{Path: path})
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := first.Update(ctx, "u1", map[string]any{"stage": "selection"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	second, err := NewFileStore(FileConfig{Path: path})
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	data, err := second.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data["stage"] != "selection" {
		t.Fatal("sessions must survive process restarts")
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewFileStore(FileConfig{Path: path})
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	data, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(data) != 0 {
		t.Fatal("corrupt file must be treated as empty")
	}
}

func TestFileStorePurgeOlderThan(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.AddDate(0, 0, -40) }
	if err := store.Update(ctx, "stale", map[string]any{"stage": "old"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	store.now = func() time.Time { return base }
	if err := store.Update(ctx, "fresh", map[string]any{"stage": "new"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	purged, err := store.PurgeOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := all["stale"]; ok {
		t.Fatal("stale session must be removed")
	}
	if _, ok := all["fresh"]; !ok {
		t.Fatal("fresh session must be kept")
	}
}

func TestTypedAccessors(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"size":    7.5,
		"count":   float64(3),
		"flag":    true,
		"name":    "Ada",
		"nested":  map[string]any{"k": "v"},
		"history": []any{"a", "b"},
	}

	if Float(data, "size", 0) != 7.5 {
		t.Fatal("float accessor")
	}
	if Float(data, "missing", 1.25) != 1.25 {
		t.Fatal("float default")
	}
	if !Bool(data, "flag", false) {
		t.Fatal("bool accessor")
	}
	if Bool(data, "missing", true) != true {
		t.Fatal("bool default")
	}
	if String(data, "name", "") != "Ada" {
		t.Fatal("string accessor")
	}
	if got := Map(data, "nested"); got["k"] != "v" {
		t.Fatal("map accessor")
	}
	if got := List(data, "history"); len(got) != 2 {
		t.Fatal("list accessor")
	}
	if got := Map(data, "missing"); got == nil {
		t.Fatal("map accessor must not return nil for missing keys")
	}
}
