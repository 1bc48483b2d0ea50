package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/models"
)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		{Title: "Flipper Zero", Price: models.MustPrice("169.99"), Rating: "4.6 out of 5 stars"},
		{Title: "Free Sticker", Price: models.MustPrice("0"), Rating: "No rating found"},
		{Title: "Sold Out Case", Price: models.NoPrice(), Rating: "3.9 out of 5 stars"},
		{Title: "Flipper Zero", Price: models.MustPrice("159.00"), Rating: "4.6 out of 5 stars"},
	}
}

func assertRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	want := sampleSnapshot()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if got[1].Price.Valid != true || got[2].Price.Valid != false {
		t.Fatalf("zero and absent prices not preserved: %+v", got)
	}

	replacement := models.Snapshot{{Title: "Only One", Price: models.MustPrice("5"), Rating: "No rating found"}}
	if err := s.Save(ctx, replacement); err != nil {
		t.Fatalf("Save replacement: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load replacement: %v", err)
	}
	if !got.Equal(replacement) {
		t.Fatalf("replacement mismatch: got %+v", got)
	}

	if err := s.Save(ctx, models.Snapshot{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(got))
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "product_data.json"))
	assertRoundTrip(t, s)
}

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "absent.json"))
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", got)
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "garbage", content: "not json at all"},
		{name: "truncated", content: `[{"title": "Flipper Zero", "price": 16`},
		{name: "wrong shape", content: `{"title": "Flipper Zero"}`},
		{name: "empty file", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "product_data.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			got, err := NewJSONStore(path).Load(context.Background())
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("expected empty snapshot alongside error, got %+v", got)
			}
		})
	}
}

func TestJSONStoreWritesIdenticalBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_data.json")
	s := NewJSONStore(path)
	ctx := context.Background()

	if err := s.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if err := s.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("bytes differ between saves:\n%s\n---\n%s", first, second)
	}

	content := string(first)
	for _, fragment := range []string{`"title": "Flipper Zero"`, `"price": 169.99`, `"price": 0`, `"price": null`} {
		if !strings.Contains(content, fragment) {
			t.Errorf("expected %s in file:\n%s", fragment, content)
		}
	}
	if !strings.HasPrefix(content, "[\n    {") {
		t.Errorf("expected four-space indented array, got:\n%s", content)
	}
}

func TestJSONStoreEmptySnapshotWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_data.json")
	if err := NewJSONStore(path).Save(context.Background(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected [], got %q", data)
	}
}

func TestJSONStoreSaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	err := NewJSONStore(filepath.Join(blocker, "nested", "product_data.json")).
		Save(context.Background(), sampleSnapshot())
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}

	data, err := os.ReadFile(blocker)
	if err != nil || string(data) != "x" {
		t.Fatalf("blocker file changed: %q, %v", data, err)
	}
}

func TestJSONStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(filepath.Join(dir, "product_data.json"))
	for i := 0; i < 3; i++ {
		if err := s.Save(context.Background(), sampleSnapshot()); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the snapshot file, found %v", names)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "db", "pricewatch.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load on fresh db: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot on fresh db, got %+v", got)
	}

	assertRoundTrip(t, s)
}

func TestSQLiteReopenKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pricewatch.db")

	first, err := NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := first.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(sampleSnapshot()) {
		t.Fatalf("reopened snapshot mismatch: %+v", got)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		backend string
		path    string
		wantErr bool
	}{
		{name: "json", backend: config.BackendJSON, path: filepath.Join(dir, "data.json")},
		{name: "sqlite", backend: config.BackendSQLite, path: filepath.Join(dir, "data.db")},
		{name: "unknown", backend: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.StoreBackend = tt.backend
			cfg.StorePath = tt.path

			s, err := Open(ctx, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for backend %q", tt.backend)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			if err := s.Save(ctx, sampleSnapshot()); err != nil {
				t.Fatalf("Save: %v", err)
			}
		})
	}
}
