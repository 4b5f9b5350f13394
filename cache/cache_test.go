package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
	"github.com/robswierczek/kantor/provider/erapi"
)

func decodeUSD(b []byte) (provider.Snapshot, error) {
	return erapi.DecodeSnapshot(b, label.USD)
}

func TestFileCache_SaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(filepath.Join(t.TempDir(), "cache.json"), decodeUSD)

	raw := []byte(`{"date":"2024-01-01","rates":{"USD":1.0,"EUR":0.92}}`)
	c.Save(ctx, raw)

	snap, err := c.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("2024-01-01", snap.Date); diff != "" {
		t.Errorf("date mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff(0.92, snap.Rates[label.EUR]); diff != "" {
		t.Errorf("rate mismatch (-want, +got):\n%s", diff)
	}
}

func TestFileCache_LoadMissing(t *testing.T) {
	t.Parallel()

	c := New(filepath.Join(t.TempDir(), "cache.json"), decodeUSD)

	if _, err := c.Load(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFileCache_LoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	c := New(path, decodeUSD)

	if _, err := c.Load(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFileCache_SaveFailureSwallowed(t *testing.T) {
	t.Parallel()

	// the path is a directory, so the write must fail; Save only logs
	c := New(t.TempDir(), decodeUSD)
	c.Save(context.Background(), []byte(`{"rates":{}}`))
}
