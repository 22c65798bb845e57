package storage

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIsNewAndMarkPosted(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	isNew, err := s.IsNew(ctx, "events", "4711")
	if err != nil {
		t.Fatalf("is new: %v", err)
	}
	if !isNew {
		t.Fatal("expected unseen item to be new")
	}

	if err := s.MarkPosted(ctx, "events", "4711", now); err != nil {
		t.Fatalf("mark posted: %v", err)
	}

	isNew, err = s.IsNew(ctx, "events", "4711")
	if err != nil {
		t.Fatalf("is new after mark: %v", err)
	}
	if isNew {
		t.Fatal("expected marked item not to be new")
	}
}

func TestMarkPostedIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.MarkPosted(ctx, "papers", "w33021", now.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("mark posted round %d: %v", i, err)
		}
	}

	isNew, err := s.IsNew(ctx, "papers", "w33021")
	if err != nil {
		t.Fatalf("is new: %v", err)
	}
	if isNew {
		t.Fatal("expected item to stay marked after repeated marks")
	}
}

func TestSourcePartitioning(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Now()

	if err := s.MarkPosted(ctx, "events", "shared-id", now); err != nil {
		t.Fatalf("mark posted: %v", err)
	}

	isNew, err := s.IsNew(ctx, "papers", "shared-id")
	if err != nil {
		t.Fatalf("is new: %v", err)
	}
	if !isNew {
		t.Fatal("expected id in a different source to be new")
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	old := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.MarkPosted(ctx, "events", "old-event", old); err != nil {
		t.Fatalf("mark old: %v", err)
	}
	if err := s.MarkPosted(ctx, "events", "recent-event", recent); err != nil {
		t.Fatalf("mark recent: %v", err)
	}
	if err := s.MarkPosted(ctx, "papers", "old-paper", old); err != nil {
		t.Fatalf("mark other source: %v", err)
	}

	n, err := s.Prune(ctx, "events", cutoff)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d entries, want 1", n)
	}

	// The pruned id may look new again; the retention window is chosen so
	// the source cannot resurrect it.
	isNew, err := s.IsNew(ctx, "events", "old-event")
	if err != nil {
		t.Fatalf("is new pruned: %v", err)
	}
	if !isNew {
		t.Fatal("expected pruned item to read as new")
	}

	isNew, err = s.IsNew(ctx, "events", "recent-event")
	if err != nil {
		t.Fatalf("is new recent: %v", err)
	}
	if isNew {
		t.Fatal("expected recent item to stay marked")
	}

	isNew, err = s.IsNew(ctx, "papers", "old-paper")
	if err != nil {
		t.Fatalf("is new other source: %v", err)
	}
	if isNew {
		t.Fatal("prune must not touch other sources")
	}
}

func TestReopenSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/seen.db"
	now := time.Now()

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	if err := s.MarkPosted(ctx, "events", "persisted", now); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s2.Close() })

	isNew, err := s2.IsNew(ctx, "events", "persisted")
	if err != nil {
		t.Fatalf("is new after reopen: %v", err)
	}
	if isNew {
		t.Fatal("expected mark to survive a restart")
	}
}
