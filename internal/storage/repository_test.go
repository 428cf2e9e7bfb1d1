package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "suggestions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRememberAndRank(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, v := range []string{"Cash", "Card", "Cash", "  ", "Transfer", "Cash", "Card"} {
		if err := repo.Remember(ctx, "payment_method", v); err != nil {
			t.Fatalf("Remember(%q): %v", v, err)
		}
	}
	if err := repo.Remember(ctx, "category", "Food"); err != nil {
		t.Fatalf("Remember category: %v", err)
	}

	got, err := repo.Suggestions(ctx, "payment_method", 10)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	want := []string{"Cash", "Card", "Transfer"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	limited, err := repo.Suggestions(ctx, "payment_method", 1)
	if err != nil || len(limited) != 1 || limited[0] != "Cash" {
		t.Fatalf("limit not applied: %v (err=%v)", limited, err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suggestions.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Remember(context.Background(), "category", "Rent"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	_ = first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Suggestions(context.Background(), "category", 5)
	if err != nil || len(got) != 1 || got[0] != "Rent" {
		t.Fatalf("expected persisted suggestion, got %v (err=%v)", got, err)
	}
}

func TestMigrateUpReportsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	for i := 0; i < 2; i++ {
		version, err := migrateUp(path)
		if err != nil {
			t.Fatalf("migrateUp run %d: %v", i, err)
		}
		if version != 1 {
			t.Errorf("version = %d, want 1", version)
		}
	}
}
