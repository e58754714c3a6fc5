package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/announcarr/announcarr/internal/domain"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "processed.json")
}

func TestProcessedStore_LoadMissingFile(t *testing.T) {
	store := NewProcessedStore(tempStorePath(t))

	if reset := store.Load(); reset {
		t.Error("Load() on missing file should not report reset")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestProcessedStore_LoadCorruptFile(t *testing.T) {
	path := tempStorePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store := NewProcessedStore(path)
	if reset := store.Load(); !reset {
		t.Error("Load() on corrupt file should report reset")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after corrupt load", store.Len())
	}
}

func TestProcessedStore_MarkProcessed(t *testing.T) {
	store := NewProcessedStore(tempStorePath(t))
	now := time.Now()

	store.MarkProcessed("100", domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: now, Notified: true})

	if !store.Contains("100") {
		t.Error("Contains(100) = false after MarkProcessed")
	}
	if store.Contains("200") {
		t.Error("Contains(200) = true for unknown key")
	}
}

func TestProcessedStore_MarkProcessedIdempotent(t *testing.T) {
	store := NewProcessedStore(tempStorePath(t))
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	store.MarkProcessed("100", domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: first, Notified: true})
	store.MarkProcessed("100", domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: second, Notified: false})

	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after duplicate mark", store.Len())
	}
}

func TestProcessedStore_ShowSeen(t *testing.T) {
	store := NewProcessedStore(tempStorePath(t))

	store.MarkProcessed("10", domain.ProcessedRecord{
		Kind:      domain.KindEpisode,
		ShowKey:   "show-1",
		FirstSeen: time.Now(),
	})

	if !store.ShowSeen("show-1") {
		t.Error("ShowSeen(show-1) = false after recording episode")
	}
	if store.ShowSeen("show-2") {
		t.Error("ShowSeen(show-2) = true for unknown show")
	}
}

func TestProcessedStore_SaveAndReload(t *testing.T) {
	path := tempStorePath(t)
	store := NewProcessedStore(path)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.MarkProcessed("100", domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: now, Notified: true, NotifiedAt: now})
	store.MarkProcessed("10", domain.ProcessedRecord{Kind: domain.KindEpisode, ShowKey: "show-1", FirstSeen: now})

	if err := store.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reloaded := NewProcessedStore(path)
	if reset := reloaded.Load(); reset {
		t.Error("Load() of saved state reported reset")
	}
	if reloaded.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after reload", reloaded.Len())
	}
	if !reloaded.Contains("100") || !reloaded.Contains("10") {
		t.Error("reloaded store is missing saved keys")
	}
	if !reloaded.ShowSeen("show-1") {
		t.Error("reloaded store lost the show index")
	}
}

func TestProcessedStore_Reset(t *testing.T) {
	path := tempStorePath(t)
	store := NewProcessedStore(path)
	now := time.Now()

	keys := []string{"1", "2", "3", "4", "5"}
	for _, key := range keys {
		store.MarkProcessed(key, domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: now})
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}

	for _, key := range keys {
		if store.Contains(key) {
			t.Errorf("Contains(%s) = true after Reset", key)
		}
	}

	// Reset must be durable, not just in-memory.
	reloaded := NewProcessedStore(path)
	reloaded.Load()
	if reloaded.Len() != 0 {
		t.Errorf("reloaded Len() = %d, want 0 after persisted Reset", reloaded.Len())
	}
}

func TestProcessedStore_SaveReplacesAtomically(t *testing.T) {
	path := tempStorePath(t)
	store := NewProcessedStore(path)
	store.MarkProcessed("1", domain.ProcessedRecord{Kind: domain.KindMovie, FirstSeen: time.Now()})

	if err := store.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after Save()")
	}
}
