package service

import (
	"testing"
	"time"

	"github.com/announcarr/announcarr/internal/domain"
)

// fakeStore is an in-memory ProcessedStore for classifier tests.
type fakeStore struct {
	records map[string]domain.ProcessedRecord
	shows   map[string]struct{}
	marks   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]domain.ProcessedRecord),
		shows:   make(map[string]struct{}),
	}
}

func (f *fakeStore) Contains(key string) bool {
	_, ok := f.records[key]
	return ok
}

func (f *fakeStore) ShowSeen(showKey string) bool {
	_, ok := f.shows[showKey]
	return ok
}

func (f *fakeStore) MarkProcessed(key string, record domain.ProcessedRecord) {
	if _, ok := f.records[key]; ok {
		return
	}
	f.marks++
	f.records[key] = record
	if record.ShowKey != "" {
		f.shows[record.ShowKey] = struct{}{}
	}
}

func movie(key, title string) domain.LibraryItem {
	return domain.LibraryItem{RatingKey: key, Kind: domain.KindMovie, Title: title, AddedAt: time.Now()}
}

func episode(key, showKey string, season, ep int, airDate time.Time) domain.LibraryItem {
	return domain.LibraryItem{
		RatingKey: key,
		Kind:      domain.KindEpisode,
		Title:     "Episode",
		ShowKey:   showKey,
		ShowTitle: "Show",
		Season:    season,
		Episode:   ep,
		AddedAt:   time.Now(),
		AirDate:   airDate,
	}
}

func allPolicy() Policy {
	return Policy{
		NotifyMovies:         true,
		NotifyNewShows:       true,
		NotifyRecentEpisodes: true,
		RecentEpisodeDays:    30,
	}
}

func TestClassifier_NewMovie(t *testing.T) {
	store := newFakeStore()
	classifier := NewClassifier(allPolicy())
	now := time.Now()

	result := classifier.Classify(Snapshot{Movies: []domain.LibraryItem{movie("1", "Alpha")}}, store, now)

	if len(result.Movies) != 1 || result.Movies[0].RatingKey != "1" {
		t.Fatalf("Movies = %+v, want [Alpha]", result.Movies)
	}
	if !store.Contains("1") {
		t.Error("Contains(1) = false after classification")
	}
}

func TestClassifier_MoviesGateOff(t *testing.T) {
	store := newFakeStore()
	policy := allPolicy()
	policy.NotifyMovies = false
	classifier := NewClassifier(policy)

	result := classifier.Classify(Snapshot{Movies: []domain.LibraryItem{movie("1", "Alpha")}}, store, time.Now())

	if len(result.Movies) != 0 {
		t.Errorf("Movies = %+v, want none with gate off", result.Movies)
	}
	if !store.Contains("1") {
		t.Error("suppressed movie must still be recorded")
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}
}

func TestClassifier_EpisodeRules(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recentAir := now.AddDate(0, 0, -10)
	oldAir := now.AddDate(0, 0, -40)

	tests := []struct {
		name      string
		episode   domain.LibraryItem
		policy    Policy
		seenShows []string
		wantClass domain.EpisodeClass
		wantQueue bool
	}{
		{
			name:      "first episode of unseen show",
			episode:   episode("10", "show-1", 1, 1, oldAir),
			policy:    allPolicy(),
			wantClass: domain.ClassNewShow,
			wantQueue: true,
		},
		{
			name:      "first episode of already-seen show falls back to recent",
			episode:   episode("11", "show-1", 1, 1, recentAir),
			policy:    allPolicy(),
			seenShows: []string{"show-1"},
			wantClass: domain.ClassRecentEpisode,
			wantQueue: true,
		},
		{
			name:      "recently aired mid-season episode",
			episode:   episode("12", "show-2", 3, 4, recentAir),
			policy:    allPolicy(),
			wantClass: domain.ClassRecentEpisode,
			wantQueue: true,
		},
		{
			name:      "old episode of known show is suppressed but recorded",
			episode:   episode("13", "show-3", 2, 5, oldAir),
			policy:    allPolicy(),
			seenShows: []string{"show-3"},
			wantQueue: false,
		},
		{
			name:      "no air date never counts as recent",
			episode:   episode("14", "show-4", 2, 1, time.Time{}),
			policy:    allPolicy(),
			seenShows: []string{"show-4"},
			wantQueue: false,
		},
		{
			name:      "new show gate off suppresses S1E1 with old air date",
			episode:   episode("15", "show-5", 1, 1, oldAir),
			policy:    Policy{NotifyMovies: true, NotifyRecentEpisodes: true, RecentEpisodeDays: 30},
			wantQueue: false,
		},
		{
			name:      "recent gate off suppresses recently aired episode",
			episode:   episode("16", "show-6", 4, 2, recentAir),
			policy:    Policy{NotifyMovies: true, NotifyNewShows: true, RecentEpisodeDays: 30},
			wantQueue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			for _, showKey := range tt.seenShows {
				store.shows[showKey] = struct{}{}
			}

			classifier := NewClassifier(tt.policy)
			result := classifier.Classify(Snapshot{Episodes: []domain.LibraryItem{tt.episode}}, store, now)

			if tt.wantQueue {
				if len(result.Episodes) != 1 {
					t.Fatalf("Episodes = %+v, want exactly one", result.Episodes)
				}
				if result.Episodes[0].Class != tt.wantClass {
					t.Errorf("Class = %s, want %s", result.Episodes[0].Class, tt.wantClass)
				}
			} else if len(result.Episodes) != 0 {
				t.Errorf("Episodes = %+v, want none", result.Episodes)
			}

			if !store.Contains(tt.episode.RatingKey) {
				t.Error("considered episode must be recorded regardless of outcome")
			}
		})
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	store := newFakeStore()
	classifier := NewClassifier(allPolicy())
	now := time.Now()
	snapshot := Snapshot{
		Movies:   []domain.LibraryItem{movie("1", "Alpha")},
		Episodes: []domain.LibraryItem{episode("10", "show-1", 1, 1, now.AddDate(0, 0, -1))},
	}

	first := classifier.Classify(snapshot, store, now)
	if len(first.Movies) != 1 || len(first.Episodes) != 1 {
		t.Fatalf("first run = %d movies, %d episodes, want 1 and 1", len(first.Movies), len(first.Episodes))
	}

	second := classifier.Classify(snapshot, store, now)
	if len(second.Movies) != 0 || len(second.Episodes) != 0 {
		t.Errorf("second run = %d movies, %d episodes, want none", len(second.Movies), len(second.Episodes))
	}
	if store.marks != 2 {
		t.Errorf("MarkProcessed invoked %d times, want 2 (at most once per key)", store.marks)
	}
}
