package service

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

// BufferStore persists pending groups between restarts.
type BufferStore interface {
	Load() map[string]*domain.PendingGroup
	Save(groups map[string]*domain.PendingGroup) error
}

// Aggregator buffers classified episodes per show so several episodes added
// close together produce a single grouped announcement. A group's window
// opens when its first episode arrives and is never reset by later arrivals,
// which bounds announcement latency to the buffer time.
type Aggregator struct {
	bufferTime time.Duration
	store      BufferStore

	mu     sync.Mutex
	groups map[string]*domain.PendingGroup
}

func NewAggregator(bufferTime time.Duration, store BufferStore) *Aggregator {
	return &Aggregator{
		bufferTime: bufferTime,
		store:      store,
		groups:     make(map[string]*domain.PendingGroup),
	}
}

// Restore merges groups persisted by a previous run. Groups keep their
// original window-open time so the latency bound survives restarts.
func (a *Aggregator) Restore() {
	loaded := a.store.Load()
	if len(loaded) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for showKey, group := range loaded {
		existing, ok := a.groups[showKey]
		if !ok {
			a.groups[showKey] = group
			continue
		}
		existing.Episodes = append(group.Episodes, existing.Episodes...)
		if group.WindowOpen.Before(existing.WindowOpen) {
			existing.WindowOpen = group.WindowOpen
		}
	}
}

// Add buffers an episode. The first episode of a show opens its group; later
// episodes extend it in arrival order.
func (a *Aggregator) Add(episode domain.ClassifiedEpisode, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	group, ok := a.groups[episode.Item.ShowKey]
	if !ok {
		group = &domain.PendingGroup{
			ShowKey:      episode.Item.ShowKey,
			ShowTitle:    episode.Item.ShowTitle,
			ShowThumbURL: episode.Item.ShowThumbURL,
			Class:        episode.Class,
			WindowOpen:   now,
		}
		a.groups[episode.Item.ShowKey] = group
		log.WithFields(log.Fields{"show": episode.Item.ShowTitle, "class": episode.Class}).
			Debug("opened pending show group")
	}
	group.Episodes = append(group.Episodes, episode)
}

// DueGroups returns and removes every group whose buffer window has elapsed,
// oldest window first, so shows are announced in discovery order.
func (a *Aggregator) DueGroups(now time.Time) []*domain.PendingGroup {
	a.mu.Lock()
	defer a.mu.Unlock()

	var due []*domain.PendingGroup
	for showKey, group := range a.groups {
		if now.Sub(group.WindowOpen) >= a.bufferTime {
			due = append(due, group)
			delete(a.groups, showKey)
		}
	}
	sortByWindowOpen(due)
	return due
}

// FlushAll returns and removes every pending group regardless of age. Used on
// shutdown and by the admin flush so no buffered episode is silently lost.
func (a *Aggregator) FlushAll() []*domain.PendingGroup {
	a.mu.Lock()
	defer a.mu.Unlock()

	flushed := make([]*domain.PendingGroup, 0, len(a.groups))
	for _, group := range a.groups {
		flushed = append(flushed, group)
	}
	a.groups = make(map[string]*domain.PendingGroup)
	sortByWindowOpen(flushed)
	return flushed
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Persist writes the current pending groups to the durable buffer.
func (a *Aggregator) Persist() error {
	a.mu.Lock()
	snapshot := make(map[string]*domain.PendingGroup, len(a.groups))
	for showKey, group := range a.groups {
		snapshot[showKey] = group
	}
	a.mu.Unlock()
	return a.store.Save(snapshot)
}

func sortByWindowOpen(groups []*domain.PendingGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].WindowOpen.Before(groups[j].WindowOpen)
	})
}
