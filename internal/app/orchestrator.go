package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/config"
	"github.com/announcarr/announcarr/internal/domain"
	"github.com/announcarr/announcarr/internal/service"
	"github.com/announcarr/announcarr/internal/storage"
)

// Outcome describes how the last cycle ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFetchFailed  Outcome = "fetch_failed"
	OutcomeSendFailures Outcome = "send_failures"
	OutcomePersistError Outcome = "persist_error"
	OutcomeNone         Outcome = "not_run_yet"
)

// CycleStatus is the orchestrator-owned session state surfaced by the status
// and healthcheck commands.
type CycleStatus struct {
	LastRun         time.Time
	Outcome         Outcome
	LastError       string
	MoviesFound     int
	EpisodesFound   int
	AnnouncedMovies int
	AnnouncedGroups int
	Suppressed      int
	SendFailures    int
}

// Orchestrator drives the poll cycle: fetch, classify, aggregate, emit,
// persist. One cycle runs at a time; the busy mutex rejects overlapping
// starts instead of queueing them.
type Orchestrator struct {
	cfg        *Settings
	server     domain.MediaServer
	store      *storage.ProcessedStore
	classifier *service.Classifier
	aggregator *service.Aggregator
	announcer  *service.Announcer

	busy sync.Mutex
	wake chan struct{}

	statusMu sync.RWMutex
	status   CycleStatus

	startTime time.Time
	now       func() time.Time
}

// Settings is the subset of configuration the orchestrator needs per cycle.
type Settings struct {
	MovieLibrary  string
	TVLibrary     string
	LookbackDays  int
	CheckInterval time.Duration
	CycleTimeout  time.Duration
	Policy        service.Policy
}

func SettingsFromConfig(cfg *config.Config) *Settings {
	return &Settings{
		MovieLibrary:  cfg.MovieLibrary,
		TVLibrary:     cfg.TVLibrary,
		LookbackDays:  cfg.LookbackDays,
		CheckInterval: cfg.CheckInterval(),
		CycleTimeout:  cfg.CycleTimeout(),
		Policy: service.Policy{
			NotifyMovies:         cfg.NotifyMovies,
			NotifyNewShows:       cfg.NotifyNewShows,
			NotifyRecentEpisodes: cfg.NotifyRecentEpisodes,
			RecentEpisodeDays:    cfg.RecentEpisodeDays,
		},
	}
}

func NewOrchestrator(cfg *Settings, server domain.MediaServer, store *storage.ProcessedStore, classifier *service.Classifier, aggregator *service.Aggregator, announcer *service.Announcer) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		server:     server,
		store:      store,
		classifier: classifier,
		aggregator: aggregator,
		announcer:  announcer,
		wake:       make(chan struct{}, 1),
		status:     CycleStatus{Outcome: OutcomeNone},
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// RunPeriodically runs cycles at the configured interval until the context is
// cancelled. A manual trigger wakes the loop immediately.
func (o *Orchestrator) RunPeriodically(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.CheckInterval)
	defer ticker.Stop()

	o.runCycleLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			log.WithField("component", "orchestrator").Info("stopping poll scheduler")
			return
		case <-ticker.C:
			o.runCycleLogged(ctx)
		case <-o.wake:
			o.runCycleLogged(ctx)
		}
	}
}

// TriggerCheck wakes the scheduler for an immediate cycle. It returns
// ErrCycleInProgress when a cycle is already running rather than queueing a
// second one.
func (o *Orchestrator) TriggerCheck() error {
	if !o.busy.TryLock() {
		return domain.ErrCycleInProgress
	}
	o.busy.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// RequestCheck queues a cycle without the busy rejection. When a cycle is
// already running another one follows it, so a push event arriving mid-cycle
// is never lost.
func (o *Orchestrator) RequestCheck() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) runCycleLogged(ctx context.Context) {
	if err := o.RunCycle(ctx); err != nil {
		log.WithField("error", err).Error("check cycle failed")
	}
}

// RunCycle executes one full poll cycle under the busy flag and the
// configured wall-clock budget. Partial progress already persisted is kept
// when the budget expires.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if !o.busy.TryLock() {
		return domain.ErrCycleInProgress
	}
	defer o.busy.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	now := o.now()
	log.WithField("component", "orchestrator").Info("starting check cycle")

	snapshot, err := o.fetch(ctx)
	if err != nil {
		o.recordStatus(CycleStatus{LastRun: now, Outcome: OutcomeFetchFailed, LastError: err.Error()})
		return fmt.Errorf("fetching snapshot: %w", err)
	}

	result := o.classifier.Classify(snapshot, o.store, now)

	for _, episode := range result.Episodes {
		o.aggregator.Add(episode, now)
	}

	// Due-check runs after this cycle's episodes were added, so an episode
	// that arrives already past its window is flushed in the same cycle.
	due := o.aggregator.DueGroups(now)

	status := CycleStatus{
		LastRun:       now,
		Outcome:       OutcomeSuccess,
		MoviesFound:   len(result.Movies),
		EpisodesFound: len(result.Episodes),
		Suppressed:    result.Suppressed,
	}

	o.emit(ctx, result.Movies, due, &status)

	if err := o.persist(); err != nil {
		// Loud: an unsaved store risks duplicate announcements next cycle.
		log.WithField("error", err).Error("persisting state failed, duplicate announcements possible on next cycle")
		status.Outcome = OutcomePersistError
		status.LastError = err.Error()
	}

	o.recordStatus(status)
	log.WithFields(log.Fields{
		"movies":   status.AnnouncedMovies,
		"groups":   status.AnnouncedGroups,
		"failures": status.SendFailures,
	}).Info("completed check cycle")
	return nil
}

// fetch pulls the snapshot from the media server. Movies come first so
// classification order is stable across cycles.
func (o *Orchestrator) fetch(ctx context.Context) (service.Snapshot, error) {
	var snapshot service.Snapshot

	movies, err := o.server.RecentMovies(ctx, o.cfg.MovieLibrary, o.cfg.LookbackDays)
	if err != nil {
		return snapshot, fmt.Errorf("listing recent movies: %w", err)
	}
	snapshot.Movies = movies

	episodes, err := o.server.RecentEpisodes(ctx, o.cfg.TVLibrary, o.cfg.LookbackDays)
	if err != nil {
		return snapshot, fmt.Errorf("listing recent episodes: %w", err)
	}
	snapshot.Episodes = episodes

	return snapshot, nil
}

// emit sends announcements with per-item isolation: one failed send never
// aborts its siblings, and failed items are not retried because their records
// are already committed.
func (o *Orchestrator) emit(ctx context.Context, movies []domain.LibraryItem, groups []*domain.PendingGroup, status *CycleStatus) {
	for _, movie := range movies {
		if err := o.announcer.AnnounceMovie(ctx, movie); err != nil {
			log.WithFields(log.Fields{"title": movie.Title, "error": err}).Error("movie announcement failed")
			status.SendFailures++
			continue
		}
		status.AnnouncedMovies++
	}

	for _, group := range groups {
		if err := o.announcer.AnnounceGroup(ctx, group); err != nil {
			log.WithFields(log.Fields{"show": group.ShowTitle, "error": err}).Error("show announcement failed")
			status.SendFailures++
			continue
		}
		status.AnnouncedGroups++
	}

	if status.SendFailures > 0 && status.Outcome == OutcomeSuccess {
		status.Outcome = OutcomeSendFailures
	}
}

func (o *Orchestrator) persist() error {
	if err := o.store.Save(); err != nil {
		return fmt.Errorf("saving processed store: %w", err)
	}
	if err := o.aggregator.Persist(); err != nil {
		return fmt.Errorf("saving pending buffer: %w", err)
	}
	return nil
}

// Reset clears the processed store. It takes the same busy flag as a cycle so
// it can never race one.
func (o *Orchestrator) Reset() error {
	if !o.busy.TryLock() {
		return domain.ErrCycleInProgress
	}
	defer o.busy.Unlock()
	return o.store.Reset()
}

// Shutdown force-flushes every pending group so buffered episodes are
// announced rather than lost, then persists final state. A crash skips this
// path; the durable buffer covers that case on the next start. An in-flight
// cycle is waited for only as long as the context allows; on expiry the
// buffered episodes stay in the durable buffer for the next start.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if err := o.acquireBusy(ctx); err != nil {
		return fmt.Errorf("waiting for running cycle: %w", err)
	}
	defer o.busy.Unlock()

	flushed := o.aggregator.FlushAll()
	for _, group := range flushed {
		if err := o.announcer.AnnounceGroup(ctx, group); err != nil {
			log.WithFields(log.Fields{"show": group.ShowTitle, "error": err}).
				Error("final show announcement failed")
		}
	}

	if err := o.persist(); err != nil {
		return fmt.Errorf("persisting final state: %w", err)
	}
	return nil
}

// acquireBusy takes the busy flag, polling until the context expires.
func (o *Orchestrator) acquireBusy(ctx context.Context) error {
	for {
		if o.busy.TryLock() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (o *Orchestrator) recordStatus(status CycleStatus) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	o.status = status
}

// Status returns a copy of the last cycle's outcome.
func (o *Orchestrator) Status() CycleStatus {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

// Uptime reports how long the orchestrator has existed.
func (o *Orchestrator) Uptime() time.Duration {
	return time.Since(o.startTime)
}

// ProcessedCount exposes the store size for the status command.
func (o *Orchestrator) ProcessedCount() int {
	return o.store.Len()
}

// PendingGroups exposes the aggregator size for the status command.
func (o *Orchestrator) PendingGroups() int {
	return o.aggregator.Len()
}
