package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/clients"
	"github.com/announcarr/announcarr/internal/config"
	"github.com/announcarr/announcarr/internal/service"
	"github.com/announcarr/announcarr/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// App wires the daemon together: state files, collaborator adapters, the
// announcement pipeline and the orchestrator.
type App struct {
	cfg          *config.Config
	store        *storage.ProcessedStore
	buffer       *storage.BufferFile
	plex         *clients.PlexClient
	discord      *clients.DiscordClient
	aggregator   *service.Aggregator
	orchestrator *Orchestrator
}

func New(cfg *config.Config) (*App, error) {
	store := storage.NewProcessedStore(cfg.ProcessedPath())
	if reset := store.Load(); reset {
		log.Warn("processed state was reset, already-seen items may be announced once more")
	}

	buffer := storage.NewBufferFile(cfg.BufferPath())

	plex := clients.NewPlexClient(cfg.PlexURL, cfg.PlexToken, cfg.ConnectRetry, cfg.RetryDelay(), cfg.HTTPTimeout())

	discord, err := clients.NewDiscordClient(cfg.DiscordToken, clients.ChannelRouting{
		Default:        cfg.ChannelID,
		Movies:         cfg.MovieChannelID,
		NewShows:       cfg.NewShowsChannelID,
		RecentEpisodes: cfg.RecentEpisodesChannelID,
	}, cfg.CommandPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating discord client: %w", err)
	}

	aggregator := service.NewAggregator(cfg.BufferTime(), buffer)
	aggregator.Restore()

	classifier := service.NewClassifier(service.Policy{
		NotifyMovies:         cfg.NotifyMovies,
		NotifyNewShows:       cfg.NotifyNewShows,
		NotifyRecentEpisodes: cfg.NotifyRecentEpisodes,
		RecentEpisodeDays:    cfg.RecentEpisodeDays,
	})
	announcer := service.NewAnnouncer(discord)

	orchestrator := NewOrchestrator(SettingsFromConfig(cfg), plex, store, classifier, aggregator, announcer)

	a := &App{
		cfg:          cfg,
		store:        store,
		buffer:       buffer,
		plex:         plex,
		discord:      discord,
		aggregator:   aggregator,
		orchestrator: orchestrator,
	}

	NewCommands(cfg, orchestrator, plex, discord, store, buffer).Register(discord)

	return a, nil
}

// Run connects the chat session and drives the poll scheduler until the
// context is cancelled, then shuts down cleanly.
func (a *App) Run(ctx context.Context) error {
	if err := a.discord.Open(); err != nil {
		return fmt.Errorf("connecting to discord: %w", err)
	}

	log.WithFields(log.Fields{
		"interval": a.cfg.CheckInterval(),
		"buffer":   a.cfg.BufferTime(),
	}).Info("starting announcarr")

	a.orchestrator.RunPeriodically(ctx)

	return a.Close()
}

// Close flushes pending groups, persists state and closes the chat session.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.orchestrator.Shutdown(ctx); err != nil {
		log.WithField("error", err).Error("failed to persist final state")
	}

	if err := a.discord.Close(); err != nil {
		log.WithField("error", err).Error("failed to close discord session")
	}

	log.Info("announcarr stopped")
	return nil
}

// Orchestrator exposes the cycle driver for the HTTP probes.
func (a *App) Orchestrator() *Orchestrator { return a.orchestrator }

// Plex exposes the media server adapter for the HTTP probes.
func (a *App) Plex() *clients.PlexClient { return a.plex }

// Store exposes the processed store for the HTTP probes.
func (a *App) Store() *storage.ProcessedStore { return a.store }

// Buffer exposes the pending buffer for the HTTP probes.
func (a *App) Buffer() *storage.BufferFile { return a.buffer }
