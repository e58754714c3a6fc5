package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/announcarr/announcarr/internal/config"
	"github.com/announcarr/announcarr/internal/domain"
	"github.com/announcarr/announcarr/internal/storage"
)

const resetConfirmWord = "confirm"

// chatSession is the connectivity probe the healthcheck needs from the chat
// adapter.
type chatSession interface {
	Connected() bool
}

// Commands exposes the administrative surface of the daemon through a chat
// command dispatch table. Handlers never touch the store or buffer directly;
// everything goes through orchestrator methods so the busy-flag invariant
// holds.
type Commands struct {
	cfg          *config.Config
	orchestrator *Orchestrator
	server       domain.MediaServer
	chat         chatSession
	store        *storage.ProcessedStore
	buffer       *storage.BufferFile
}

func NewCommands(cfg *config.Config, orchestrator *Orchestrator, server domain.MediaServer, chat chatSession, store *storage.ProcessedStore, buffer *storage.BufferFile) *Commands {
	return &Commands{
		cfg:          cfg,
		orchestrator: orchestrator,
		server:       server,
		chat:         chat,
		store:        store,
		buffer:       buffer,
	}
}

// Register installs every command on the registry.
func (c *Commands) Register(registry domain.CommandRegistry) {
	registry.OnCommand("check", c.Check)
	registry.OnCommand("status", c.Status)
	registry.OnCommand("reset", c.Reset)
	registry.OnCommand("healthcheck", c.Healthcheck)
}

// Check triggers one cycle immediately, unless one is already running.
func (c *Commands) Check(_ context.Context, _ []string) (string, error) {
	if err := c.orchestrator.TriggerCheck(); err != nil {
		if errors.Is(err, domain.ErrCycleInProgress) {
			return "A check is already running, try again in a moment.", nil
		}
		return "", err
	}
	return "Checking for new media...", nil
}

// Status reports the last cycle outcome, counts and configuration.
func (c *Commands) Status(_ context.Context, _ []string) (string, error) {
	status := c.orchestrator.Status()

	var b strings.Builder
	b.WriteString("**Announcarr status**\n")
	fmt.Fprintf(&b, "Uptime: %s\n", formatUptime(c.orchestrator.Uptime()))
	fmt.Fprintf(&b, "Libraries: %s / %s\n", c.cfg.MovieLibrary, c.cfg.TVLibrary)
	fmt.Fprintf(&b, "Check interval: %s, buffer time: %s\n", c.cfg.CheckInterval(), c.cfg.BufferTime())
	fmt.Fprintf(&b, "Notify: movies=%t new_shows=%t recent_episodes=%t (recent window %dd)\n",
		c.cfg.NotifyMovies, c.cfg.NotifyNewShows, c.cfg.NotifyRecentEpisodes, c.cfg.RecentEpisodeDays)
	fmt.Fprintf(&b, "Processed items: %d, pending show groups: %d\n",
		c.orchestrator.ProcessedCount(), c.orchestrator.PendingGroups())

	if status.Outcome == OutcomeNone {
		b.WriteString("Last check: not run yet\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "Last check: %s (%s)\n", status.LastRun.Format(time.RFC3339), status.Outcome)
	fmt.Fprintf(&b, "Last check results: %d movies, %d show groups announced, %d suppressed, %d send failures\n",
		status.AnnouncedMovies, status.AnnouncedGroups, status.Suppressed, status.SendFailures)
	if status.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", status.LastError)
	}
	return b.String(), nil
}

// Reset clears the processed store. Irreversible, so it requires an explicit
// confirm argument and is rejected while a cycle is running.
func (c *Commands) Reset(_ context.Context, args []string) (string, error) {
	if len(args) == 0 || strings.ToLower(args[0]) != resetConfirmWord {
		return fmt.Sprintf("This clears all %d processed records and re-announces current media. "+
			"Run `reset %s` to proceed.", c.orchestrator.ProcessedCount(), resetConfirmWord), nil
	}

	if err := c.orchestrator.Reset(); err != nil {
		if errors.Is(err, domain.ErrCycleInProgress) {
			return "A check is running, reset rejected. Try again in a moment.", nil
		}
		return "", fmt.Errorf("resetting store: %w", err)
	}
	return "Processed state cleared. All current library items will be treated as new.", nil
}

// Healthcheck probes the collaborators and state files without side effects.
func (c *Commands) Healthcheck(ctx context.Context, _ []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	plexErr := c.server.Ping(ctx)

	var b strings.Builder
	b.WriteString("**Health check**\n")
	fmt.Fprintf(&b, "Plex server: %s\n", okOrError(plexErr))
	fmt.Fprintf(&b, "Discord gateway: %s\n", connectedOrNot(c.chat.Connected()))
	fmt.Fprintf(&b, "Processed state file: %s\n", okOrBad(c.store.Accessible()))
	fmt.Fprintf(&b, "Pending buffer file: %s\n", okOrBad(c.buffer.Accessible()))

	status := c.orchestrator.Status()
	if status.Outcome != OutcomeNone {
		fmt.Fprintf(&b, "Last cycle: %s at %s\n", status.Outcome, status.LastRun.Format(time.RFC3339))
	}
	return b.String(), nil
}

func okOrError(err error) string {
	if err != nil {
		return fmt.Sprintf("unreachable (%v)", err)
	}
	return "connected"
}

func connectedOrNot(ok bool) string {
	if !ok {
		return "disconnected"
	}
	return "connected"
}

func okOrBad(ok bool) string {
	if !ok {
		return "inaccessible"
	}
	return "accessible"
}

func formatUptime(d time.Duration) string {
	total := int(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
