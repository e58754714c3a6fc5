package domain

import "context"

// MediaServer is the media-server collaborator. Production code talks to Plex,
// tests use an in-memory fake.
type MediaServer interface {
	// RecentMovies lists movies added to the named library after cutoff,
	// newest first.
	RecentMovies(ctx context.Context, library string, lookbackDays int) ([]LibraryItem, error)
	// RecentEpisodes lists episodes added to the named library after cutoff,
	// newest first.
	RecentEpisodes(ctx context.Context, library string, lookbackDays int) ([]LibraryItem, error)
	// Episodes lists every episode of a show.
	Episodes(ctx context.Context, showKey string) ([]LibraryItem, error)
	// Ping reports server reachability for health checks.
	Ping(ctx context.Context) error
}

// Notifier is the chat-platform collaborator. Send never panics past its
// boundary; the orchestrator branches on the returned error only.
type Notifier interface {
	Send(ctx context.Context, route Route, a *Announcement) error
}

// CommandFunc handles one administrative command. args holds whatever followed
// the command name. The returned string is the reply shown to the operator.
type CommandFunc func(ctx context.Context, args []string) (string, error)

// CommandRegistry is implemented by chat adapters that accept administrative
// commands (check, status, reset, healthcheck).
type CommandRegistry interface {
	OnCommand(name string, handler CommandFunc)
}
