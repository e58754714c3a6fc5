package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

const (
	maxSummaryLength = 2000
	maxListedActors  = 3
)

// Announcer converts classified items and flushed groups into outbound
// announcements. Send failures are returned per unit and never abort
// siblings; the caller decides what to do with them.
type Announcer struct {
	notifier domain.Notifier
}

func NewAnnouncer(notifier domain.Notifier) *Announcer {
	return &Announcer{notifier: notifier}
}

// AnnounceMovie sends one movie announcement.
func (a *Announcer) AnnounceMovie(ctx context.Context, movie domain.LibraryItem) error {
	announcement := buildMovieAnnouncement(movie)
	if err := a.notifier.Send(ctx, domain.RouteMovies, announcement); err != nil {
		return fmt.Errorf("sending movie announcement for %q: %w", movie.Title, err)
	}
	log.WithField("title", movie.Title).Info("announced new movie")
	return nil
}

// AnnounceGroup sends one grouped show announcement.
func (a *Announcer) AnnounceGroup(ctx context.Context, group *domain.PendingGroup) error {
	route := domain.RouteRecentEpisodes
	if group.Class == domain.ClassNewShow {
		route = domain.RouteNewShows
	}

	announcement := buildGroupAnnouncement(group)
	announcement.Route = route
	if err := a.notifier.Send(ctx, route, announcement); err != nil {
		return fmt.Errorf("sending show announcement for %q: %w", group.ShowTitle, err)
	}
	log.WithFields(log.Fields{"show": group.ShowTitle, "episodes": len(group.Episodes)}).
		Info("announced show group")
	return nil
}

func buildMovieAnnouncement(movie domain.LibraryItem) *domain.Announcement {
	title := fmt.Sprintf("New Movie Added: %s", movie.Title)
	if movie.Year > 0 {
		title = fmt.Sprintf("%s (%d)", title, movie.Year)
	}

	announcement := &domain.Announcement{
		Route:    domain.RouteMovies,
		Title:    title,
		Body:     truncate(summaryOrDefault(movie.Summary), maxSummaryLength),
		ThumbURL: movie.ThumbURL,
		Footer:   "Plex Media Server",
	}

	if movie.ContentRating != "" {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Rating", Value: movie.ContentRating, Inline: true})
	}
	if movie.Duration > 0 {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Duration", Value: formatDuration(movie.Duration), Inline: true})
	}
	if len(movie.Genres) > 0 {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Genres", Value: strings.Join(movie.Genres, ", "), Inline: true})
	}
	if len(movie.Directors) > 0 {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Director(s)", Value: strings.Join(movie.Directors, ", "), Inline: true})
	}
	if actors := limit(movie.Actors, maxListedActors); len(actors) > 0 {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Starring", Value: strings.Join(actors, ", "), Inline: true})
	}

	return announcement
}

func buildGroupAnnouncement(group *domain.PendingGroup) *domain.Announcement {
	title := fmt.Sprintf("New Episodes: %s", group.ShowTitle)
	if group.Class == domain.ClassNewShow {
		title = fmt.Sprintf("New Show Added: %s", group.ShowTitle)
	}

	lines := make([]string, 0, len(group.Episodes))
	for _, episode := range group.Episodes {
		lines = append(lines, fmt.Sprintf("S%02dE%02d: %s",
			episode.Item.Season, episode.Item.Episode, episode.Item.Title))
	}

	announcement := &domain.Announcement{
		Title:    title,
		ThumbURL: group.ShowThumbURL,
		Footer:   "Plex Media Server",
		Fields: []domain.Field{
			{Name: "Episodes", Value: strings.Join(lines, "\n")},
		},
	}

	if first := group.Episodes[0]; group.Class == domain.ClassNewShow && first.Item.Summary != "" {
		announcement.Body = truncate(first.Item.Summary, maxSummaryLength)
	}
	if airDate := group.Episodes[0].Item.AirDate; group.Class == domain.ClassRecentEpisode && !airDate.IsZero() {
		announcement.Fields = append(announcement.Fields,
			domain.Field{Name: "Air Date", Value: airDate.Format("2006-01-02"), Inline: true})
	}

	return announcement
}

func formatDuration(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
}

func summaryOrDefault(summary string) string {
	if summary == "" {
		return "No summary available"
	}
	return summary
}

// truncate cuts s to at most max bytes on a rune boundary so the result is
// always valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func limit(values []string, max int) []string {
	if len(values) <= max {
		return values
	}
	return values[:max]
}
