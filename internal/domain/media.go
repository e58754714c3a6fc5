package domain

import "time"

type ItemKind string

const (
	KindMovie   ItemKind = "movie"
	KindEpisode ItemKind = "episode"
)

// LibraryItem is one entry of a poll snapshot. Items are built fresh every
// cycle from the media server listing and discarded after classification.
type LibraryItem struct {
	RatingKey     string
	Kind          ItemKind
	Title         string
	Year          int
	ShowKey       string
	ShowTitle     string
	Season        int
	Episode       int
	AddedAt       time.Time
	AirDate       time.Time
	Rating        float64
	ContentRating string
	Genres        []string
	Directors     []string
	Actors        []string
	Summary       string
	Duration      time.Duration
	ThumbURL      string
	ShowThumbURL  string
}

// ProcessedRecord tracks an item that has been announced or intentionally
// suppressed. Records are never mutated after insert except by an admin reset.
type ProcessedRecord struct {
	Key        string    `json:"key"`
	Kind       ItemKind  `json:"kind"`
	ShowKey    string    `json:"showKey,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
	Notified   bool      `json:"notified"`
	NotifiedAt time.Time `json:"notifiedAt,omitempty"`
}

// EpisodeClass says why an episode qualified for notification.
type EpisodeClass string

const (
	ClassNewShow       EpisodeClass = "new_show"
	ClassRecentEpisode EpisodeClass = "recent_episode"
)

// ClassifiedEpisode pairs an episode with its classification outcome.
type ClassifiedEpisode struct {
	Item  LibraryItem  `json:"item"`
	Class EpisodeClass `json:"class"`
}

// PendingGroup buffers episodes of one show until its window elapses, so a
// burst of additions produces a single grouped announcement.
type PendingGroup struct {
	ShowKey      string              `json:"showKey"`
	ShowTitle    string              `json:"showTitle"`
	ShowThumbURL string              `json:"showThumbUrl,omitempty"`
	Class        EpisodeClass        `json:"class"`
	WindowOpen   time.Time           `json:"windowOpen"`
	Episodes     []ClassifiedEpisode `json:"episodes"`
}

// Route selects which configured channel an announcement goes to. The discord
// adapter falls back to the default channel for unconfigured routes.
type Route string

const (
	RouteMovies         Route = "movies"
	RouteNewShows       Route = "new_shows"
	RouteRecentEpisodes Route = "recent_episodes"
)

// Field is one name/value pair attached to an announcement.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Announcement is a platform-agnostic outbound message. The chat adapter is
// responsible for rendering it in whatever format the platform wants.
type Announcement struct {
	Route    Route
	Title    string
	Body     string
	ThumbURL string
	Fields   []Field
	Footer   string
}
