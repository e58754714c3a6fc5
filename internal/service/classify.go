package service

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

const hoursPerDay = 24

// Policy holds the notification gates applied during classification.
type Policy struct {
	NotifyMovies         bool
	NotifyNewShows       bool
	NotifyRecentEpisodes bool
	RecentEpisodeDays    int
}

// Snapshot is one poll's listing of the monitored libraries.
type Snapshot struct {
	Movies   []domain.LibraryItem
	Episodes []domain.LibraryItem
}

// ClassifyResult separates items for immediate announcement (movies) from
// episodes destined for the buffering aggregator.
type ClassifyResult struct {
	Movies     []domain.LibraryItem
	Episodes   []domain.ClassifiedEpisode
	Considered int
	Suppressed int
}

// ProcessedStore is the subset of the store the classifier needs.
type ProcessedStore interface {
	Contains(key string) bool
	ShowSeen(showKey string) bool
	MarkProcessed(key string, record domain.ProcessedRecord)
}

// Classifier decides which snapshot items qualify for notification. It is
// pure apart from registering every considered item in the store, which is
// what makes a repeated run over the same snapshot yield nothing.
type Classifier struct {
	policy Policy
}

func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify diffs a snapshot against the store. Movies are always handled
// before episodes, and every item not yet in the store is marked processed
// whether or not it qualifies for notification. Marking before the send is a
// deliberate trade-off: a crash between mark and send drops a notification
// but can never duplicate one.
func (c *Classifier) Classify(snapshot Snapshot, store ProcessedStore, now time.Time) ClassifyResult {
	var result ClassifyResult

	for _, movie := range snapshot.Movies {
		if store.Contains(movie.RatingKey) {
			continue
		}
		result.Considered++

		notified := c.policy.NotifyMovies
		store.MarkProcessed(movie.RatingKey, domain.ProcessedRecord{
			Kind:       domain.KindMovie,
			FirstSeen:  now,
			Notified:   notified,
			NotifiedAt: notifiedAt(notified, now),
		})

		if !notified {
			result.Suppressed++
			continue
		}
		log.WithFields(log.Fields{"title": movie.Title, "year": movie.Year}).Info("new movie detected")
		result.Movies = append(result.Movies, movie)
	}

	for _, episode := range snapshot.Episodes {
		if store.Contains(episode.RatingKey) {
			continue
		}
		result.Considered++

		class, ok := c.classifyEpisode(episode, store, now)
		store.MarkProcessed(episode.RatingKey, domain.ProcessedRecord{
			Kind:       domain.KindEpisode,
			ShowKey:    episode.ShowKey,
			FirstSeen:  now,
			Notified:   ok,
			NotifiedAt: notifiedAt(ok, now),
		})

		if !ok {
			result.Suppressed++
			continue
		}
		log.WithFields(log.Fields{
			"show":    episode.ShowTitle,
			"season":  episode.Season,
			"episode": episode.Episode,
			"class":   class,
		}).Info("new episode detected")
		result.Episodes = append(result.Episodes, domain.ClassifiedEpisode{Item: episode, Class: class})
	}

	return result
}

// classifyEpisode applies the episode policy. An episode that matches neither
// rule is still recorded by the caller so it is never re-considered.
func (c *Classifier) classifyEpisode(episode domain.LibraryItem, store ProcessedStore, now time.Time) (domain.EpisodeClass, bool) {
	isNewShow := episode.Season == 1 && episode.Episode == 1 && !store.ShowSeen(episode.ShowKey)
	if isNewShow && c.policy.NotifyNewShows {
		return domain.ClassNewShow, true
	}

	if c.policy.NotifyRecentEpisodes && c.recentlyAired(episode, now) {
		return domain.ClassRecentEpisode, true
	}

	return "", false
}

func (c *Classifier) recentlyAired(episode domain.LibraryItem, now time.Time) bool {
	if episode.AirDate.IsZero() {
		return false
	}
	window := time.Duration(c.policy.RecentEpisodeDays) * hoursPerDay * time.Hour
	return now.Sub(episode.AirDate) <= window
}

func notifiedAt(notified bool, now time.Time) time.Time {
	if !notified {
		return time.Time{}
	}
	return now
}
