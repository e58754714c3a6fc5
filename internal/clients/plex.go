package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
	"github.com/announcarr/announcarr/internal/querystring"
)

const (
	plexUserAgent = "Announcarr/1.0"
	plexClientID  = "announcarr-daemon"
	plexProduct   = "Announcarr"

	typeMovie   = "1"
	typeEpisode = "4"

	recentPageSize = 200
	hoursPerDay    = 24
)

// listOptions are the query parameters for a library listing request.
type listOptions struct {
	Type  string `url:"type"`
	Sort  string `url:"sort"`
	Start int    `url:"X-Plex-Container-Start"`
	Size  int    `url:"X-Plex-Container-Size"`
}

// mediaContainer is the root of every Plex API response. Size counts the
// entries in this page; TotalSize, when present, counts the whole result set.
type mediaContainer struct {
	Size      int             `json:"size"`
	TotalSize int             `json:"totalSize,omitempty"`
	Directory []plexDirectory `json:"Directory,omitempty"`
	Metadata  []plexMetadata  `json:"Metadata,omitempty"`
}

type plexResponse struct {
	MediaContainer mediaContainer `json:"MediaContainer"`
}

type plexDirectory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type plexTag struct {
	Tag string `json:"tag"`
}

type plexMetadata struct {
	RatingKey             string    `json:"ratingKey"`
	Type                  string    `json:"type"`
	Title                 string    `json:"title"`
	GrandparentRatingKey  string    `json:"grandparentRatingKey,omitempty"`
	GrandparentTitle      string    `json:"grandparentTitle,omitempty"`
	GrandparentThumb      string    `json:"grandparentThumb,omitempty"`
	ParentIndex           int       `json:"parentIndex,omitempty"`
	Index                 int       `json:"index,omitempty"`
	ContentRating         string    `json:"contentRating,omitempty"`
	Rating                float64   `json:"rating,omitempty"`
	AudienceRating        float64   `json:"audienceRating,omitempty"`
	Summary               string    `json:"summary,omitempty"`
	Year                  int       `json:"year,omitempty"`
	Thumb                 string    `json:"thumb,omitempty"`
	Duration              int       `json:"duration,omitempty"`
	OriginallyAvailableAt string    `json:"originallyAvailableAt,omitempty"`
	AddedAt               int64     `json:"addedAt,omitempty"`
	Genre                 []plexTag `json:"Genre,omitempty"`
	Director              []plexTag `json:"Director,omitempty"`
	Role                  []plexTag `json:"Role,omitempty"`
}

// PlexClient implements domain.MediaServer over the Plex HTTP API.
type PlexClient struct {
	baseURL    string
	token      string
	retryCount int
	retryDelay time.Duration
	httpClient *http.Client
}

func NewPlexClient(baseURL, token string, retryCount int, retryDelay, timeout time.Duration) *PlexClient {
	return &PlexClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		retryCount: retryCount,
		retryDelay: retryDelay,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping checks server reachability through the identity endpoint.
func (c *PlexClient) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/identity", nil)
	return err
}

// RecentMovies lists movies added to the library within the lookback window,
// newest first.
func (c *PlexClient) RecentMovies(ctx context.Context, library string, lookbackDays int) ([]domain.LibraryItem, error) {
	return c.recentItems(ctx, library, typeMovie, lookbackDays)
}

// RecentEpisodes lists episodes added to the library within the lookback
// window, newest first.
func (c *PlexClient) RecentEpisodes(ctx context.Context, library string, lookbackDays int) ([]domain.LibraryItem, error) {
	return c.recentItems(ctx, library, typeEpisode, lookbackDays)
}

// Episodes lists every episode of a show.
func (c *PlexClient) Episodes(ctx context.Context, showKey string) ([]domain.LibraryItem, error) {
	container, err := c.getContainer(ctx, fmt.Sprintf("/library/metadata/%s/allLeaves", url.PathEscape(showKey)), nil)
	if err != nil {
		return nil, fmt.Errorf("listing episodes for show %s: %w", showKey, err)
	}

	items := make([]domain.LibraryItem, 0, len(container.Metadata))
	for _, metadata := range container.Metadata {
		if metadata.Type != "episode" {
			continue
		}
		items = append(items, c.mapItem(metadata))
	}
	return items, nil
}

// recentItems pages through the section listing until it meets an item older
// than the lookback cutoff or the container end. The listing is sorted by
// addedAt descending, so a window larger than one page still yields every
// in-window item.
func (c *PlexClient) recentItems(ctx context.Context, library, itemType string, lookbackDays int) ([]domain.LibraryItem, error) {
	sectionKey, err := c.findSection(ctx, library)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-time.Duration(lookbackDays) * hoursPerDay * time.Hour)
	path := fmt.Sprintf("/library/sections/%s/all", sectionKey)

	var items []domain.LibraryItem
	for start := 0; ; {
		query, err := querystring.Values(listOptions{
			Type:  itemType,
			Sort:  "addedAt:desc",
			Start: start,
			Size:  recentPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding list query: %w", err)
		}

		container, err := c.getContainer(ctx, path, query)
		if err != nil {
			return nil, fmt.Errorf("listing recent items in %q: %w", library, err)
		}
		if len(container.Metadata) == 0 {
			break
		}

		pastCutoff := false
		for _, metadata := range container.Metadata {
			item := c.mapItem(metadata)
			if !item.AddedAt.After(cutoff) {
				pastCutoff = true
				break
			}
			items = append(items, item)
		}
		if pastCutoff {
			break
		}

		start += len(container.Metadata)
		if len(container.Metadata) < recentPageSize {
			break
		}
		if container.TotalSize > 0 && start >= container.TotalSize {
			break
		}
	}
	return items, nil
}

func (c *PlexClient) findSection(ctx context.Context, library string) (string, error) {
	container, err := c.getContainer(ctx, "/library/sections", nil)
	if err != nil {
		return "", fmt.Errorf("listing library sections: %w", err)
	}
	for _, directory := range container.Directory {
		if directory.Title == library {
			return directory.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrLibraryNotFound, library)
}

func (c *PlexClient) mapItem(m plexMetadata) domain.LibraryItem {
	item := domain.LibraryItem{
		RatingKey:     m.RatingKey,
		Kind:          domain.KindMovie,
		Title:         m.Title,
		Year:          m.Year,
		ContentRating: m.ContentRating,
		Summary:       m.Summary,
		Duration:      time.Duration(m.Duration) * time.Millisecond,
		AddedAt:       time.Unix(m.AddedAt, 0),
		Genres:        tagValues(m.Genre),
		Directors:     tagValues(m.Director),
		Actors:        tagValues(m.Role),
	}

	if m.Type == "episode" {
		item.Kind = domain.KindEpisode
		item.ShowKey = m.GrandparentRatingKey
		item.ShowTitle = m.GrandparentTitle
		item.Season = m.ParentIndex
		item.Episode = m.Index
		if m.GrandparentThumb != "" {
			item.ShowThumbURL = c.imageURL(m.GrandparentThumb)
		}
	}

	if m.AudienceRating > 0 {
		item.Rating = m.AudienceRating
	} else if m.Rating > 0 {
		item.Rating = m.Rating
	}

	if m.Thumb != "" {
		item.ThumbURL = c.imageURL(m.Thumb)
	}

	if m.OriginallyAvailableAt != "" {
		if airDate, err := time.Parse("2006-01-02", m.OriginallyAvailableAt); err == nil {
			item.AirDate = airDate
		}
	}

	return item
}

// imageURL builds a token-authenticated thumbnail URL the chat platform can
// fetch directly.
func (c *PlexClient) imageURL(thumb string) string {
	return fmt.Sprintf("%s%s?X-Plex-Token=%s", c.baseURL, thumb, c.token)
}

func (c *PlexClient) getContainer(ctx context.Context, path string, query url.Values) (*mediaContainer, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var resp plexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing plex response: %w", err)
	}
	return &resp.MediaContainer, nil
}

// get performs an authenticated request with the configured bounded retry.
// Transient transport failures are retried; authentication failures are not.
func (c *PlexClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, domain.ErrAuthFailed) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		log.WithFields(log.Fields{
			"path":    path,
			"attempt": attempt,
			"retries": c.retryCount,
			"error":   err,
		}).Warn("plex request failed")

		if attempt < c.retryCount {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, lastErr)
}

func (c *PlexClient) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", plexClientID)
	req.Header.Set("X-Plex-Product", plexProduct)
	req.Header.Set("User-Agent", plexUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}

func tagValues(tags []plexTag) []string {
	if len(tags) == 0 {
		return nil
	}
	values := make([]string, 0, len(tags))
	for _, tag := range tags {
		values = append(values, tag.Tag)
	}
	return values
}
