package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/announcarr/announcarr/internal/domain"
)

// plexFake serves a movie section whose items are all added at a fixed
// offset from now, newest first, and counts listing requests.
type plexFake struct {
	total        int
	addedOffsets func(index int) time.Duration
	listRequests int
}

func (f *plexFake) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/library/sections":
			fmt.Fprint(w, `{"MediaContainer":{"size":1,"Directory":[{"key":"1","type":"movie","title":"Movies"}]}}`)
		case r.URL.Path == "/library/sections/1/all":
			f.listRequests++
			start, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Start"))
			size, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Size"))

			end := start + size
			if end > f.total {
				end = f.total
			}

			var entries []string
			for i := start; i < end; i++ {
				addedAt := time.Now().Add(-f.addedOffsets(i)).Unix()
				entries = append(entries, fmt.Sprintf(
					`{"ratingKey":"%d","type":"movie","title":"Movie %d","addedAt":%d}`, i, i, addedAt))
			}
			fmt.Fprintf(w, `{"MediaContainer":{"size":%d,"totalSize":%d,"Metadata":[%s]}}`,
				end-start, f.total, strings.Join(entries, ","))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(serverURL string) *PlexClient {
	return NewPlexClient(serverURL, "token", 1, 0, 5*time.Second)
}

func TestPlexClient_RecentMoviesPaginates(t *testing.T) {
	// 250 items, all added within the last hour, so every one is inside a
	// one-day lookback and a second page is required.
	fake := &plexFake{
		total:        250,
		addedOffsets: func(i int) time.Duration { return time.Duration(i) * time.Second },
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	items, err := newTestClient(server.URL).RecentMovies(context.Background(), "Movies", 1)
	if err != nil {
		t.Fatalf("RecentMovies() error: %v", err)
	}

	if len(items) != 250 {
		t.Errorf("RecentMovies() returned %d items, want all 250 in-window items", len(items))
	}
	if fake.listRequests < 2 {
		t.Errorf("listing made %d requests, want at least 2 pages", fake.listRequests)
	}
	if items[0].RatingKey != "0" || items[len(items)-1].RatingKey != "249" {
		t.Errorf("items out of order: first=%s last=%s", items[0].RatingKey, items[len(items)-1].RatingKey)
	}
}

func TestPlexClient_RecentMoviesStopsAtCutoff(t *testing.T) {
	// Items past index 49 were added two days ago; the descending listing
	// means the scan can end inside the first page without fetching more.
	fake := &plexFake{
		total: 500,
		addedOffsets: func(i int) time.Duration {
			if i < 50 {
				return time.Duration(i) * time.Second
			}
			return 48 * time.Hour
		},
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	items, err := newTestClient(server.URL).RecentMovies(context.Background(), "Movies", 1)
	if err != nil {
		t.Fatalf("RecentMovies() error: %v", err)
	}

	if len(items) != 50 {
		t.Errorf("RecentMovies() returned %d items, want the 50 in-window ones", len(items))
	}
	if fake.listRequests != 1 {
		t.Errorf("listing made %d requests, want 1 when the cutoff lands in the first page", fake.listRequests)
	}
}

func TestPlexClient_UnknownLibrary(t *testing.T) {
	fake := &plexFake{total: 0, addedOffsets: func(int) time.Duration { return 0 }}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	_, err := newTestClient(server.URL).RecentMovies(context.Background(), "Anime", 1)
	if !errors.Is(err, domain.ErrLibraryNotFound) {
		t.Errorf("RecentMovies() error = %v, want ErrLibraryNotFound", err)
	}
}
