// Package catalog looks titles up in TMDB. It is a read-only boundary: the
// watchlist stores what the user promoted, the catalog never writes back.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"reelist/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// w500 is plenty for dashboard poster cards.
	tmdbPosterSize = "w500"
)

// ErrUnavailable wraps TMDB transport failures so callers can map them to a
// gateway error without retrying.
var ErrUnavailable = errors.New("catalog unavailable")

// Client is a rate-limited TMDB API client.
type Client struct {
	apiKey   string
	language string
	httpc    *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient creates a TMDB client. A nil httpc falls back to a 15s-timeout
// default; tests inject a fake transport.
func NewClient(apiKey, language string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		apiKey:      strings.TrimSpace(apiKey),
		language:    strings.TrimSpace(language),
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *Client) configured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a rate-limited GET with retry and exponential backoff on
// transient failures.
func (c *Client) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	if !c.configured() {
		return errors.New("tmdb api key not configured")
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if c.language != "" {
		query.Set("language", c.language)
	} else {
		query.Set("language", "en-US")
	}

	var lastErr error
	backoff := 300 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		c.throttleMu.Lock()
		since := time.Since(c.lastRequest)
		if since < c.minInterval {
			time.Sleep(c.minInterval - since)
		}
		c.lastRequest = time.Now()
		c.throttleMu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.URL.RawQuery = query.Encode()

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("[catalog] http error (attempt %d/3): %v", attempt+1, err)
			if attempt < 2 {
				time.Sleep(backoff)
				backoff *= 2
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("tmdb request failed: %s", resp.Status)
			log.Printf("[catalog] rate limited or server error (attempt %d/3): status %d", attempt+1, resp.StatusCode)
			if attempt < 2 {
				time.Sleep(backoff)
				backoff *= 2
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("%w: tmdb request failed: %s", ErrUnavailable, resp.Status)
		}

		err = json.NewDecoder(resp.Body).Decode(v)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode tmdb response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

type tmdbSearchResponse struct {
	Results []struct {
		ID           int64  `json:"id"`
		Title        string `json:"title"`
		Name         string `json:"name"`
		Overview     string `json:"overview"`
		PosterPath   string `json:"poster_path"`
		ReleaseDate  string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
	} `json:"results"`
}

// Search queries TMDB for candidates of the given media type. An empty media
// type searches movies and series and interleaves nothing: movie results come
// first, matching the original dashboard behavior.
func (c *Client) Search(ctx context.Context, query string, mediaType models.MediaType) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}

	types := []models.MediaType{mediaType}
	if mediaType == "" {
		types = []models.MediaType{models.MediaTypeMovie, models.MediaTypeSeries}
	}

	var candidates []models.Candidate
	for _, mt := range types {
		results, err := c.searchOne(ctx, query, mt)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, results...)
	}

	if len(candidates) > 20 {
		candidates = candidates[:20]
	}
	return candidates, nil
}

func (c *Client) searchOne(ctx context.Context, query string, mediaType models.MediaType) ([]models.Candidate, error) {
	path := "movie"
	if mediaType == models.MediaTypeSeries {
		path = "tv"
	}

	q := url.Values{}
	q.Set("query", query)

	var payload tmdbSearchResponse
	if err := c.doGET(ctx, tmdbBaseURL+"/search/"+path, q, &payload); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		title := r.Title
		releaseDate := r.ReleaseDate
		if mediaType == models.MediaTypeSeries {
			title = r.Name
			releaseDate = r.FirstAirDate
		}
		if strings.TrimSpace(title) == "" {
			continue
		}

		candidates = append(candidates, models.Candidate{
			ExternalID:  strconv.FormatInt(r.ID, 10),
			MediaType:   mediaType,
			Title:       title,
			Year:        yearOf(releaseDate),
			PosterRef:   PosterURL(r.PosterPath),
			Overview:    r.Overview,
			ReleaseDate: releaseDate,
		})
	}

	return candidates, nil
}

type tmdbDetailsResponse struct {
	Title        string         `json:"title"`
	Name         string         `json:"name"`
	Overview     string         `json:"overview"`
	PosterPath   string         `json:"poster_path"`
	ReleaseDate  string         `json:"release_date"`
	FirstAirDate string         `json:"first_air_date"`
	Genres       []models.Genre `json:"genres"`
}

// Details fetches the current display fields for one title, used to refresh
// the cached copy on a watchlist entry.
func (c *Client) Details(ctx context.Context, externalID string, mediaType models.MediaType) (models.Candidate, error) {
	path := "movie"
	if mediaType == models.MediaTypeSeries {
		path = "tv"
	}

	var payload tmdbDetailsResponse
	if err := c.doGET(ctx, tmdbBaseURL+"/"+path+"/"+url.PathEscape(externalID), nil, &payload); err != nil {
		return models.Candidate{}, err
	}

	title := payload.Title
	releaseDate := payload.ReleaseDate
	if mediaType == models.MediaTypeSeries {
		title = payload.Name
		releaseDate = payload.FirstAirDate
	}

	ids := make([]string, 0, len(payload.Genres))
	for _, g := range payload.Genres {
		ids = append(ids, strconv.Itoa(g.ID))
	}

	return models.Candidate{
		ExternalID:  externalID,
		MediaType:   mediaType,
		Title:       title,
		Year:        yearOf(releaseDate),
		PosterRef:   PosterURL(payload.PosterPath),
		Overview:    payload.Overview,
		ReleaseDate: releaseDate,
		Genres:      strings.Join(ids, ","),
	}, nil
}

// Genres returns the comma-separated TMDB genre ids for a title, used as a
// display cache on watchlist entries.
func (c *Client) Genres(ctx context.Context, externalID string, mediaType models.MediaType) (string, error) {
	details, err := c.Details(ctx, externalID, mediaType)
	if err != nil {
		return "", err
	}
	return details.Genres, nil
}

type tmdbGenreListResponse struct {
	Genres []models.Genre `json:"genres"`
}

// GenreList returns the union of movie and series genres, sorted by name.
func (c *Client) GenreList(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	paths := []string{"movie", "tv"}
	switch mediaType {
	case models.MediaTypeMovie:
		paths = []string{"movie"}
	case models.MediaTypeSeries:
		paths = []string{"tv"}
	}

	seen := make(map[int]bool)
	var genres []models.Genre
	for _, p := range paths {
		var payload tmdbGenreListResponse
		if err := c.doGET(ctx, tmdbBaseURL+"/genre/"+p+"/list", nil, &payload); err != nil {
			return nil, err
		}
		for _, g := range payload.Genres {
			if !seen[g.ID] {
				seen[g.ID] = true
				genres = append(genres, g)
			}
		}
	}

	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

// PosterURL builds a full image URL from a TMDB poster path.
func PosterURL(posterPath string) string {
	if strings.TrimSpace(posterPath) == "" {
		return ""
	}
	return tmdbImageBaseURL + "/" + tmdbPosterSize + posterPath
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
