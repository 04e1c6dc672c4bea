// Package library talks to the Jellyfin server that holds the household's
// media. It is the only component that knows Jellyfin's wire format; the
// sync pipeline works against the Snapshot index and per-user playback
// lookups it exposes.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"reelist/models"
)

// Jellyfin caps /Items pages at 200.
const snapshotPageSize = 200

// ErrUnavailable wraps Jellyfin transport failures. A sync pass that hits it
// aborts without touching the store.
var ErrUnavailable = errors.New("library unavailable")

// Client is a Jellyfin API client scoped to one server.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	httpc    *http.Client
}

// NewClient creates a Jellyfin client. username is the preferred account for
// watched-state checks; empty means aggregate over all server users. A nil
// httpc falls back to a 30s-timeout default.
func NewClient(baseURL, apiKey, username string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		username: strings.TrimSpace(username),
		httpc:    httpc,
	}
}

// Configured reports whether the client has enough settings to reach a server.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// User is a Jellyfin server account.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Item is a Jellyfin library item as returned by /Items.
type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	ProductionYear int               `json:"ProductionYear"`
	ProviderIds    map[string]string `json:"ProviderIds"`
	UserData       *UserData         `json:"UserData"`
}

// UserData is the per-user playback record attached to an item.
type UserData struct {
	Played           bool    `json:"Played"`
	PlayCount        int     `json:"PlayCount"`
	PlayedPercentage float64 `json:"PlayedPercentage"`
}

// TmdbID returns the item's TMDB provider id, if any. Jellyfin plugins are
// inconsistent about the key's casing.
func (i Item) TmdbID() string {
	for _, key := range []string{"Tmdb", "TheMovieDb", "tmdb", "TMDB"} {
		if id := i.ProviderIds[key]; id != "" {
			return id
		}
	}
	return ""
}

// MediaType maps Jellyfin's item type onto ours. Non-title items (episodes,
// folders) report ok=false.
func (i Item) MediaType() (models.MediaType, bool) {
	switch i.Type {
	case "Movie":
		return models.MediaTypeMovie, true
	case "Series":
		return models.MediaTypeSeries, true
	}
	return "", false
}

func (i Item) played() bool {
	ud := i.UserData
	if ud == nil {
		return false
	}
	return ud.Played || ud.PlayCount > 0 || ud.PlayedPercentage >= 100
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: jellyfin %s failed: %s - %s", ErrUnavailable, path, resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode jellyfin response: %w", err)
	}
	return nil
}

// Users lists the server's accounts.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/Users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ScopeUsers returns the accounts whose playback state counts towards watched
// resolution: the configured username when it exists on the server, otherwise
// every account.
func (c *Client) ScopeUsers(ctx context.Context) ([]User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: server has no users", ErrUnavailable)
	}

	if c.username != "" {
		for _, u := range users {
			if strings.EqualFold(u.Name, c.username) {
				return []User{u}, nil
			}
		}
		log.Printf("[library] configured user %q not found on server, aggregating over all %d users", c.username, len(users))
	}
	return users, nil
}

type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// FetchSnapshot pulls every movie and series the server knows about and
// indexes them for matching. Server enumeration order is preserved.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: jellyfin not configured", ErrUnavailable)
	}

	users, err := c.ScopeUsers(ctx)
	if err != nil {
		return nil, err
	}
	userID := users[0].ID

	var all []Item
	start := 0
	for {
		page, total, err := c.fetchItemsPage(ctx, userID, start, snapshotPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
		start += len(page)
	}

	snapshot := NewSnapshot(all)
	log.Printf("[library] snapshot: %d items indexed, %d skipped", snapshot.Len(), snapshot.Skipped())
	return snapshot, nil
}

func (c *Client) fetchItemsPage(ctx context.Context, userID string, start, limit int) ([]Item, int, error) {
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Series")
	q.Set("Fields", "ProviderIds,UserData")
	q.Set("StartIndex", strconv.Itoa(start))
	q.Set("Limit", strconv.Itoa(limit))
	if userID != "" {
		q.Set("UserId", userID)
	}

	var payload itemsResponse
	err := retry.Do(
		func() error {
			payload = itemsResponse{}
			return c.get(ctx, "/Items", q, &payload)
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, 0, err
	}
	return payload.Items, payload.TotalRecordCount, nil
}

// Watched reports whether one user has finished the referenced item.
func (c *Client) Watched(ctx context.Context, libraryRef string, mediaType models.MediaType, userID string) (bool, error) {
	if mediaType == models.MediaTypeSeries {
		return c.seriesWatched(ctx, libraryRef, userID)
	}
	return c.movieWatched(ctx, libraryRef, userID)
}

func (c *Client) movieWatched(ctx context.Context, itemID, userID string) (bool, error) {
	item, err := c.item(ctx, itemID, userID)
	if err != nil {
		return false, err
	}
	return item.played(), nil
}

type episodesResponse struct {
	Items []Item `json:"Items"`
}

// seriesWatched treats a series as watched when every tracked episode is
// played. When the server returns no episode list, the series-level played
// flag is the fallback.
func (c *Client) seriesWatched(ctx context.Context, seriesID, userID string) (bool, error) {
	series, err := c.item(ctx, seriesID, userID)
	if err != nil {
		return false, err
	}
	if series.played() {
		return true, nil
	}

	q := url.Values{}
	if userID != "" {
		q.Set("UserId", userID)
	}

	var payload episodesResponse
	if err := c.get(ctx, "/Shows/"+url.PathEscape(seriesID)+"/Episodes", q, &payload); err != nil {
		log.Printf("[library] episode list for %s unavailable, using series flag: %v", seriesID, err)
		return series.played(), nil
	}
	if len(payload.Items) == 0 {
		return series.played(), nil
	}

	for _, ep := range payload.Items {
		if !ep.played() {
			return false, nil
		}
	}
	return true, nil
}

func (c *Client) item(ctx context.Context, itemID, userID string) (Item, error) {
	q := url.Values{}
	q.Set("Fields", "UserData")
	if userID != "" {
		q.Set("UserId", userID)
	}

	var item Item
	if err := c.get(ctx, "/Items/"+url.PathEscape(itemID), q, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}
