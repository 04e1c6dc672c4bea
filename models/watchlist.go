package models

import "time"

// MediaType identifies the kind of title a watchlist entry refers to.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether the media type is one of the supported values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// Entry represents one watchlist item persisted in the store.
//
// LibraryRef is non-empty exactly when IsAvailable is true: it holds the
// media server's opaque item id for the matched library item. QueuePosition
// is nil when the entry is not queued; queued entries always hold a dense
// 1..N range with no duplicates.
type Entry struct {
	ID                 int64      `json:"id"`
	ExternalID         string     `json:"externalId"`
	MediaType          MediaType  `json:"mediaType"`
	Title              string     `json:"title"`
	PosterRef          string     `json:"posterRef,omitempty"`
	Overview           string     `json:"overview,omitempty"`
	ReleaseDate        string     `json:"releaseDate,omitempty"`
	Genres             string     `json:"genres,omitempty"`
	IsAvailable        bool       `json:"isAvailable"`
	LibraryRef         string     `json:"libraryRef,omitempty"`
	IsWatched          bool       `json:"isWatched"`
	WatchedManuallySet bool       `json:"watchedManuallySet"`
	QueuePosition      *int       `json:"queuePosition,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// ReleaseYear extracts the four digit year from the release date, or 0 when
// the date is missing or malformed.
func (e Entry) ReleaseYear() int {
	return yearOf(e.ReleaseDate)
}

// Queued reports whether the entry currently holds a queue position.
func (e Entry) Queued() bool {
	return e.QueuePosition != nil
}

// EntryUpsert captures the data required to add a watchlist entry, typically
// copied from a promoted catalog search candidate.
type EntryUpsert struct {
	ExternalID  string    `json:"externalId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	PosterRef   string    `json:"posterRef,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	Genres      string    `json:"genres,omitempty"`
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}
