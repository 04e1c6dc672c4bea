package models

// Candidate is one catalog search result that may be promoted into the
// watchlist.
type Candidate struct {
	ExternalID  string    `json:"externalId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	PosterRef   string    `json:"posterRef,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	Genres      string    `json:"genres,omitempty"`
}

// Genre is a catalog genre descriptor used by the dashboard filters.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
