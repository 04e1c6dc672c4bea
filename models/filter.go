package models

// WatchedFilter narrows a listing by watched state.
type WatchedFilter string

const (
	WatchedAll       WatchedFilter = "all"
	WatchedOnly      WatchedFilter = "watched"
	WatchedUnwatched WatchedFilter = "unwatched"
)

// AvailabilityFilter narrows a listing by library availability.
type AvailabilityFilter string

const (
	AvailabilityAll       AvailabilityFilter = "all"
	AvailabilityAvailable AvailabilityFilter = "available"
	AvailabilityMissing   AvailabilityFilter = "missing"
)

// SortOrder selects the listing order.
type SortOrder string

const (
	SortCreatedDesc SortOrder = "created_desc"
	SortCreatedAsc  SortOrder = "created_asc"
	SortTitleAsc    SortOrder = "title_asc"
	SortTitleDesc   SortOrder = "title_desc"
)

// FilterConfig is the single explicit filter structure applied to watchlist
// listings and the random selector. Zero values mean "no filtering" and the
// default sort is newest first.
type FilterConfig struct {
	MediaType    MediaType          `json:"mediaType,omitempty"`    // empty = all
	Watched      WatchedFilter      `json:"watched,omitempty"`      // default all
	Availability AvailabilityFilter `json:"availability,omitempty"` // default all
	Search       string             `json:"search,omitempty"`       // title substring, case-insensitive
	Genres       []string           `json:"genres,omitempty"`       // TMDB genre ids, entry must carry all of them
	Sort         SortOrder          `json:"sort,omitempty"`         // default created_desc
}

// Normalized returns a copy with defaults filled in for empty fields.
func (f FilterConfig) Normalized() FilterConfig {
	if f.Watched == "" {
		f.Watched = WatchedAll
	}
	if f.Availability == "" {
		f.Availability = AvailabilityAll
	}
	if f.Sort == "" {
		f.Sort = SortCreatedDesc
	}
	return f
}
