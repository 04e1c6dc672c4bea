package library

import (
	"reelist/models"
	"reelist/utils/titles"
)

type idKey struct {
	tmdbID    string
	mediaType models.MediaType
}

type titleKey struct {
	title     string
	mediaType models.MediaType
}

// Snapshot is a point-in-time index of the server's movies and series,
// queryable by canonical TMDB id and by normalized title. Items that carry
// neither a usable title nor a provider id are dropped at build time; they
// can never match a watchlist entry.
type Snapshot struct {
	items   []Item
	byID    map[idKey]int
	byTitle map[titleKey][]int
	skipped int
}

// NewSnapshot indexes the given items, preserving their order. On duplicate
// provider ids the first occurrence wins, keeping lookups deterministic.
func NewSnapshot(items []Item) *Snapshot {
	s := &Snapshot{
		byID:    make(map[idKey]int),
		byTitle: make(map[titleKey][]int),
	}

	for _, item := range items {
		mediaType, ok := item.MediaType()
		if !ok {
			s.skipped++
			continue
		}

		tmdbID := item.TmdbID()
		title := titles.Normalize(item.Name)
		if tmdbID == "" && title == "" {
			s.skipped++
			continue
		}

		idx := len(s.items)
		s.items = append(s.items, item)

		if tmdbID != "" {
			key := idKey{tmdbID, mediaType}
			if _, dup := s.byID[key]; !dup {
				s.byID[key] = idx
			}
		}
		if title != "" {
			key := titleKey{title, mediaType}
			s.byTitle[key] = append(s.byTitle[key], idx)
		}
	}

	return s
}

// ByCanonicalID looks an item up by its TMDB provider id.
func (s *Snapshot) ByCanonicalID(tmdbID string, mediaType models.MediaType) (Item, bool) {
	idx, ok := s.byID[idKey{tmdbID, mediaType}]
	if !ok {
		return Item{}, false
	}
	return s.items[idx], true
}

// ByTitle returns all items whose normalized title matches, in server
// enumeration order.
func (s *Snapshot) ByTitle(normalized string, mediaType models.MediaType) []Item {
	indexes := s.byTitle[titleKey{normalized, mediaType}]
	if len(indexes) == 0 {
		return nil
	}
	items := make([]Item, len(indexes))
	for i, idx := range indexes {
		items[i] = s.items[idx]
	}
	return items
}

// Len is the number of indexed items.
func (s *Snapshot) Len() int { return len(s.items) }

// Skipped is the number of items dropped as unmatchable.
func (s *Snapshot) Skipped() int { return s.skipped }
