// Package syncsvc reconciles the watchlist against a library snapshot:
// matching entries to library items, resolving watched state, and running
// the whole pass under a single-flight gate.
package syncsvc

import (
	"reelist/models"
	"reelist/services/library"
	"reelist/utils/titles"
)

// MatchConfidence tells how an entry was tied to a library item.
type MatchConfidence string

const (
	MatchExact MatchConfidence = "exact"
	MatchFuzzy MatchConfidence = "fuzzy"
)

// MatchResult is the outcome of locating a watchlist entry in a snapshot.
type MatchResult struct {
	Found      bool
	LibraryRef string
	Confidence MatchConfidence
}

// Match locates the library item backing an entry. The provider id is
// authoritative; title matching is the fallback for libraries whose metadata
// plugins never filled provider ids in. Candidates with the entry's release
// year win over ones a year off, which win over the first candidate in
// server enumeration order. The same entry and snapshot always produce the
// same result.
func Match(entry models.Entry, snapshot *library.Snapshot) MatchResult {
	if item, ok := snapshot.ByCanonicalID(entry.ExternalID, entry.MediaType); ok {
		return MatchResult{Found: true, LibraryRef: item.ID, Confidence: MatchExact}
	}

	normalized := titles.Normalize(entry.Title)
	if normalized == "" {
		return MatchResult{}
	}

	candidates := snapshot.ByTitle(normalized, entry.MediaType)
	if len(candidates) == 0 {
		return MatchResult{}
	}

	if year := entry.ReleaseYear(); year != 0 {
		for _, c := range candidates {
			if c.ProductionYear == year {
				return MatchResult{Found: true, LibraryRef: c.ID, Confidence: MatchFuzzy}
			}
		}
		for _, c := range candidates {
			if c.ProductionYear == year-1 || c.ProductionYear == year+1 {
				return MatchResult{Found: true, LibraryRef: c.ID, Confidence: MatchFuzzy}
			}
		}
	}

	return MatchResult{Found: true, LibraryRef: candidates[0].ID, Confidence: MatchFuzzy}
}
