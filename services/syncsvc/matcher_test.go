package syncsvc

import (
	"testing"

	"reelist/models"
	"reelist/services/library"
)

func snapshotOf(items ...library.Item) *library.Snapshot {
	return library.NewSnapshot(items)
}

func TestMatchPrefersProviderID(t *testing.T) {
	snapshot := snapshotOf(
		library.Item{ID: "by-title", Name: "The Matrix", Type: "Movie", ProductionYear: 1999},
		library.Item{ID: "by-id", Name: "Matrix Reloaded Mislabeled", Type: "Movie", ProviderIds: map[string]string{"Tmdb": "603"}},
	)

	entry := models.Entry{ExternalID: "603", MediaType: models.MediaTypeMovie, Title: "The Matrix", ReleaseDate: "1999-03-31"}
	result := Match(entry, snapshot)

	if !result.Found || result.LibraryRef != "by-id" || result.Confidence != MatchExact {
		t.Fatalf("expected exact provider-id match, got %+v", result)
	}
}

func TestMatchFallsBackToTitleAndYear(t *testing.T) {
	snapshot := snapshotOf(
		library.Item{ID: "dune-1984", Name: "Dune", Type: "Movie", ProductionYear: 1984},
		library.Item{ID: "dune-2021", Name: "Dune", Type: "Movie", ProductionYear: 2021},
	)

	entry := models.Entry{ExternalID: "438631", MediaType: models.MediaTypeMovie, Title: "Dune", ReleaseDate: "2021-09-15"}
	result := Match(entry, snapshot)

	if !result.Found || result.LibraryRef != "dune-2021" || result.Confidence != MatchFuzzy {
		t.Fatalf("expected year-disambiguated fuzzy match, got %+v", result)
	}
}

func TestMatchAcceptsOffByOneYear(t *testing.T) {
	// regional release dates often shift titles across a year boundary
	snapshot := snapshotOf(
		library.Item{ID: "amelie", Name: "Amélie", Type: "Movie", ProductionYear: 2001},
	)

	entry := models.Entry{ExternalID: "194", MediaType: models.MediaTypeMovie, Title: "Amelie", ReleaseDate: "2002-02-08"}
	result := Match(entry, snapshot)

	if !result.Found || result.LibraryRef != "amelie" {
		t.Fatalf("expected off-by-one year match, got %+v", result)
	}
}

func TestMatchTieBreaksOnSnapshotOrder(t *testing.T) {
	snapshot := snapshotOf(
		library.Item{ID: "first", Name: "Solaris", Type: "Movie", ProductionYear: 1972},
		library.Item{ID: "second", Name: "Solaris", Type: "Movie", ProductionYear: 2002},
	)

	entry := models.Entry{ExternalID: "111", MediaType: models.MediaTypeMovie, Title: "Solaris"}

	first := Match(entry, snapshot)
	if !first.Found || first.LibraryRef != "first" {
		t.Fatalf("expected first snapshot candidate without a year signal, got %+v", first)
	}
	for i := 0; i < 10; i++ {
		if again := Match(entry, snapshot); again != first {
			t.Fatalf("match is not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestMatchRespectsMediaType(t *testing.T) {
	snapshot := snapshotOf(
		library.Item{ID: "show", Name: "Fargo", Type: "Series", ProductionYear: 2014},
	)

	entry := models.Entry{ExternalID: "275", MediaType: models.MediaTypeMovie, Title: "Fargo", ReleaseDate: "1996-03-08"}
	if result := Match(entry, snapshot); result.Found {
		t.Fatalf("movie entry must not match a series item: %+v", result)
	}
}

func TestMatchNotFound(t *testing.T) {
	snapshot := snapshotOf()
	entry := models.Entry{ExternalID: "603", MediaType: models.MediaTypeMovie, Title: "The Matrix"}
	if result := Match(entry, snapshot); result.Found {
		t.Fatalf("expected no match in empty snapshot, got %+v", result)
	}
}
