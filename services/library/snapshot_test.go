package library

import (
	"testing"

	"reelist/models"
)

func TestSnapshotIndexesByIDAndTitle(t *testing.T) {
	snapshot := NewSnapshot([]Item{
		{ID: "j1", Name: "The Matrix", Type: "Movie", ProductionYear: 1999, ProviderIds: map[string]string{"Tmdb": "603"}},
		{ID: "j2", Name: "Amélie", Type: "Movie", ProductionYear: 2001},
		{ID: "j3", Name: "The Matrix", Type: "Series"},
		{ID: "j4", Name: "", Type: "Movie"},
		{ID: "j5", Name: "Some Episode", Type: "Episode"},
	})

	if snapshot.Len() != 3 {
		t.Fatalf("expected 3 indexed items, got %d", snapshot.Len())
	}
	if snapshot.Skipped() != 2 {
		t.Errorf("expected 2 skipped items, got %d", snapshot.Skipped())
	}

	if item, ok := snapshot.ByCanonicalID("603", models.MediaTypeMovie); !ok || item.ID != "j1" {
		t.Errorf("canonical id lookup failed: %+v %v", item, ok)
	}
	if _, ok := snapshot.ByCanonicalID("603", models.MediaTypeSeries); ok {
		t.Error("canonical id lookup must respect media type")
	}

	if items := snapshot.ByTitle("amelie", models.MediaTypeMovie); len(items) != 1 || items[0].ID != "j2" {
		t.Errorf("diacritic-normalized title lookup failed: %+v", items)
	}
	if items := snapshot.ByTitle("the matrix", models.MediaTypeSeries); len(items) != 1 || items[0].ID != "j3" {
		t.Errorf("title lookup must respect media type: %+v", items)
	}
}

func TestSnapshotPreservesOrderOnDuplicateTitles(t *testing.T) {
	snapshot := NewSnapshot([]Item{
		{ID: "first", Name: "Dune", Type: "Movie", ProductionYear: 1984},
		{ID: "second", Name: "Dune", Type: "Movie", ProductionYear: 2021},
	})

	items := snapshot.ByTitle("dune", models.MediaTypeMovie)
	if len(items) != 2 || items[0].ID != "first" || items[1].ID != "second" {
		t.Fatalf("expected server enumeration order, got %+v", items)
	}
}
