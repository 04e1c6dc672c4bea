package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func addEntry(t *testing.T, repo *Repository, externalID, title string, mediaType models.MediaType) models.Entry {
	t.Helper()

	entry, err := repo.Insert(context.Background(), models.EntryUpsert{
		ExternalID:  externalID,
		MediaType:   mediaType,
		Title:       title,
		ReleaseDate: "1999-03-31",
	})
	require.NoError(t, err)
	return entry
}

func TestInsertRejectsDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	addEntry(t, repo, "603", "The Matrix", models.MediaTypeMovie)

	_, err := repo.Insert(ctx, models.EntryUpsert{
		ExternalID: "603",
		MediaType:  models.MediaTypeMovie,
		Title:      "The Matrix (again)",
	})
	require.ErrorIs(t, err, ErrDuplicateEntry)

	// Same external id with a different media type is a distinct entry.
	_, err = repo.Insert(ctx, models.EntryUpsert{
		ExternalID: "603",
		MediaType:  models.MediaTypeSeries,
		Title:      "The Matrix Series",
	})
	require.NoError(t, err)

	entries, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "The Matrix", entries[0].Title, "failed insert must not alter the store")
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	matrix := addEntry(t, repo, "603", "The Matrix", models.MediaTypeMovie)
	addEntry(t, repo, "1396", "Breaking Bad", models.MediaTypeSeries)
	addEntry(t, repo, "680", "Pulp Fiction", models.MediaTypeMovie)

	require.NoError(t, repo.ApplySyncResult(ctx, matrix.ID, SyncResult{
		IsAvailable: true,
		LibraryRef:  "jf-1",
		IsWatched:   true,
	}))

	movies, err := repo.List(ctx, models.FilterConfig{MediaType: models.MediaTypeMovie})
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	watched, err := repo.List(ctx, models.FilterConfig{Watched: models.WatchedOnly})
	require.NoError(t, err)
	require.Len(t, watched, 1)
	assert.Equal(t, matrix.ID, watched[0].ID)

	missing, err := repo.List(ctx, models.FilterConfig{Availability: models.AvailabilityMissing})
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	search, err := repo.List(ctx, models.FilterConfig{Search: "matri"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "The Matrix", search[0].Title)

	byTitle, err := repo.List(ctx, models.FilterConfig{Sort: models.SortTitleAsc})
	require.NoError(t, err)
	require.Len(t, byTitle, 3)
	assert.Equal(t, "Breaking Bad", byTitle[0].Title)
	assert.Equal(t, "The Matrix", byTitle[2].Title)
}

func TestListFiltersByGenres(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	matrix := addEntry(t, repo, "603", "The Matrix", models.MediaTypeMovie)
	drama := addEntry(t, repo, "1396", "Breaking Bad", models.MediaTypeSeries)
	addEntry(t, repo, "680", "Pulp Fiction", models.MediaTypeMovie)

	_, err := repo.RefreshDetails(ctx, matrix.ID, models.EntryUpsert{Title: "The Matrix", Genres: "28,878"})
	require.NoError(t, err)
	_, err = repo.RefreshDetails(ctx, drama.ID, models.EntryUpsert{Title: "Breaking Bad", Genres: "18,80"})
	require.NoError(t, err)

	action, err := repo.List(ctx, models.FilterConfig{Genres: []string{"28"}})
	require.NoError(t, err)
	require.Len(t, action, 1)
	assert.Equal(t, "The Matrix", action[0].Title)

	// An entry must carry every requested id.
	both, err := repo.List(ctx, models.FilterConfig{Genres: []string{"28", "878"}})
	require.NoError(t, err)
	assert.Len(t, both, 1)

	none, err := repo.List(ctx, models.FilterConfig{Genres: []string{"28", "18"}})
	require.NoError(t, err)
	assert.Empty(t, none)

	// "8" is not a substring match against 28, 878, 18 or 80.
	exact, err := repo.List(ctx, models.FilterConfig{Genres: []string{"8"}})
	require.NoError(t, err)
	assert.Empty(t, exact)
}

func TestApplySyncResultCouplesAvailabilityAndRef(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := addEntry(t, repo, "603", "The Matrix", models.MediaTypeMovie)

	require.NoError(t, repo.ApplySyncResult(ctx, entry.ID, SyncResult{
		IsAvailable: true,
		LibraryRef:  "jf-603",
		IsWatched:   true,
	}))

	got, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, "jf-603", got.LibraryRef)
	assert.True(t, got.IsWatched)

	// Flipping back to unavailable clears the reference in the same write.
	require.NoError(t, repo.ApplySyncResult(ctx, entry.ID, SyncResult{
		IsAvailable: false,
		IsWatched:   got.IsWatched,
	}))

	got, err = repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	assert.Empty(t, got.LibraryRef)
	assert.True(t, got.IsWatched, "watched state survives losing availability")
}

func TestToggleWatchedMarksManual(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := addEntry(t, repo, "603", "The Matrix", models.MediaTypeMovie)

	got, err := repo.ToggleWatched(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.IsWatched)
	assert.True(t, got.WatchedManuallySet)

	got, err = repo.ToggleWatched(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsWatched)
	assert.True(t, got.WatchedManuallySet)

	_, err = repo.ToggleWatched(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func queuePositions(t *testing.T, repo *Repository) map[string]int {
	t.Helper()

	queued, err := repo.ListQueued(context.Background())
	require.NoError(t, err)

	positions := make(map[string]int, len(queued))
	for _, e := range queued {
		require.NotNil(t, e.QueuePosition)
		positions[e.Title] = *e.QueuePosition
	}
	return positions
}

func TestQueueLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := addEntry(t, repo, "1", "A", models.MediaTypeMovie)
	b := addEntry(t, repo, "2", "B", models.MediaTypeMovie)
	c := addEntry(t, repo, "3", "C", models.MediaTypeMovie)

	for _, e := range []models.Entry{a, b, c} {
		_, err := repo.Enqueue(ctx, e.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 2, "C": 3}, queuePositions(t, repo))

	_, err := repo.Enqueue(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	_, err = repo.Dequeue(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "C": 2}, queuePositions(t, repo))

	_, err = repo.Dequeue(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotQueued)

	require.NoError(t, repo.Reorder(ctx, map[int64]int{c.ID: 1, a.ID: 2}))
	assert.Equal(t, map[string]int{"C": 1, "A": 2}, queuePositions(t, repo))
}

func TestReorderRejectsInvalidPermutations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := addEntry(t, repo, "1", "A", models.MediaTypeMovie)
	b := addEntry(t, repo, "2", "B", models.MediaTypeMovie)
	unqueued := addEntry(t, repo, "3", "C", models.MediaTypeMovie)

	for _, e := range []models.Entry{a, b} {
		_, err := repo.Enqueue(ctx, e.ID)
		require.NoError(t, err)
	}

	cases := map[string]map[int64]int{
		"partial":            {a.ID: 1},
		"duplicate position": {a.ID: 1, b.ID: 1},
		"out of range":       {a.ID: 1, b.ID: 3},
		"zero position":      {a.ID: 0, b.ID: 1},
		"unqueued id":        {a.ID: 1, unqueued.ID: 2},
	}

	for name, perm := range cases {
		err := repo.Reorder(ctx, perm)
		assert.ErrorIs(t, err, ErrInvalidPermutation, name)
	}

	// No partial mutation: original order intact.
	assert.Equal(t, map[string]int{"A": 1, "B": 2}, queuePositions(t, repo))
}

func TestDeleteCompactsQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := addEntry(t, repo, "1", "A", models.MediaTypeMovie)
	b := addEntry(t, repo, "2", "B", models.MediaTypeMovie)
	c := addEntry(t, repo, "3", "C", models.MediaTypeMovie)

	for _, e := range []models.Entry{a, b, c} {
		_, err := repo.Enqueue(ctx, e.ID)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Delete(ctx, b.ID))
	assert.Equal(t, map[string]int{"A": 1, "C": 2}, queuePositions(t, repo))

	assert.ErrorIs(t, repo.Delete(ctx, b.ID), ErrNotFound)
}
