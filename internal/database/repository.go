package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"reelist/models"
)

var (
	ErrNotFound           = errors.New("watchlist entry not found")
	ErrDuplicateEntry     = errors.New("entry already in watchlist")
	ErrAlreadyQueued      = errors.New("entry already queued")
	ErrNotQueued          = errors.New("entry not queued")
	ErrInvalidPermutation = errors.New("reorder must be a bijection onto the queued entries")
)

// Repository persists watchlist entries. All mutations are scoped to a single
// entry except the queue operations, which run in one transaction to keep the
// 1..N position range contiguous.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, external_id, media_type, title, poster_ref, overview, release_date, genres,
	is_available, library_ref, is_watched, watched_manually_set, queue_position, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.Entry, error) {
	var (
		e          models.Entry
		libraryRef sql.NullString
		queuePos   sql.NullInt64
		updatedAt  sql.NullTime
	)

	err := row.Scan(&e.ID, &e.ExternalID, &e.MediaType, &e.Title, &e.PosterRef, &e.Overview,
		&e.ReleaseDate, &e.Genres, &e.IsAvailable, &libraryRef, &e.IsWatched,
		&e.WatchedManuallySet, &queuePos, &e.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, ErrNotFound
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	if libraryRef.Valid {
		e.LibraryRef = libraryRef.String
	}
	if queuePos.Valid {
		pos := int(queuePos.Int64)
		e.QueuePosition = &pos
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		e.UpdatedAt = &t
	}

	return e, nil
}

// Insert adds a new entry. The (external_id, media_type) pair is unique;
// inserting a duplicate returns ErrDuplicateEntry without altering the store.
func (r *Repository) Insert(ctx context.Context, input models.EntryUpsert) (models.Entry, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist_entries
			(external_id, media_type, title, poster_ref, overview, release_date, genres, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input.ExternalID, input.MediaType, input.Title, input.PosterRef,
		input.Overview, input.ReleaseDate, input.Genres, now)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return models.Entry{}, ErrDuplicateEntry
		}
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert entry id: %w", err)
	}

	return r.Get(ctx, id)
}

// Get returns a single entry by id.
func (r *Repository) Get(ctx context.Context, id int64) (models.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM watchlist_entries WHERE id = ?`, id)
	return scanEntry(row)
}

// All returns every entry ordered by id, the order sync passes process in.
func (r *Repository) All(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM watchlist_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// List returns entries matching the filter, sorted per its sort order.
func (r *Repository) List(ctx context.Context, filter models.FilterConfig) ([]models.Entry, error) {
	filter = filter.Normalized()

	var (
		where []string
		args  []any
	)

	if filter.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, filter.MediaType)
	}
	switch filter.Watched {
	case models.WatchedOnly:
		where = append(where, "is_watched = 1")
	case models.WatchedUnwatched:
		where = append(where, "is_watched = 0")
	}
	switch filter.Availability {
	case models.AvailabilityAvailable:
		where = append(where, "is_available = 1")
	case models.AvailabilityMissing:
		where = append(where, "is_available = 0")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+s+"%")
	}
	for _, genreID := range filter.Genres {
		genreID = strings.TrimSpace(genreID)
		if genreID == "" {
			continue
		}
		// genres is a comma-separated id list; wrap both sides so "2"
		// cannot match an entry tagged only "28"
		where = append(where, "(',' || COALESCE(genres, '') || ',') LIKE ?")
		args = append(args, "%,"+genreID+",%")
	}

	query := `SELECT ` + entryColumns + ` FROM watchlist_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch filter.Sort {
	case models.SortCreatedAsc:
		query += " ORDER BY created_at ASC, id ASC"
	case models.SortTitleAsc:
		query += " ORDER BY title COLLATE NOCASE ASC, id ASC"
	case models.SortTitleDesc:
		query += " ORDER BY title COLLATE NOCASE DESC, id ASC"
	default:
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry, compacting the queue if the entry was queued.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var queuePos sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT queue_position FROM watchlist_entries WHERE id = ?`, id).Scan(&queuePos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}

		if queuePos.Valid {
			if _, err := tx.ExecContext(ctx, `
				UPDATE watchlist_entries
				SET queue_position = queue_position - 1
				WHERE queue_position > ?`, queuePos.Int64); err != nil {
				return fmt.Errorf("compact queue: %w", err)
			}
		}

		return nil
	})
}

// ToggleWatched flips the watched flag and marks it as manually set.
func (r *Repository) ToggleWatched(ctx context.Context, id int64) (models.Entry, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE watchlist_entries
		SET is_watched = NOT is_watched, watched_manually_set = 1, updated_at = ?
		WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return models.Entry{}, fmt.Errorf("toggle watched: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Entry{}, ErrNotFound
	}

	return r.Get(ctx, id)
}

// RefreshDetails overwrites the display cache fields from a catalog re-lookup.
func (r *Repository) RefreshDetails(ctx context.Context, id int64, input models.EntryUpsert) (models.Entry, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE watchlist_entries
		SET title = ?, poster_ref = ?, overview = ?, release_date = ?, genres = ?, updated_at = ?
		WHERE id = ?`,
		input.Title, input.PosterRef, input.Overview, input.ReleaseDate, input.Genres,
		time.Now().UTC(), id)
	if err != nil {
		return models.Entry{}, fmt.Errorf("refresh details: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Entry{}, ErrNotFound
	}

	return r.Get(ctx, id)
}

// SyncResult is the per-entry outcome of a reconciliation pass, written
// atomically: availability, library reference and watched state always land
// together.
type SyncResult struct {
	IsAvailable        bool
	LibraryRef         string
	IsWatched          bool
	WatchedManuallySet bool
}

// ApplySyncResult writes a pass outcome for one entry in a single statement.
func (r *Repository) ApplySyncResult(ctx context.Context, id int64, result SyncResult) error {
	var libraryRef any
	if result.LibraryRef != "" {
		libraryRef = result.LibraryRef
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE watchlist_entries
		SET is_available = ?, library_ref = ?, is_watched = ?, watched_manually_set = ?, updated_at = ?
		WHERE id = ?`,
		result.IsAvailable, libraryRef, result.IsWatched, result.WatchedManuallySet,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("apply sync result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

// Enqueue assigns the next queue position (1 when the queue is empty).
func (r *Repository) Enqueue(ctx context.Context, id int64) (models.Entry, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var queuePos sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT queue_position FROM watchlist_entries WHERE id = ?`, id).Scan(&queuePos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}
		if queuePos.Valid {
			return ErrAlreadyQueued
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE watchlist_entries
			SET queue_position = (SELECT COALESCE(MAX(queue_position), 0) + 1 FROM watchlist_entries),
			    updated_at = ?
			WHERE id = ?`, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Entry{}, err
	}

	return r.Get(ctx, id)
}

// Dequeue removes an entry from the queue, shifting later positions down so
// the range stays contiguous.
func (r *Repository) Dequeue(ctx context.Context, id int64) (models.Entry, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var queuePos sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT queue_position FROM watchlist_entries WHERE id = ?`, id).Scan(&queuePos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}
		if !queuePos.Valid {
			return ErrNotQueued
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE watchlist_entries SET queue_position = NULL, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), id); err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE watchlist_entries
			SET queue_position = queue_position - 1
			WHERE queue_position > ?`, queuePos.Int64); err != nil {
			return fmt.Errorf("compact queue: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Entry{}, err
	}

	return r.Get(ctx, id)
}

// Reorder applies a full permutation of the queued entries. The permutation
// must cover exactly the queued ids and map onto 1..N; anything else is
// rejected before any position changes.
func (r *Repository) Reorder(ctx context.Context, positions map[int64]int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM watchlist_entries WHERE queue_position IS NOT NULL`)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}

		queued := make(map[int64]bool)
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan queue: %w", err)
			}
			queued[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("read queue: %w", err)
		}

		if err := validatePermutation(positions, queued); err != nil {
			return err
		}

		now := time.Now().UTC()
		for id, pos := range positions {
			if _, err := tx.ExecContext(ctx, `
				UPDATE watchlist_entries SET queue_position = ?, updated_at = ? WHERE id = ?`,
				pos, now, id); err != nil {
				return fmt.Errorf("reorder entry %d: %w", id, err)
			}
		}
		return nil
	})
}

// validatePermutation checks positions is a bijection from the queued ids
// onto 1..N.
func validatePermutation(positions map[int64]int, queued map[int64]bool) error {
	if len(positions) != len(queued) {
		return ErrInvalidPermutation
	}

	seen := make(map[int]bool, len(positions))
	for id, pos := range positions {
		if !queued[id] {
			return ErrInvalidPermutation
		}
		if pos < 1 || pos > len(queued) || seen[pos] {
			return ErrInvalidPermutation
		}
		seen[pos] = true
	}
	return nil
}

// ListQueued returns queued entries ordered by ascending queue position.
func (r *Repository) ListQueued(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM watchlist_entries
		WHERE queue_position IS NOT NULL
		ORDER BY queue_position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
