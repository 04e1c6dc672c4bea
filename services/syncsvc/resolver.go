package syncsvc

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"reelist/models"
	"reelist/services/library"
)

// playbackSource is the slice of the library client the resolver needs.
type playbackSource interface {
	ScopeUsers(ctx context.Context) ([]library.User, error)
	Watched(ctx context.Context, libraryRef string, mediaType models.MediaType, userID string) (bool, error)
}

// Resolver decides whether a matched library item counts as watched. With a
// configured username that user's playback state is authoritative; otherwise
// the item is watched when any server user completed it.
type Resolver struct {
	source playbackSource
}

func NewResolver(source playbackSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the watched state for a library item. Missing playback
// data reads as unwatched, not as an error.
func (r *Resolver) Resolve(ctx context.Context, libraryRef string, mediaType models.MediaType) (bool, error) {
	users, err := r.source.ScopeUsers(ctx)
	if err != nil {
		return false, err
	}

	if len(users) == 1 {
		return r.source.Watched(ctx, libraryRef, mediaType, users[0].ID)
	}

	watched := make([]bool, len(users))
	errs := make([]error, len(users))

	p := pool.New().WithMaxGoroutines(4)
	for i, u := range users {
		i, u := i, u
		p.Go(func() {
			watched[i], errs[i] = r.source.Watched(ctx, libraryRef, mediaType, u.ID)
		})
	}
	p.Wait()

	var firstErr error
	for i := range users {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if watched[i] {
			// any completed user marks the item watched, even if another
			// user's lookup failed
			return true, nil
		}
	}
	if firstErr != nil {
		return false, firstErr
	}
	return false, nil
}
