// Package services – GenreResolver
//
// Maps a free-text genre name (as typed by the user, usually in Russian) to
// the provider's canonical genre id. Matching is caseless substring
// containment over the localized genre catalog, first match in provider
// order wins: "фантаст" resolves to "Фантастика". The catalog is fetched
// fresh on every call; the provider list is small and callers are
// interactive, so no cache is kept here.

package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// GenreProvider is the catalog contract required by GenreResolver.
type GenreProvider interface {
	// GenreList fetches the localized movie genre catalog in provider order.
	GenreList(ctx context.Context) ([]tmdb.Genre, error)
}

// GenreResolver resolves free-text genre names against the provider catalog.
type GenreResolver struct {
	Provider GenreProvider
	Logger   zerolog.Logger
}

// NewGenreResolver constructs a GenreResolver.
func NewGenreResolver(p GenreProvider, logger zerolog.Logger) *GenreResolver {
	return &GenreResolver{
		Provider: p,
		Logger:   logger.With().Str("component", "genres").Logger(),
	}
}

// Resolve returns the id of the first genre whose display name contains the
// given text, caselessly. A miss returns (0, false, nil) — callers treat it
// as "no genre filter", never as a failure. The error return is reserved for
// catalog fetch problems; callers may still proceed unfiltered.
func (r *GenreResolver) Resolve(ctx context.Context, name string) (int64, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, nil
	}

	genres, err := r.Provider.GenreList(ctx)
	if err != nil {
		return 0, false, err
	}

	// Unicode case folding so Cyrillic input matches the localized catalog.
	fold := cases.Fold()
	needle := fold.String(name)

	for _, g := range genres {
		if strings.Contains(fold.String(g.Name), needle) {
			r.Logger.Debug().
				Str("name", name).
				Int64("genreID", g.ID).
				Str("matched", g.Name).
				Msg("Genre resolved")
			return g.ID, true, nil
		}
	}

	r.Logger.Debug().Str("name", name).Msg("No genre matched")
	return 0, false, nil
}
