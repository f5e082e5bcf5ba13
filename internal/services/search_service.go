// Package services – SearchService
//
// This file implements SearchService, the orchestrator behind every movie
// search. It validates the intent, resolves an optional genre filter, asks
// the metadata provider for a result page, caps it to the configured page
// size, fetches full details for each candidate concurrently (provider order
// preserved), and hands the surviving records to the history recorder as one
// atomic write.
//
// Failure policy: the initial search/discover call failing aborts with
// ErrProviderUnavailable; a single candidate's detail fetch failing drops
// just that candidate; everything dropping (or an empty page) is ErrNoResults
// and nothing is persisted; a history-write failure still returns the
// computed result alongside ErrPersistenceFailed.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the search kind and the caller's external identity.

package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/tmdb"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMoviesPerPage = 5
	defaultDetailWorkers = 4
)

// UserProfile carries the profile fields the chat platform reports for an
// account. It is passed through to the lazy user get-or-create.
type UserProfile struct {
	Username  *string
	FirstName string
	LastName  *string
}

// MovieRecord is the structured per-movie result of a search. Adapters render
// it (text, HTML, JSON); the core never produces display strings.
type MovieRecord struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	ReleaseDate   string   `json:"release_date,omitempty"`
	VoteAverage   float64  `json:"vote_average"`
	VoteCount     int64    `json:"vote_count"`
	Genres        []string `json:"genres,omitempty"`
	Adult         bool     `json:"adult"`
	PosterPath    string   `json:"poster_path,omitempty"`
	Budget        int64    `json:"budget,omitempty"`
	Revenue       int64    `json:"revenue,omitempty"`
}

// SearchResult is what one orchestrated search produced. Entry is nil when
// the history write failed (the movies are still present and were shown).
type SearchResult struct {
	Entry  *domain.SearchEntry `json:"entry,omitempty"`
	Movies []MovieRecord       `json:"movies"`
}

// MovieProvider is the metadata-provider contract required by SearchService.
// *tmdb.Client satisfies it.
type MovieProvider interface {
	SearchMovies(ctx context.Context, query string, page int) (*tmdb.SearchMoviesResponse, error)
	DiscoverByRating(ctx context.Context, minRating float64, genreID int64, page int) (*tmdb.SearchMoviesResponse, error)
	DiscoverByBudget(ctx context.Context, tier tmdb.BudgetTier, genreID int64, page int) (*tmdb.SearchMoviesResponse, error)
	MovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
}

// HistoryRecorder persists one orchestrated search outcome atomically.
// *HistoryService satisfies it.
type HistoryRecorder interface {
	Record(ctx context.Context, telegramID int64, profile UserProfile, kind, query string, movies []MovieRecord) (*domain.SearchEntry, error)
}

// SearchService coordinates provider calls and history persistence for one
// search request at a time. It holds no per-request state and is safe for
// concurrent use.
type SearchService struct {
	Provider MovieProvider
	Genres   *GenreResolver
	History  HistoryRecorder

	// MoviesPerPage caps how many candidates from the provider page get
	// detailed and shown. Zero means the default of 5.
	MoviesPerPage int
	// DetailWorkers bounds concurrent detail fetches per search.
	DetailWorkers int64

	Logger zerolog.Logger
}

// NewSearchService constructs a SearchService with sane defaults.
func NewSearchService(provider MovieProvider, genres *GenreResolver, history HistoryRecorder, moviesPerPage int, logger zerolog.Logger) *SearchService {
	if moviesPerPage <= 0 {
		moviesPerPage = defaultMoviesPerPage
	}
	return &SearchService{
		Provider:      provider,
		Genres:        genres,
		History:       history,
		MoviesPerPage: moviesPerPage,
		DetailWorkers: defaultDetailWorkers,
		Logger:        logger.With().Str("component", "search").Logger(),
	}
}

// Search runs the full pipeline for an intent and returns up to MoviesPerPage
// detailed records plus the created history entry.
func (s *SearchService) Search(ctx context.Context, telegramID int64, profile UserProfile, intent Intent) (*SearchResult, error) {
	return s.search(ctx, telegramID, profile, intent, s.pageLimit())
}

// QuickSearch is the free-text path: a title search capped to a single
// movie, so typing "Матрица" in chat answers with one card.
func (s *SearchService) QuickSearch(ctx context.Context, telegramID int64, profile UserProfile, query string) (*SearchResult, error) {
	return s.search(ctx, telegramID, profile, TitleIntent(query), 1)
}

func (s *SearchService) search(ctx context.Context, telegramID int64, profile UserProfile, intent Intent, limit int) (*SearchResult, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("search.kind", intent.Kind),
			attribute.Int64("user.telegram_id", telegramID),
			attribute.Int("search.limit", limit),
		),
	)
	defer span.End()

	// 1. Validate. Nothing is persisted past a validation failure.
	if err := validateIntent(intent); err != nil {
		searchesTotal.WithLabelValues(intent.Kind, outcomeInvalid).Inc()
		return nil, err
	}

	// 2. Resolve the genre filter, then dispatch. A resolution miss or a
	// catalog fetch failure both mean "search unfiltered", as the original
	// command flow behaves.
	genreID := s.resolveGenre(ctx, intent)

	page, err := s.dispatch(ctx, intent, genreID)
	if err != nil {
		searchesTotal.WithLabelValues(intent.Kind, outcomeProviderError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	// 3. Page-limit, provider order preserved.
	candidates := page.Results
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		searchesTotal.WithLabelValues(intent.Kind, outcomeNoResults).Inc()
		return nil, ErrNoResults
	}

	// 4. Detail fan-out into indexed slots so order survives concurrency.
	movies, dropped := s.fetchDetails(ctx, candidates)
	if dropped > 0 {
		detailDropsTotal.Add(float64(dropped))
		s.Logger.Warn().
			Int("dropped", dropped).
			Int("candidates", len(candidates)).
			Str("kind", intent.Kind).
			Msg("Dropped candidates with failed detail fetches")
	}

	// 5. Empty after detailing is still "no results"; history stays unwritten.
	if len(movies) == 0 {
		searchesTotal.WithLabelValues(intent.Kind, outcomeNoResults).Inc()
		return nil, ErrNoResults
	}

	// 6. Snapshot. The result is computed either way; a failed write is
	// reported alongside it, never silently swallowed.
	result := &SearchResult{Movies: movies}
	entry, err := s.History.Record(ctx, telegramID, profile, intent.Kind, intent.HistoryQuery(), movies)
	if err != nil {
		searchesTotal.WithLabelValues(intent.Kind, outcomePersistFail).Inc()
		return result, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	result.Entry = entry

	searchesTotal.WithLabelValues(intent.Kind, outcomeOK).Inc()
	return result, nil
}

// validateIntent enforces the per-kind parameter rules.
func validateIntent(intent Intent) error {
	switch intent.Kind {
	case domain.SearchKindTitle:
		if strings.TrimSpace(intent.Query) == "" {
			return ErrEmptyQuery
		}
	case domain.SearchKindRating:
		if math.IsNaN(intent.MinRating) || math.IsInf(intent.MinRating, 0) {
			return ErrInvalidRating
		}
	case domain.SearchKindBudgetLow, domain.SearchKindBudgetHigh:
		if intent.Tier != tmdb.BudgetLow && intent.Tier != tmdb.BudgetHigh {
			return ErrUnknownKind
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

// resolveGenre maps the intent's free-text genre to a provider id. Zero means
// no filter.
func (s *SearchService) resolveGenre(ctx context.Context, intent Intent) int64 {
	if intent.Genre == "" {
		return 0
	}
	id, ok, err := s.Genres.Resolve(ctx, intent.Genre)
	if err != nil {
		s.Logger.Warn().Err(err).Str("genre", intent.Genre).Msg("Genre resolution failed, searching without filter")
		return 0
	}
	if !ok {
		return 0
	}
	return id
}

// dispatch calls the provider operation matching the intent kind.
func (s *SearchService) dispatch(ctx context.Context, intent Intent, genreID int64) (*tmdb.SearchMoviesResponse, error) {
	switch intent.Kind {
	case domain.SearchKindTitle:
		return s.Provider.SearchMovies(ctx, strings.TrimSpace(intent.Query), 1)
	case domain.SearchKindRating:
		return s.Provider.DiscoverByRating(ctx, intent.MinRating, genreID, 1)
	default: // budget kinds, validated above
		return s.Provider.DiscoverByBudget(ctx, intent.Tier, genreID, 1)
	}
}

// fetchDetails runs the bounded detail fan-out. Results land in the slot of
// the candidate that produced them; failed fetches leave their slot nil and
// are counted as dropped.
func (s *SearchService) fetchDetails(ctx context.Context, candidates []tmdb.MovieResult) ([]MovieRecord, int) {
	workers := s.DetailWorkers
	if workers <= 0 {
		workers = defaultDetailWorkers
	}

	slots := make([]*MovieRecord, len(candidates))
	sem := semaphore.NewWeighted(workers)
	var wg sync.WaitGroup

	for i, cand := range candidates {
		wg.Add(1)
		go func(slot int, movieID int64) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled; slot stays empty.
				return
			}
			defer sem.Release(1)

			details, err := s.Provider.MovieDetails(ctx, movieID)
			if err != nil {
				s.Logger.Warn().Err(err).Int64("movieID", movieID).Msg("Detail fetch failed, dropping candidate")
				return
			}
			slots[slot] = recordFromDetails(details)
		}(i, cand.ID)
	}
	wg.Wait()

	movies := make([]MovieRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			movies = append(movies, *rec)
		}
	}
	return movies, len(candidates) - len(movies)
}

func (s *SearchService) pageLimit() int {
	if s.MoviesPerPage > 0 {
		return s.MoviesPerPage
	}
	return defaultMoviesPerPage
}

// recordFromDetails converts a provider detail record into the core's
// structured result type.
func recordFromDetails(d *tmdb.MovieDetails) *MovieRecord {
	genres := make([]string, len(d.Genres))
	for i, g := range d.Genres {
		genres[i] = g.Name
	}

	rec := &MovieRecord{
		ID:            d.ID,
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Overview:      d.Overview,
		ReleaseDate:   d.ReleaseDate,
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Genres:        genres,
		Adult:         d.Adult,
		Budget:        d.Budget,
		Revenue:       d.Revenue,
	}
	if d.PosterPath != nil {
		rec.PosterPath = *d.PosterPath
	}
	return rec
}
