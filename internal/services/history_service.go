// Package services – HistoryService
//
// This file implements HistoryService, which owns the durable search history:
// one SearchEntry per orchestrated search plus one MovieSnapshot row per
// shown movie, written atomically so result_count can never disagree with
// the snapshot rows a concurrent reader sees. Reads are keyed by the user's
// external (Telegram) identity and return empty results for unknown users
// rather than errors.
//
// Observability: public methods are OpenTelemetry-instrumented via
// otel.Tracer("services/HistoryService").

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxEntries = 10

// HistoryService persists and queries per-user search history.
type HistoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxEntries is the default cap for ListRecent when the caller passes
	// no limit. Zero means the default of 10.
	MaxEntries int
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(db *gorm.DB, maxEntries int) *HistoryService {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &HistoryService{DB: db, MaxEntries: maxEntries}
}

// Record writes one history entry and its snapshot rows atomically on behalf
// of the given external identity, creating the user on first contact. The
// snapshot rows keep the order of movies.
func (s *HistoryService) Record(ctx context.Context, telegramID int64, profile UserProfile, kind, query string, movies []MovieRecord) (*domain.SearchEntry, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(
			attribute.Int64("user.telegram_id", telegramID),
			attribute.String("search.kind", kind),
			attribute.Int("result_count", len(movies)),
		),
	)
	defer span.End()

	user, err := repo.GetOrCreateUser(ctx, s.DB, telegramID, profile.Username, profile.FirstName, profile.LastName)
	if err != nil {
		return nil, err
	}

	// Entry + snapshots in one transaction; a reader never observes the
	// entry without its rows.
	var entry *domain.SearchEntry
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := repo.CreateEntry(tx, user.ID, kind, query, len(movies))
		if err != nil {
			return err
		}
		entry = e
		return repo.CreateSnapshots(tx, e.ID, snapshotsFromRecords(movies))
	})
	if err != nil {
		return nil, err
	}

	historyEntriesTotal.Inc()
	return entry, nil
}

// ListRecent returns the user's newest entries, newest first. limit <= 0
// falls back to the configured default. An unknown user has no history.
func (s *HistoryService) ListRecent(ctx context.Context, telegramID int64, limit int) ([]domain.SearchEntry, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ListRecent",
		trace.WithAttributes(
			attribute.Int64("user.telegram_id", telegramID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = s.maxEntries()
	}

	user, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return []domain.SearchEntry{}, nil
		}
		return nil, err
	}
	return repo.ListEntries(ctx, s.DB, user.ID, limit)
}

// ListSince returns every entry created at or after the cutoff, newest
// first, unbounded.
func (s *HistoryService) ListSince(ctx context.Context, telegramID int64, since time.Time) ([]domain.SearchEntry, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ListSince",
		trace.WithAttributes(attribute.Int64("user.telegram_id", telegramID)),
	)
	defer span.End()

	user, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return []domain.SearchEntry{}, nil
		}
		return nil, err
	}
	return repo.ListEntriesSince(ctx, s.DB, user.ID, since)
}

// ClearHistory deletes all of the user's entries (snapshots cascade) and
// returns how many entries were removed. Clearing an empty or unknown
// user's history returns 0 and succeeds.
func (s *HistoryService) ClearHistory(ctx context.Context, telegramID int64) (int64, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ClearHistory",
		trace.WithAttributes(attribute.Int64("user.telegram_id", telegramID)),
	)
	defer span.End()

	user, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	deleted, err := repo.DeleteEntries(ctx, s.DB, user.ID)
	if err != nil {
		return 0, err
	}
	historyDeletesTotal.Add(float64(deleted))
	return deleted, nil
}

// EntryMovies returns the snapshot rows of one entry in render order.
func (s *HistoryService) EntryMovies(ctx context.Context, entryID string) ([]domain.MovieSnapshot, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "EntryMovies",
		trace.WithAttributes(attribute.String("entry.id", entryID)),
	)
	defer span.End()

	return repo.ListSnapshots(ctx, s.DB, entryID)
}

// Stats returns the entry count and latest entry time for a user, for
// conditional GETs on the HTTP surface. Unknown users report (0, nil).
func (s *HistoryService) Stats(ctx context.Context, telegramID int64) (int64, *time.Time, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Stats",
		trace.WithAttributes(attribute.Int64("user.telegram_id", telegramID)),
	)
	defer span.End()

	user, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, nil, nil
		}
		return 0, nil, err
	}
	return repo.HistoryStats(ctx, s.DB, user.ID)
}

func (s *HistoryService) maxEntries() int {
	if s.MaxEntries > 0 {
		return s.MaxEntries
	}
	return defaultMaxEntries
}

// snapshotsFromRecords converts result records into snapshot rows. Optional
// provider fields become NULLs when absent; a zero budget or revenue means
// "unknown upstream" and is stored as NULL too.
func snapshotsFromRecords(movies []MovieRecord) []domain.MovieSnapshot {
	snaps := make([]domain.MovieSnapshot, len(movies))
	for i, m := range movies {
		va, vc := m.VoteAverage, m.VoteCount
		snaps[i] = domain.MovieSnapshot{
			MovieID:       m.ID,
			Title:         m.Title,
			OriginalTitle: optStr(m.OriginalTitle),
			Overview:      optStr(m.Overview),
			ReleaseDate:   optStr(m.ReleaseDate),
			VoteAverage:   &va,
			VoteCount:     &vc,
			GenreNames:    optStr(strings.Join(m.Genres, ", ")),
			Adult:         m.Adult,
			PosterPath:    optStr(m.PosterPath),
			Budget:        optAmount(m.Budget),
			Revenue:       optAmount(m.Revenue),
		}
	}
	return snaps
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optAmount(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}
