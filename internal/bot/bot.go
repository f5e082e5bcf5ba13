// Long-poll update loop. The bot owns a single getUpdates cursor and fans
// each update out to a handler goroutine, so a slow provider call never
// stalls polling for other chats.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/services"
)

// Searcher is the search surface the bot drives. *services.SearchService
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, telegramID int64, profile services.UserProfile, intent services.Intent) (*services.SearchResult, error)
	QuickSearch(ctx context.Context, telegramID int64, profile services.UserProfile, query string) (*services.SearchResult, error)
}

// Historian is the history surface the bot drives. *services.HistoryService
// satisfies it.
type Historian interface {
	ListRecent(ctx context.Context, telegramID int64, limit int) ([]domain.SearchEntry, error)
	ListSince(ctx context.Context, telegramID int64, since time.Time) ([]domain.SearchEntry, error)
	ClearHistory(ctx context.Context, telegramID int64) (int64, error)
}

// Identifier registers chat users on first contact. *services.UserService
// satisfies it.
type Identifier interface {
	Identify(ctx context.Context, telegramID int64, profile services.UserProfile) (*domain.User, error)
}

// PosterResolver turns a provider poster path into a fetchable image URL.
// *tmdb.Client satisfies it.
type PosterResolver interface {
	ImageURL(path string) string
}

// Bot wires the Telegram API client to the search core.
type Bot struct {
	api     *API
	search  Searcher
	history Historian
	users   Identifier
	images  PosterResolver

	pollTimeout time.Duration
	logger      zerolog.Logger

	// now is swapped in tests to pin history windows.
	now func() time.Time
}

// New constructs a Bot. pollTimeout is the getUpdates server hold; zero
// means 30 seconds.
func New(api *API, search Searcher, history Historian, users Identifier, images PosterResolver, pollTimeout time.Duration, logger zerolog.Logger) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Bot{
		api:         api,
		search:      search,
		history:     history,
		users:       users,
		images:      images,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("component", "bot").Logger(),
		now:         time.Now,
	}
}

// Run polls for updates until ctx is cancelled. Poll failures are logged
// and retried after a short pause; Run returns only after shutdown has
// drained the in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().Dur("pollTimeout", b.pollTimeout).Msg("Bot poll loop started")

	var inflight sync.WaitGroup
	defer inflight.Wait()

	var offset int64
	for {
		if ctx.Err() != nil {
			b.logger.Info().Msg("Bot poll loop stopped")
			return ctx.Err()
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info().Msg("Bot poll loop stopped")
				return ctx.Err()
			}
			b.logger.Error().Err(err).Msg("getUpdates failed, backing off")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			inflight.Add(1)
			go func(upd Update) {
				defer inflight.Done()
				// Detached from the poll context: an update already taken
				// off the queue finishes its replies during shutdown.
				b.dispatch(context.WithoutCancel(ctx), upd)
			}(upd)
		}
	}
}

// dispatch handles one update. Panics in handlers are contained so a single
// malformed update cannot kill the poll loop.
func (b *Bot) dispatch(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Int64("updateID", upd.UpdateID).Msg("Recovered from handler panic")
		}
	}()

	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}
