// Command and callback dispatch. Each incoming update is classified
// (command, free text, button press) and routed to the matching search or
// history operation; errors from the core map to the Russian chat texts
// users see.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/services"
	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// Callback data values for the /history inline keyboard.
const (
	callbackHistory7     = "history_7"
	callbackHistory30    = "history_30"
	callbackClearHistory = "clear_history"
)

// Free text shorter than this many runes is ignored rather than treated as
// a quick search, so stray "ок" replies don't trigger provider calls.
const minQuickSearchRunes = 3

const (
	msgSearchUsage = "Пожалуйста, укажите название фильма для поиска.\nПример: /movie_search Матрица"
	msgRatingUsage = "Пожалуйста, укажите минимальный рейтинг.\nПример: /movie_by_rating 8.0 фантастика"

	msgInvalidRating = "❌ Пожалуйста, укажите числовой рейтинг."

	msgNoResultsQuery  = "❌ Фильмы не найдены. Попробуйте другой запрос."
	msgNoResultsParams = "❌ Фильмы не найдены. Попробуйте другие параметры."
	msgQuickNotFound   = "❌ Фильм не найден. Попробуйте другой запрос."
	msgProviderDown    = "❌ Сервис поиска фильмов временно недоступен. Попробуйте позже."

	msgSearchingLowBudget  = "💸 Ищу низкобюджетные фильмы..."
	msgSearchingHighBudget = "💸 Ищу высокобюджетные фильмы..."
)

// handleMessage routes one incoming chat message.
func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		cmd, args := splitCommand(text)
		b.handleCommand(ctx, msg, cmd, args)
		return
	}

	// Free text is a quick title search, but only for plausible queries.
	if utf8.RuneCountInString(text) < minQuickSearchRunes {
		return
	}
	b.quickSearch(ctx, msg, text)
}

// splitCommand separates the command token from its arguments and strips a
// "@botname" suffix, which Telegram appends in group chats.
func splitCommand(text string) (cmd, args string) {
	cmd, args, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.TrimSpace(args)
}

func (b *Bot) handleCommand(ctx context.Context, msg *Message, cmd, args string) {
	switch cmd {
	case "/start":
		// First contact creates the local user row.
		if _, err := b.users.Identify(ctx, msg.From.ID, profileOf(msg.From)); err != nil {
			b.logger.Error().Err(err).Int64("telegramID", msg.From.ID).Msg("Failed to register user on /start")
		}
		b.send(ctx, msg.Chat.ID, welcomeText, nil)

	case "/help":
		b.send(ctx, msg.Chat.ID, helpText, nil)

	case "/history":
		b.showHistory(ctx, msg)

	case "/movie_search":
		if args == "" {
			b.send(ctx, msg.Chat.ID, msgSearchUsage, nil)
			return
		}
		b.runSearch(ctx, msg, services.TitleIntent(args), "")

	case "/movie_by_rating":
		if args == "" {
			b.send(ctx, msg.Chat.ID, msgRatingUsage, nil)
			return
		}
		ratingArg, genre, _ := strings.Cut(args, " ")
		minRating, err := strconv.ParseFloat(ratingArg, 64)
		if err != nil {
			b.send(ctx, msg.Chat.ID, msgInvalidRating, nil)
			return
		}
		b.runSearch(ctx, msg, services.RatingIntent(minRating, genre), "")

	case "/low_budget_movie":
		b.runSearch(ctx, msg, services.BudgetIntent(tmdb.BudgetLow, args), msgSearchingLowBudget)

	case "/high_budget_movie":
		b.runSearch(ctx, msg, services.BudgetIntent(tmdb.BudgetHigh, args), msgSearchingHighBudget)

	default:
		// Unknown commands get the help text rather than silence.
		b.send(ctx, msg.Chat.ID, helpText, nil)
	}
}

// runSearch executes a full search and delivers the result cards. progress,
// when non-empty, is sent first so slow discover calls don't look like a
// hung bot.
func (b *Bot) runSearch(ctx context.Context, msg *Message, intent services.Intent, progress string) {
	if progress != "" {
		b.send(ctx, msg.Chat.ID, progress, nil)
	}

	res, err := b.search.Search(ctx, msg.From.ID, profileOf(msg.From), intent)
	if err != nil && !errors.Is(err, services.ErrPersistenceFailed) {
		b.send(ctx, msg.Chat.ID, searchErrorText(intent.Kind, err), nil)
		return
	}
	if err != nil {
		// History write failed; the movies were still found and are shown.
		b.logger.Error().Err(err).Int64("telegramID", msg.From.ID).Msg("Search history not saved")
	}

	b.deliverMovies(ctx, msg.Chat.ID, res.Movies)
}

// quickSearch is the free-text path: one card for the best title match.
func (b *Bot) quickSearch(ctx context.Context, msg *Message, query string) {
	res, err := b.search.QuickSearch(ctx, msg.From.ID, profileOf(msg.From), query)
	if err != nil && !errors.Is(err, services.ErrPersistenceFailed) {
		switch {
		case errors.Is(err, services.ErrNoResults):
			b.send(ctx, msg.Chat.ID, msgQuickNotFound, nil)
		case errors.Is(err, services.ErrProviderUnavailable):
			b.send(ctx, msg.Chat.ID, msgProviderDown, nil)
		default:
			b.logger.Error().Err(err).Str("query", query).Msg("Quick search failed")
			b.send(ctx, msg.Chat.ID, msgQuickNotFound, nil)
		}
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("telegramID", msg.From.ID).Msg("Search history not saved")
	}

	b.deliverMovies(ctx, msg.Chat.ID, res.Movies)
}

// searchErrorText maps a core search error to the chat reply for command
// searches. Validation errors on command paths are argument mistakes, so
// they reuse the no-results phrasing users already know.
func searchErrorText(kind string, err error) string {
	switch {
	case errors.Is(err, services.ErrProviderUnavailable):
		return msgProviderDown
	case errors.Is(err, services.ErrInvalidRating):
		return msgInvalidRating
	case errors.Is(err, services.ErrEmptyQuery):
		return msgSearchUsage
	default:
		if kind == domain.SearchKindTitle {
			return msgNoResultsQuery
		}
		return msgNoResultsParams
	}
}

// deliverMovies sends one card per movie: a captioned poster when the movie
// has one, a plain message otherwise. A single failed send aborts the rest;
// the chat is likely gone.
func (b *Bot) deliverMovies(ctx context.Context, chatID int64, movies []services.MovieRecord) {
	for _, m := range movies {
		card := movieCard(m)
		var err error
		if m.PosterPath != "" {
			err = b.api.SendPhoto(ctx, chatID, b.images.ImageURL(m.PosterPath), card)
			if err != nil {
				// Bad poster URLs shouldn't cost the user the card.
				b.logger.Warn().Err(err).Int64("movieID", m.ID).Msg("Poster send failed, falling back to text")
				err = b.api.SendMessage(ctx, chatID, card, nil)
			}
		} else {
			err = b.api.SendMessage(ctx, chatID, card, nil)
		}
		if err != nil {
			b.logger.Error().Err(err).Int64("chatID", chatID).Msg("Failed to deliver movie card")
			return
		}
	}
}

// showHistory answers /history with the recent entries and the period /
// clear keyboard.
func (b *Bot) showHistory(ctx context.Context, msg *Message) {
	entries, err := b.history.ListRecent(ctx, msg.From.ID, 0)
	if err != nil {
		b.logger.Error().Err(err).Int64("telegramID", msg.From.ID).Msg("Failed to load history")
		b.send(ctx, msg.Chat.ID, msgProviderDown, nil)
		return
	}
	var markup *InlineKeyboardMarkup
	if len(entries) > 0 {
		markup = historyKeyboard()
	}
	b.send(ctx, msg.Chat.ID, historyList(entries), markup)
}

// handleCallback routes one inline-keyboard button press. The press is
// acknowledged first so the client drops its loading spinner even when the
// follow-up work fails.
func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	if err := b.api.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		b.logger.Warn().Err(err).Str("callbackID", cb.ID).Msg("Failed to acknowledge callback")
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch cb.Data {
	case callbackHistory7:
		b.showHistorySince(ctx, cb.From.ID, chatID, messageID, 7)
	case callbackHistory30:
		b.showHistorySince(ctx, cb.From.ID, chatID, messageID, 30)
	case callbackClearHistory:
		deleted, err := b.history.ClearHistory(ctx, cb.From.ID)
		if err != nil {
			b.logger.Error().Err(err).Int64("telegramID", cb.From.ID).Msg("Failed to clear history")
			return
		}
		b.edit(ctx, chatID, messageID, "🗑️ Удалено записей истории: "+strconv.FormatInt(deleted, 10))
	default:
		b.logger.Warn().Str("data", cb.Data).Msg("Unknown callback data")
	}
}

func (b *Bot) showHistorySince(ctx context.Context, telegramID, chatID, messageID int64, days int) {
	entries, err := b.history.ListSince(ctx, telegramID, b.now().AddDate(0, 0, -days))
	if err != nil {
		b.logger.Error().Err(err).Int64("telegramID", telegramID).Msg("Failed to load windowed history")
		return
	}
	b.edit(ctx, chatID, messageID, historySince(entries, days))
}

// send and edit wrap the API calls with error logging; chat delivery
// failures never propagate past the handler.
func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) {
	if err := b.api.SendMessage(ctx, chatID, text, markup); err != nil {
		b.logger.Error().Err(err).Int64("chatID", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) edit(ctx context.Context, chatID, messageID int64, text string) {
	if err := b.api.EditMessageText(ctx, chatID, messageID, text); err != nil {
		b.logger.Error().Err(err).Int64("chatID", chatID).Msg("Failed to edit message")
	}
}

// profileOf converts a Telegram user to the profile shape the core records.
func profileOf(u *User) services.UserProfile {
	p := services.UserProfile{FirstName: u.FirstName}
	if u.Username != "" {
		p.Username = &u.Username
	}
	if u.LastName != "" {
		p.LastName = &u.LastName
	}
	return p
}
