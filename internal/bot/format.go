// Message rendering. All user-visible strings live here; handlers never
// build HTML inline. Texts are Russian, matching the audience the bot
// serves, and use Telegram's HTML parse mode.
package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/services"
	"github.com/filmoteka/go-movie-bot/internal/utils"
)

// Telegram caps photo captions at 1024 characters; keep cards under it.
const maxOverviewRunes = 600

const welcomeText = "🎬 Добро пожаловать в Movie Search Bot! 🎬\n\n" +
	"Я помогу вам найти информацию о фильмах и сериалах.\n\n" +
	"Доступные команды:\n" +
	"/movie_search - Поиск фильма по названию\n" +
	"/movie_by_rating - Поиск фильмов по рейтингу\n" +
	"/low_budget_movie - Фильмы с низким бюджетом\n" +
	"/high_budget_movie - Фильмы с высоким бюджетом\n" +
	"/history - История поиска\n" +
	"/help - Справка по командам\n\n" +
	"Просто отправьте мне название фильма для быстрого поиска!"

const helpText = "📖 Справка по командам:\n\n" +
	"🔍 /movie_search [название] - Поиск фильма по названию\n" +
	"⭐ /movie_by_rating [мин.рейтинг] [жанр] - Фильмы по рейтингу\n" +
	"💸 /low_budget_movie [жанр] - Фильмы с низким бюджетом\n" +
	"💰 /high_budget_movie [жанр] - Фильмы с высоким бюджетом\n" +
	"📋 /history - Показать историю поиска\n\n" +
	"Примеры:\n" +
	"/movie_search Матрица\n" +
	"/movie_by_rating 8.0 фантастика\n" +
	"/low_budget_movie комедия\n" +
	"/high_budget_movie фантастика"

// kindName maps a stored search kind to its display name. Unknown kinds
// render as-is so old rows never break the listing.
func kindName(kind string) string {
	switch kind {
	case domain.SearchKindTitle:
		return "По названию"
	case domain.SearchKindRating:
		return "По рейтингу"
	case domain.SearchKindBudgetLow:
		return "Низкобюджетные"
	case domain.SearchKindBudgetHigh:
		return "Высокобюджетные"
	default:
		return kind
	}
}

// movieCard renders one movie as an HTML card.
func movieCard(m services.MovieRecord) string {
	var b strings.Builder

	b.WriteString("🎬 <b>" + html.EscapeString(m.Title) + "</b>\n")
	b.WriteString("📝 Оригинальное название: " + html.EscapeString(m.OriginalTitle) + "\n")

	year := "Неизвестно"
	if len(m.ReleaseDate) >= 4 {
		year = m.ReleaseDate[:4]
	}
	b.WriteString("📅 Год: " + year + "\n")
	b.WriteString(fmt.Sprintf("⭐ Рейтинг: %.1f/10\n", m.VoteAverage))

	genres := strings.Join(m.Genres, ", ")
	if genres == "" {
		genres = "Неизвестно"
	}
	b.WriteString("🎭 Жанр: " + html.EscapeString(genres) + "\n")

	age := "👨‍👩‍👧‍👦 Для всех"
	if m.Adult {
		age = "🔞 18+"
	}
	b.WriteString("🔞 Возрастной рейтинг: " + age + "\n")

	if m.Budget > 0 {
		b.WriteString("💰 Бюджет: $" + groupDigits(m.Budget) + "\n")
	}
	if m.Revenue > 0 {
		b.WriteString("💵 Сборы: $" + groupDigits(m.Revenue) + "\n")
	}

	overview := m.Overview
	if overview == "" {
		overview = "Описание отсутствует."
	}
	b.WriteString("\n📖 Описание:\n" + html.EscapeString(utils.TruncateRunes(overview, maxOverviewRunes)) + "\n")

	return b.String()
}

// historyList renders the /history reply: up to the configured number of
// entries, newest first, numbered.
func historyList(entries []domain.SearchEntry) string {
	if len(entries) == 0 {
		return "📋 История поиска пуста."
	}

	var b strings.Builder
	b.WriteString("📋 <b>История поиска:</b>\n\n")
	for i, e := range entries {
		b.WriteString(fmt.Sprintf(
			"%d. <b>Тип:</b> %s\n   <b>Запрос:</b> %s\n   <b>Дата:</b> %s\n   <b>Найдено:</b> %d фильмов\n\n",
			i+1,
			kindName(e.Kind),
			html.EscapeString(e.Query),
			e.CreatedAt.Format("02.01.2006 15:04"),
			e.ResultCount,
		))
	}
	return b.String()
}

// historySince renders the windowed history view behind the history_7 and
// history_30 buttons.
func historySince(entries []domain.SearchEntry, days int) string {
	if len(entries) == 0 {
		return "📋 История поиска за выбранный период пуста."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>История поиска за последние %d дней:</b>\n\n", days))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf(
			"📅 <b>%s</b>\n   <b>Тип:</b> %s\n   <b>Запрос:</b> %s\n   <b>Результатов:</b> %d\n\n",
			e.CreatedAt.Format("02.01.2006 15:04"),
			kindName(e.Kind),
			html.EscapeString(e.Query),
			e.ResultCount,
		))
	}
	return b.String()
}

// historyKeyboard is the inline keyboard attached to the /history reply.
func historyKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "📅 Показать за последние 7 дней", CallbackData: callbackHistory7}},
			{{Text: "📅 Показать за последние 30 дней", CallbackData: callbackHistory30}},
			{{Text: "🗑️ Очистить историю", CallbackData: callbackClearHistory}},
		},
	}
}

// groupDigits renders n with comma thousand separators ("63,000,000").
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
