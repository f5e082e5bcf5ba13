// Package services – search intents
//
// An Intent is a validated, typed description of one user search request.
// Adapters (bot commands, HTTP handlers) construct intents from raw argument
// tokens; the orchestrator consumes them. The intent also owns the normalized
// query string that gets persisted on the history entry, so the stored text
// is identical no matter which adapter issued the search.

package services

import (
	"strconv"
	"strings"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// Intent describes one search request: the kind plus the parameters that
// kind needs. Unused fields stay zero.
type Intent struct {
	Kind      string          // one of the domain.SearchKind* constants
	Query     string          // title searches
	MinRating float64         // rating searches
	Genre     string          // optional free-text genre for rating/budget
	Tier      tmdb.BudgetTier // budget searches
}

// TitleIntent builds an intent for a search by title.
func TitleIntent(query string) Intent {
	return Intent{Kind: domain.SearchKindTitle, Query: strings.TrimSpace(query)}
}

// RatingIntent builds an intent for a minimum-rating search with an optional
// genre filter.
func RatingIntent(minRating float64, genre string) Intent {
	return Intent{Kind: domain.SearchKindRating, MinRating: minRating, Genre: strings.TrimSpace(genre)}
}

// BudgetIntent builds an intent for a budget-tier search with an optional
// genre filter.
func BudgetIntent(tier tmdb.BudgetTier, genre string) Intent {
	kind := domain.SearchKindBudgetHigh
	if tier == tmdb.BudgetLow {
		kind = domain.SearchKindBudgetLow
	}
	return Intent{Kind: kind, Tier: tier, Genre: strings.TrimSpace(genre)}
}

// HistoryQuery returns the normalized query string persisted on the history
// entry: the raw title, "rating>8.0 genre:фантастика", or
// "budget:low genre:комедия" (genre part only when one was given).
func (i Intent) HistoryQuery() string {
	switch i.Kind {
	case domain.SearchKindRating:
		q := "rating>" + FormatRating(i.MinRating)
		if i.Genre != "" {
			q += " genre:" + i.Genre
		}
		return q
	case domain.SearchKindBudgetLow, domain.SearchKindBudgetHigh:
		q := "budget:" + string(i.Tier)
		if i.Genre != "" {
			q += " genre:" + i.Genre
		}
		return q
	default:
		return i.Query
	}
}

// FormatRating renders a rating bound the way users see it: minimal digits,
// but whole numbers keep one decimal ("8.0", "7.5").
func FormatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
