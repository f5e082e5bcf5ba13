// Search HTTP handlers.
//
// This file exposes the REST entry point into the search pipeline:
//   - POST /search   (run an orchestrated movie search)
//
// Handlers are transport-thin: they validate input, build a typed search
// intent, call the search orchestrator, and translate the pipeline's error
// taxonomy into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, "search", key), the handler returns the recorded
// history entry with its snapshots and sets `Idempotency-Replayed: true`
// instead of re-running the provider fan-out.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/repo"
	"github.com/filmoteka/go-movie-bot/internal/services"
	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// Idempotency scopes used by the mutating endpoints. The scope partitions
// stored keys per operation family so the same client key can safely be
// reused across different endpoints.
const (
	ScopeSearch       = "search"
	ScopeHistoryClear = "history.clear"
)

//
// Service contracts (context-aware)
//

// SearchService defines the search orchestration operation consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SearchService interface {
	// Search runs the full pipeline for an intent on behalf of a Telegram
	// identity and returns the detailed records plus the history entry.
	Search(ctx context.Context, telegramID int64, profile services.UserProfile, intent services.Intent) (*services.SearchResult, error)
}

// HistoryService defines search-history operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type HistoryService interface {
	// ListRecent returns the newest entries for a user, newest first.
	ListRecent(ctx context.Context, telegramID int64, limit int) ([]domain.SearchEntry, error)
	// ListSince returns every entry created at or after the cutoff.
	ListSince(ctx context.Context, telegramID int64, since time.Time) ([]domain.SearchEntry, error)
	// ClearHistory deletes the user's history and reports how many entries existed.
	ClearHistory(ctx context.Context, telegramID int64) (int64, error)
	// EntryMovies returns the snapshot rows of one entry in render order.
	EntryMovies(ctx context.Context, entryID string) ([]domain.MovieSnapshot, error)
	// Stats returns the entry count and latest entry time for conditional GETs.
	Stats(ctx context.Context, telegramID int64) (int64, *time.Time, error)
}

// GenreService defines the genre catalog operation consumed by HTTP handlers.
type GenreService interface {
	// GenreList fetches the localized movie genre catalog in provider order.
	GenreList(ctx context.Context) ([]tmdb.Genre, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for searches, history, and genres.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	searchSvc  SearchService
	historySvc HistoryService
	genreSvc   GenreService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(searchSvc SearchService, historySvc HistoryService, genreSvc GenreService) *Handlers {
	return &Handlers{searchSvc: searchSvc, historySvc: historySvc, genreSvc: genreSvc}
}

// telegramID extracts the caller's Telegram identity from the request: the
// "X-Telegram-ID" header first (tests and ops tooling use it), then the
// "telegram_id" query parameter. Zero means no identity was supplied.
func telegramID(c *gin.Context) int64 {
	if c == nil || c.Request == nil {
		return 0
	}
	if h := strings.TrimSpace(c.GetHeader("X-Telegram-ID")); h != "" {
		if id, err := strconv.ParseInt(h, 10, 64); err == nil {
			return id
		}
	}
	if q := strings.TrimSpace(c.Query("telegram_id")); q != "" {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

//
// DTOs
//

// SearchRequest is the JSON payload for running a movie search.
type SearchRequest struct {
	// TelegramID is the external identity the search runs for.
	TelegramID int64 `json:"telegram_id" binding:"required" example:"123456789"`
	// Kind selects the search: title, rating, budget_low, or budget_high.
	Kind string `json:"kind" binding:"required" example:"title"`
	// Query is the movie title for kind=title.
	Query string `json:"query,omitempty" example:"Матрица"`
	// MinRating is the lower rating bound for kind=rating.
	MinRating float64 `json:"min_rating,omitempty" example:"8.0"`
	// Genre optionally filters rating/budget searches; free text.
	Genre string `json:"genre,omitempty" example:"фантастика"`
	// FirstName/Username/LastName seed the lazily created user profile.
	FirstName string  `json:"first_name,omitempty" example:"Ivan"`
	Username  *string `json:"username,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// SearchResponse wraps the outcome of one orchestrated search.
type SearchResponse struct {
	// Entry is the persisted history entry; nil when the history write failed.
	Entry *domain.SearchEntry `json:"entry,omitempty"`
	// Movies are the detailed records in provider order.
	Movies []services.MovieRecord `json:"movies"`
}

// ReplayedSearchResponse is served when an Idempotency-Key replay is detected.
// Snapshots come from the originally persisted entry, not a fresh provider call.
type ReplayedSearchResponse struct {
	Entry  *domain.SearchEntry    `json:"entry"`
	Movies []domain.MovieSnapshot `json:"movies"`
}

// intentFromRequest maps the request payload onto a typed search intent.
func intentFromRequest(req SearchRequest) (services.Intent, bool) {
	switch req.Kind {
	case domain.SearchKindTitle:
		return services.TitleIntent(req.Query), true
	case domain.SearchKindRating:
		return services.RatingIntent(req.MinRating, req.Genre), true
	case domain.SearchKindBudgetLow:
		return services.BudgetIntent(tmdb.BudgetLow, req.Genre), true
	case domain.SearchKindBudgetHigh:
		return services.BudgetIntent(tmdb.BudgetHigh, req.Genre), true
	default:
		return services.Intent{}, false
	}
}

//
// Handlers
//

// Search godoc
// @ID          runSearch
// @Summary     Run a movie search
// @Description Runs the full search pipeline (provider search, detail fan-out,
// @Description history snapshot) for the given intent and returns the records.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Search
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SearchRequest  true  "Search intent payload"
//
// @Success     200  {object}  handlers.SearchResponse  "Search outcome"
// @Failure     400  {object}  handlers.ErrorResponse   "Invalid intent"
// @Failure     404  {object}  handlers.ErrorResponse   "No movies matched"
// @Failure     502  {object}  handlers.ErrorResponse   "Provider unavailable"
// @Failure     500  {object}  handlers.ErrorResponse   "History write failed"
// @Router      /search [post]
func (h *Handlers) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id and kind required")
		return
	}

	intent, known := intentFromRequest(req)
	if !known {
		fail(c, http.StatusBadRequest, ErrCodeInvalidQuery, "kind must be one of: title, rating, budget_low, budget_high")
		return
	}

	uid := strconv.FormatInt(req.TelegramID, 10)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.historyDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, ScopeSearch, idemKey, time.Now().UTC()); err == nil && rec != nil && rec.EntryID != "" {
				if entry, err2 := repo.GetEntry(ctx, db, rec.EntryID); err2 == nil {
					movies, _ := h.historySvc.EntryMovies(ctx, entry.ID)
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, ReplayedSearchResponse{Entry: entry, Movies: movies})
					return
				}
			}
		}
	}

	profile := services.UserProfile{
		Username:  req.Username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  req.LastName,
	}

	res, err := h.searchSvc.Search(ctx, req.TelegramID, profile, intent)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery),
			errors.Is(err, services.ErrInvalidRating),
			errors.Is(err, services.ErrUnknownKind):
			fail(c, http.StatusBadRequest, ErrCodeInvalidQuery, err.Error())
		case errors.Is(err, services.ErrNoResults):
			fail(c, http.StatusNotFound, ErrCodeNoResults, "no movies found")
		case errors.Is(err, services.ErrProviderUnavailable):
			fail(c, http.StatusBadGateway, ErrCodeProviderUnavailable, "movie provider unavailable")
		case errors.Is(err, services.ErrPersistenceFailed):
			// The results were computed and must reach the client; only the
			// history write is lost. Attach them to the error payload.
			reqID := c.Writer.Header().Get("X-Request-ID")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": reqID,
				"code":       ErrCodePersistenceFailed,
				"message":    "search succeeded but history could not be saved",
				"movies":     res.Movies,
			})
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && res.Entry != nil {
		if db := h.historyDB(); db != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, db, uid, ScopeSearch, idemKey, res.Entry.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, SearchResponse{Entry: res.Entry, Movies: res.Movies})
}

// historyDB exposes the concrete history service's DB handle for idempotency
// bookkeeping. Returns nil when the handler was wired with a stub.
func (h *Handlers) historyDB() *gorm.DB {
	if svc, okSvc := h.historySvc.(*services.HistoryService); okSvc {
		return svc.DB
	}
	return nil
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
