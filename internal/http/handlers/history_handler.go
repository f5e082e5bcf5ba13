// History HTTP handlers.
//
// This file exposes REST endpoints for a user's search history:
//   - GET    /history                 (newest-first listing, ETag support)
//   - GET    /history/recent          (time-bounded listing, ?days=N)
//   - GET    /history/{id}/movies     (snapshot rows of one entry, render order)
//   - DELETE /history                 (bulk clear, returns deleted count)
//
// Handlers are transport-thin: they validate input, call the history service,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/repo"
	"github.com/filmoteka/go-movie-bot/internal/utils"
)

//
// DTOs
//

// ListHistoryResponse wraps a newest-first page of history entries.
type ListHistoryResponse struct {
	Entries []domain.SearchEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// EntryMoviesResponse wraps the snapshot rows of one history entry.
type EntryMoviesResponse struct {
	Movies []domain.MovieSnapshot `json:"movies"`
}

// ClearHistoryResponse reports how many entries a bulk clear removed.
type ClearHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

//
// Handlers
//

// ListHistory godoc
// @ID          listHistory
// @Summary     List recent search history
// @Description Returns the user's newest history entries, newest first.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        History
// @Produce     json
//
// @Param       X-Telegram-ID  header  string  false "Telegram ID (alternative to query param)"  example(123456789)
// @Param       telegram_id    query   int     false "Telegram ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       limit          query   int     false "Maximum entries to return"   minimum(1) default(10)
//
// @Success     200  {object} handlers.ListHistoryResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	ctx := c.Request.Context()

	tid := telegramID(c)
	if tid == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id required")
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 0) // 0 → service default

	// ETag pre-check (best effort). Entries are immutable, so count plus the
	// newest timestamp fully identify the listing.
	if count, maxTS, err := h.historySvc.Stats(ctx, tid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"history:%d:%d:%d"`, tid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	entries, err := h.historySvc.ListRecent(ctx, tid, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListHistoryResponse{Entries: entries, Count: len(entries)})
}

// ListHistorySince godoc
// @ID          listHistorySince
// @Summary     List history within a time window
// @Description Returns every entry created within the last N days, newest first,
// @Description with no count cap.
// @Tags        History
// @Produce     json
//
// @Param       X-Telegram-ID  header  string  false "Telegram ID (alternative to query param)"  example(123456789)
// @Param       telegram_id    query   int     false "Telegram ID"
// @Param       days           query   int     false "Window size in days"  minimum(1) default(7)
//
// @Success     200  {object} handlers.ListHistoryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history/recent [get]
func (h *Handlers) ListHistorySince(c *gin.Context) {
	ctx := c.Request.Context()

	tid := telegramID(c)
	if tid == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id required")
		return
	}
	days := utils.AtoiDefault(c.Query("days"), 7)
	if days < 1 {
		days = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	entries, err := h.historySvc.ListSince(ctx, tid, since)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListHistoryResponse{Entries: entries, Count: len(entries)})
}

// EntryMovies godoc
// @ID          entryMovies
// @Summary     List the movies of one history entry
// @Description Returns the frozen movie snapshots of an entry in the order
// @Description they were originally shown.
// @Tags        History
// @Produce     json
//
// @Param       id  path  string  true  "Entry ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.EntryMoviesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history/{id}/movies [get]
func (h *Handlers) EntryMovies(c *gin.Context) {
	entryID := c.Param("id")
	if _, err := uuid.Parse(entryID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	movies, err := h.historySvc.EntryMovies(c.Request.Context(), entryID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, EntryMoviesResponse{Movies: movies})
}

// ClearHistory godoc
// @ID          clearHistory
// @Summary     Clear search history
// @Description Deletes every history entry of the user (snapshots cascade) and
// @Description returns the number of entries removed. Clearing an empty history
// @Description returns 0 and succeeds.
// @Tags        History
// @Produce     json
//
// @Param       X-Telegram-ID    header  string  false "Telegram ID (alternative to query param)"  example(123456789)
// @Param       telegram_id      query   int     false "Telegram ID"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
//
// @Success     200  {object} handlers.ClearHistoryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history [delete]
func (h *Handlers) ClearHistory(c *gin.Context) {
	ctx := c.Request.Context()

	tid := telegramID(c)
	if tid == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id required")
		return
	}
	uid := strconv.FormatInt(tid, 10)

	// Idempotency (replay path). The clear already ran; report zero removed
	// without touching the tables again.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.historyDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, ScopeHistoryClear, idemKey, time.Now().UTC()); err == nil && rec != nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, ClearHistoryResponse{Deleted: 0})
				return
			}
		}
	}

	deleted, err := h.historySvc.ClearHistory(ctx, tid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.historyDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, uid, ScopeHistoryClear, idemKey, "", http.StatusOK, 24*time.Hour)
		}
	}

	ok(c, http.StatusOK, ClearHistoryResponse{Deleted: deleted})
}
