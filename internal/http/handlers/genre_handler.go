// Genre HTTP handlers.
//
// This file exposes the provider's genre catalog:
//   - GET /genres   (localized genre list in provider order)
//
// The listing is a passthrough of the metadata provider's catalog; the order
// matters because free-text genre resolution is first-match-wins over it.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// ListGenresResponse wraps the provider genre catalog.
type ListGenresResponse struct {
	Genres []tmdb.Genre `json:"genres"`
}

// ListGenres godoc
// @ID          listGenres
// @Summary     List movie genres
// @Description Returns the provider's localized genre catalog in provider order.
// @Tags        Genres
// @Produce     json
//
// @Success     200  {object} handlers.ListGenresResponse
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /genres [get]
func (h *Handlers) ListGenres(c *gin.Context) {
	genres, err := h.genreSvc.GenreList(c.Request.Context())
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeProviderUnavailable, "movie provider unavailable")
		return
	}
	ok(c, http.StatusOK, ListGenresResponse{Genres: genres})
}
