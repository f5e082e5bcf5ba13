// Package tmdb implements a thin client for The Movie Database (TMDB) v3 API.
//
// The client covers exactly the endpoints the bot needs: title search,
// rating/budget discovery, the genre catalog, and per-movie details. Every
// call carries the configured api_key and language, runs under the caller's
// context plus the configured per-request timeout, and is attempted exactly
// once (no retries; retrying is the caller's decision).
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/filmoteka/go-movie-bot/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrMovieNotFound = errors.New("movie not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Discover filter floors. Rows below these thresholds are mostly data noise
// (movies with a handful of votes, or a zero budget meaning "unknown").
const (
	minVoteCount = 100
	minBudgetUSD = 1000
)

// BudgetTier selects the sort direction for budget discovery.
type BudgetTier string

const (
	BudgetLow  BudgetTier = "low"  // cheapest first (budget.asc)
	BudgetHigh BudgetTier = "high" // most expensive first (budget.desc)
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// baseParams returns the query parameters present on every TMDB call.
func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", c.config.Language)
	return params
}

// SearchMovies searches for movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*SearchMoviesResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if page < 1 {
		page = 1
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := c.baseParams()
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("query", query).
		Int("page", page).
		Int("results", len(response.Results)).
		Msg("Movie title search completed")

	return &response, nil
}

// DiscoverByRating lists movies rated at or above minRating, best rated
// first. Movies with fewer than 100 votes are excluded so a 10.0 with three
// votes does not outrank established titles. genreID filters the result to
// one genre when non-zero.
func (c *Client) DiscoverByRating(ctx context.Context, minRating float64, genreID int64, page int) (*SearchMoviesResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if page < 1 {
		page = 1
	}

	endpoint := fmt.Sprintf("%s/discover/movie", c.config.BaseURL)
	params := c.baseParams()
	params.Set("sort_by", "vote_average.desc")
	params.Set("vote_count.gte", strconv.Itoa(minVoteCount))
	params.Set("vote_average.gte", strconv.FormatFloat(minRating, 'f', -1, 64))
	params.Set("page", strconv.Itoa(page))
	if genreID > 0 {
		params.Set("with_genres", strconv.FormatInt(genreID, 10))
	}

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Float64("minRating", minRating).
		Int64("genreID", genreID).
		Int("results", len(response.Results)).
		Msg("Rating discovery completed")

	return &response, nil
}

// DiscoverByBudget lists movies ordered by production budget, ascending for
// BudgetLow and descending for BudgetHigh. Movies with a budget under $1000
// are excluded since TMDB stores "unknown" as zero. genreID filters the
// result to one genre when non-zero.
func (c *Client) DiscoverByBudget(ctx context.Context, tier BudgetTier, genreID int64, page int) (*SearchMoviesResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if page < 1 {
		page = 1
	}

	sortBy := "budget.desc"
	if tier == BudgetLow {
		sortBy = "budget.asc"
	}

	endpoint := fmt.Sprintf("%s/discover/movie", c.config.BaseURL)
	params := c.baseParams()
	params.Set("sort_by", sortBy)
	params.Set("budget.gte", strconv.Itoa(minBudgetUSD))
	params.Set("page", strconv.Itoa(page))
	if genreID > 0 {
		params.Set("with_genres", strconv.FormatInt(genreID, 10))
	}

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("tier", string(tier)).
		Int64("genreID", genreID).
		Int("results", len(response.Results)).
		Msg("Budget discovery completed")

	return &response, nil
}

// GenreList fetches the localized movie genre catalog.
func (c *Client) GenreList(ctx context.Context) ([]Genre, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/genre/movie/list", c.config.BaseURL)
	params := c.baseParams()

	var response GenreListResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("genres", len(response.Genres)).
		Msg("Genre catalog fetched")

	return response.Genres, nil
}

// MovieDetails gets detailed movie info by TMDB ID.
func (c *Client) MovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := c.baseParams()

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int64("id", id).
		Str("title", details.Title).
		Msg("Got movie details")

	return &details, nil
}

// ImageURL returns a full poster URL for a TMDB image path. The configured
// image base already includes the size segment (e.g. .../t/p/w500).
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.config.ImageBaseURL + path
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle error responses
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
