// Package services defines the business logic for movie search orchestration
// and search history. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the adapter
// (bot/handler) layer.
package services

import "errors"

// Search-related errors.
var (
	// ErrEmptyQuery is returned when a title search is requested with an
	// empty or whitespace-only query.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrInvalidRating is returned when a rating search carries a value
	// that is not a real number (NaN or infinite).
	ErrInvalidRating = errors.New("minimum rating is not a valid number")

	// ErrUnknownKind is returned when a search intent names a kind the
	// orchestrator does not implement.
	ErrUnknownKind = errors.New("unknown search kind")

	// ErrNoResults indicates the provider returned an empty page, or every
	// candidate was dropped during detail fetching. Nothing is persisted.
	ErrNoResults = errors.New("no movies found")

	// ErrProviderUnavailable wraps transport failures and non-success
	// provider responses on the initial search/discover call.
	ErrProviderUnavailable = errors.New("movie provider unavailable")

	// ErrPersistenceFailed wraps history-write failures. The computed
	// search result is still returned to the caller alongside this error:
	// results were already shown to the user, only the history is lost.
	ErrPersistenceFailed = errors.New("failed to save search history")
)
