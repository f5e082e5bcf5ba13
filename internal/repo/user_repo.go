// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - GetOrCreateUser(ctx, db, telegramID, username, firstName, lastName) -> *domain.User, error
//     Race-safe get-or-create keyed on the unique telegram_id. The insert is
//     attempted with an ON CONFLICT DO NOTHING clause, then the row is
//     fetched, so two concurrent first contacts never produce duplicates
//     and never fail each other.
//
//   - GetUserByTelegramID(ctx, db, telegramID) -> *domain.User, error
//     Fetches a user by external identity, or ErrNotFound if missing.
//
// Usage:
//
//	// Within a service layer
//	u, err := repo.GetOrCreateUser(ctx, db, 42, nil, "Ada", nil)
//	if err != nil {
//	    // handle DB failure
//	}
//
// This repository is designed to be wrapped by higher-level services
// (see services.HistoryService and services.SearchService) which enforce
// business rules on top of it.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/filmoteka/go-movie-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrCreateUser returns the user identified by telegramID, creating the row
// on first contact. Profile fields are only written on creation; an existing
// row is returned as stored.
//
// The insert uses ON CONFLICT (telegram_id) DO NOTHING followed by a fetch,
// never a read-then-write pair, so concurrent first contacts from the same
// account cannot create duplicates.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, telegramID int64, username *string, firstName string, lastName *string) (*domain.User, error) {
	u := &domain.User{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		CreatedAt:  time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoNothing: true,
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	// The insert may have been a no-op on conflict; fetch the canonical row.
	return GetUserByTelegramID(ctx, db, telegramID)
}

// GetUserByTelegramID fetches a user by external identity. If the record does
// not exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetUserByTelegramID(ctx context.Context, db *gorm.DB, telegramID int64) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
