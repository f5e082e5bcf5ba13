// Package services – UserService
//
// This file implements UserService, the thin identity layer between the
// chat platform and the local database. First contact (e.g. /start) creates
// the local user row with the profile the platform reported; repeated
// contact returns the stored row unchanged.

package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/filmoteka/go-movie-bot/internal/domain"
	"github.com/filmoteka/go-movie-bot/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService resolves external chat identities to local users.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Identify returns the local user for a Telegram identity, creating it on
// first contact. Safe under concurrent calls for the same identity.
func (s *UserService) Identify(ctx context.Context, telegramID int64, profile UserProfile) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Identify",
		trace.WithAttributes(attribute.Int64("user.telegram_id", telegramID)),
	)
	defer span.End()

	return repo.GetOrCreateUser(ctx, s.DB, telegramID, profile.Username, profile.FirstName, profile.LastName)
}
