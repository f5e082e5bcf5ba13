// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for SearchEntry
// and MovieSnapshot rows.
//
// CreateEntry and CreateSnapshots are deliberately context-free: they are
// building blocks meant to run inside a service-owned transaction whose
// handle already carries the request context (see
// services.HistoryService.Record). The read and delete paths are standalone
// and context-aware.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/filmoteka/go-movie-bot/internal/domain"
)

// CreateEntry inserts a new SearchEntry row for userID. The entry ID is a
// randomly generated UUID and CreatedAt is set to UTC. resultCount must equal
// the number of snapshot rows the caller is about to write for this entry.
func CreateEntry(db *gorm.DB, userID, kind, query string, resultCount int) (*domain.SearchEntry, error) {
	e := &domain.SearchEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Query:       query,
		ResultCount: resultCount,
		CreatedAt:   time.Now().UTC(),
	}
	return e, db.Create(e).Error
}

// CreateSnapshots inserts one MovieSnapshot row per element of snaps, owned
// by entryID. IDs, positions (input order) and timestamps are assigned here;
// any values the caller set for those fields are overwritten. A nil or empty
// slice is a no-op.
func CreateSnapshots(db *gorm.DB, entryID string, snaps []domain.MovieSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range snaps {
		snaps[i].ID = uuid.NewString()
		snaps[i].EntryID = entryID
		snaps[i].Position = i
		snaps[i].CreatedAt = now
	}
	return db.Create(&snaps).Error
}

// GetEntry returns one SearchEntry by its ID, or ErrNotFound when no such
// entry exists.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.SearchEntry, error) {
	var e domain.SearchEntry
	err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns the newest entries for userID ordered by creation time
// descending. When limit > 0 the result is capped at limit rows. It returns
// an empty slice if the user has no history. On DB error, it returns the
// error.
func ListEntries(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.SearchEntry, error) {
	var out []domain.SearchEntry
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListEntriesSince returns every entry for userID created at or after the
// cutoff, newest first, with no count cap. On DB error, it returns the error.
func ListEntriesSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) ([]domain.SearchEntry, error) {
	var out []domain.SearchEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountEntries uses a raw COUNT so a missing table surfaces as an error (as tests expect).
func CountEntries(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM search_entries WHERE user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

// DeleteEntries removes every SearchEntry owned by userID and returns the
// number of entries removed. Owned snapshot rows are removed by the FK
// cascade. Deleting an empty history returns 0 and no error.
func DeleteEntries(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.SearchEntry{})
	return res.RowsAffected, res.Error
}

// ListSnapshots returns the snapshot rows for entryID ordered by their render
// position ascending. On DB error, it returns the error.
func ListSnapshots(ctx context.Context, db *gorm.DB, entryID string) ([]domain.MovieSnapshot, error) {
	var out []domain.MovieSnapshot
	err := db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// CountSnapshots uses a raw COUNT so a missing table surfaces as an error.
func CountSnapshots(ctx context.Context, db *gorm.DB, entryID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM movie_snapshots WHERE entry_id = ?", entryID).
		Scan(&total).Error
	return total, err
}
