// Package domain defines the persistence models for users, search history,
// and movie snapshots. These types are mapped with GORM and form the core
// data layer of the movie bot application.
package domain

import (
	"time"
)

// Search kinds persisted on SearchEntry.Kind. The values match what the bot
// stores for each command so history rows stay readable in the raw table.
const (
	SearchKindTitle      = "title"
	SearchKindRating     = "rating"
	SearchKindBudgetLow  = "budget_low"
	SearchKindBudgetHigh = "budget_high"
)

// User represents a chat-platform account. Users are created lazily on first
// contact (race-safe get-or-create keyed on TelegramID) and never deleted.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - TelegramID: the platform's numeric account id; globally unique.
//   - Username / LastName: optional profile fields as reported by the platform.
//   - FirstName: display name (the platform always supplies one).
//   - CreatedAt: timestamp managed by GORM.
type User struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	TelegramID int64     `json:"telegram_id" gorm:"not null;uniqueIndex:ux_users_telegram_id"`
	Username   *string   `json:"username,omitempty"   gorm:"type:varchar(64)"`
	FirstName  string    `json:"first_name"  gorm:"type:varchar(128);not null"`
	LastName   *string   `json:"last_name,omitempty"  gorm:"type:varchar(128)"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SearchEntry records one orchestrated search: who searched, what kind of
// search it was, the normalized query text, and how many movies were shown.
// Entries are immutable after creation; the only mutation is bulk deletion,
// which cascades to the owned MovieSnapshot rows.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: foreign key to the owning user (indexed with CreatedAt for
//     newest-first listings).
//   - Kind: one of the SearchKind* constants (enforced by DB constraint).
//   - Query: the normalized query string as issued, e.g. "Матрица",
//     "rating>8.0 genre:фантастика", "budget:low genre:комедия".
//   - ResultCount: number of MovieSnapshot rows owned by this entry; kept
//     equal to the actual row count by the transactional write path.
//   - CreatedAt: timestamp managed by GORM.
type SearchEntry struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:char(36);not null;index:idx_user_entries,priority:1"`
	Kind        string    `json:"kind"         gorm:"type:varchar(16);not null;check:kind IN ('title','rating','budget_low','budget_high')"`
	Query       string    `json:"query"        gorm:"type:text;not null"`
	ResultCount int       `json:"result_count" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_user_entries,priority:2"`

	// User is the owning account. Entries are cascade-deleted if the
	// user row is ever removed out-of-band.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SearchEntry.
func (SearchEntry) TableName() string { return "search_entries" }

// MovieSnapshot is a frozen copy of one movie as the provider described it at
// search time. Later provider changes never alter a snapshot. Rows carry the
// position they were rendered in so history replay preserves display order.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - EntryID: foreign key to the owning SearchEntry (cascade delete).
//   - Position: zero-based render order within the entry.
//   - MovieID: the provider's movie identifier.
//   - Title: localized title (the provider always supplies one).
//   - OriginalTitle / Overview / ReleaseDate / GenreNames / PosterPath:
//     optional provider fields; GenreNames is a comma-joined display string.
//   - VoteAverage / VoteCount: provider rating data, optional.
//   - Adult: adult-content flag.
//   - Budget / Revenue: provider amounts in USD, optional (0 means unset
//     upstream and is stored as NULL here).
//   - CreatedAt: timestamp managed by GORM.
type MovieSnapshot struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	EntryID       string    `json:"entry_id"       gorm:"type:char(36);not null;index:idx_entry_snapshots,priority:1"`
	Position      int       `json:"position"       gorm:"not null;index:idx_entry_snapshots,priority:2"`
	MovieID       int64     `json:"movie_id"       gorm:"not null"`
	Title         string    `json:"title"          gorm:"type:varchar(255);not null"`
	OriginalTitle *string   `json:"original_title,omitempty" gorm:"type:varchar(255)"`
	Overview      *string   `json:"overview,omitempty"       gorm:"type:text"`
	ReleaseDate   *string   `json:"release_date,omitempty"   gorm:"type:varchar(32)"`
	VoteAverage   *float64  `json:"vote_average,omitempty"`
	VoteCount     *int64    `json:"vote_count,omitempty"`
	GenreNames    *string   `json:"genre_names,omitempty"    gorm:"type:text"`
	Adult         bool      `json:"adult"          gorm:"not null;default:false"`
	PosterPath    *string   `json:"poster_path,omitempty"    gorm:"type:varchar(255)"`
	Budget        *int64    `json:"budget,omitempty"`
	Revenue       *int64    `json:"revenue,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Entry is the owning search. Snapshots are cascade-deleted when
	// their entry is removed.
	Entry SearchEntry `json:"-" gorm:"foreignKey:EntryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MovieSnapshot.
func (MovieSnapshot) TableName() string { return "movie_snapshots" }

// UserMovieStatus links a user to a movie snapshot with a watched flag.
// The table is part of the durable schema but no bot command or endpoint
// drives it yet; it exists so the schema matches the deployed database.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID / SnapshotID: foreign keys (one status per user per snapshot).
//   - Watched: whether the user marked the movie as seen.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type UserMovieStatus struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);not null;uniqueIndex:ux_user_movie_status,priority:1"`
	SnapshotID string    `json:"snapshot_id" gorm:"type:char(36);not null;uniqueIndex:ux_user_movie_status,priority:2"`
	Watched    bool      `json:"watched"     gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User     User          `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Snapshot MovieSnapshot `json:"-" gorm:"foreignKey:SnapshotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserMovieStatus.
func (UserMovieStatus) TableName() string { return "user_movie_statuses" }
