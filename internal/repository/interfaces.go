package repository

import (
	"context"
	"time"

	"prstocks-api/internal/model"
)

// Store is implemented by every record store, whatever the backend.
type Store interface {
	// Count returns the number of records.
	Count(ctx context.Context) (int64, error)

	// Clear removes every record in one transaction and returns how many went.
	Clear(ctx context.Context) (int64, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Describe reports the store name, driver and location.
	Describe() model.StoreInfo

	// Close releases the underlying connection pool.
	Close() error
}

// MergeFunc decides what to persist for a part number. existing is nil when
// no row carries that part number yet.
type MergeFunc func(existing *model.InventoryItem) *model.InventoryItem

// InventoryRepository defines inventory data access methods.
type InventoryRepository interface {
	Store

	// List returns items matching filter in insertion order.
	List(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItem, error)

	// GetByID returns model.ErrInventoryItemNotFound for unknown ids.
	GetByID(ctx context.Context, id int64) (*model.InventoryItem, error)

	// UpsertByPartNumber looks up the first item with partNumber, hands it to
	// merge and writes the result, all in one transaction.
	UpsertByPartNumber(ctx context.Context, partNumber string, merge MergeFunc) (*model.InventoryItem, bool, error)

	// Update writes only the supplied columns and bumps updated_at.
	Update(ctx context.Context, id int64, upd model.InventoryItemUpdate, now time.Time) (*model.InventoryItem, error)

	// Delete removes an item by id.
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines user data access methods.
type UserRepository interface {
	Store

	// List returns every user in insertion order.
	List(ctx context.Context) ([]model.User, error)

	// Create inserts u and fills its id. Duplicate usernames yield
	// model.ErrUsernameAlreadyExists and leave the existing row untouched.
	Create(ctx context.Context, u *model.User) error

	// GetByUsername returns model.ErrUserNotFound for unknown usernames.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateByUsername loads the user, applies fn and persists devices and
	// last_login inside one transaction.
	UpdateByUsername(ctx context.Context, username string, fn func(*model.User)) (*model.User, error)

	// Delete removes a user by id.
	Delete(ctx context.Context, id int64) error
}

// PreferenceRepository defines preference blob storage.
type PreferenceRepository interface {
	Store

	// Get returns (nil, nil) when nothing is stored under username.
	Get(ctx context.Context, username string) (*model.Preference, error)

	// Upsert replaces the whole blob stored under username.
	Upsert(ctx context.Context, username string, blob []byte, now time.Time) error

	// Delete returns model.ErrPreferencesNotFound when nothing is stored.
	Delete(ctx context.Context, username string) error

	// List returns every stored blob.
	List(ctx context.Context) ([]model.Preference, error)
}
