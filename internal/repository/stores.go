package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prstocks-api/internal/config"
)

// Stores bundles the three independent record stores.
type Stores struct {
	Users       UserRepository
	Inventory   InventoryRepository
	Preferences PreferenceRepository
}

// All returns the stores in a fixed order: users, inventory, preferences.
func (s *Stores) All() []Store {
	return []Store{s.Users, s.Inventory, s.Preferences}
}

// Close closes every store that was opened and joins the errors.
func (s *Stores) Close() error {
	var errs []error
	for _, st := range s.All() {
		if st == nil {
			continue
		}
		if err := st.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStores connects each store to the backend its config names. SQLite
// stores default to <DATA_DIR>/<store>.db.
func OpenStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	stores := &Stores{}
	dataDir := cfg.Storage.DataDir

	users, err := openSQLStore(ctx, cfg.Users, dataDir, "users",
		func(ctx context.Context, db *sql.DB, d Dialect, location string) (*SQLUserRepository, error) {
			return NewSQLUserRepository(ctx, db, d, location, log)
		})
	if err != nil {
		return nil, fmt.Errorf("users store: %w", err)
	}
	stores.Users = users

	inventory, err := openSQLStore(ctx, cfg.Inventory, dataDir, "inventory",
		func(ctx context.Context, db *sql.DB, d Dialect, location string) (*SQLInventoryRepository, error) {
			return NewSQLInventoryRepository(ctx, db, d, location, log)
		})
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("inventory store: %w", err)
	}
	stores.Inventory = inventory

	if cfg.Preferences.Type == config.DriverMongoDB {
		prefs, err := NewMongoPreferenceRepository(ctx, cfg.Preferences.DSN,
			cfg.Preferences.MongoDatabase, cfg.Preferences.MongoCollection, log)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("preferences store: %w", err)
		}
		stores.Preferences = prefs
		return stores, nil
	}

	prefs, err := openSQLStore(ctx, cfg.Preferences, dataDir, "preferences",
		func(ctx context.Context, db *sql.DB, d Dialect, location string) (*SQLPreferenceRepository, error) {
			return NewSQLPreferenceRepository(ctx, db, d, location, log)
		})
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("preferences store: %w", err)
	}
	stores.Preferences = prefs

	return stores, nil
}

func openSQLStore[T any](
	ctx context.Context,
	sc config.StoreConfig,
	dataDir, name string,
	build func(ctx context.Context, db *sql.DB, d Dialect, location string) (T, error),
) (T, error) {
	var zero T

	d, err := DialectByName(sc.Type)
	if err != nil {
		return zero, err
	}

	dsn, location := sc.DSN, redactDSN(sc.DSN)
	if d.Name == SQLite.Name {
		dsn = sc.SQLitePath(dataDir, name)
		location = dsn
	}

	db, err := OpenSQL(ctx, d, dsn)
	if err != nil {
		return zero, err
	}

	repo, err := build(ctx, db, d, location)
	if err != nil {
		db.Close()
		return zero, err
	}
	return repo, nil
}
