package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/repository"
	"prstocks-api/pkg/logger"
)

// DatabaseService runs the admin operations that span all three stores.
type DatabaseService struct {
	users       repository.UserRepository
	inventory   repository.InventoryRepository
	preferences repository.PreferenceRepository
	log         *zap.Logger
	now         func() time.Time
}

// NewDatabaseService creates a new database service.
func NewDatabaseService(stores *repository.Stores, log *zap.Logger) *DatabaseService {
	return &DatabaseService{
		users:       stores.Users,
		inventory:   stores.Inventory,
		preferences: stores.Preferences,
		log:         log.Named("[database]"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ClearError reports which store stopped a ClearAll run.
type ClearError struct {
	Store string
	Err   error
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("failed to clear %s store: %v", e.Store, e.Err)
}

func (e *ClearError) Unwrap() error { return e.Err }

func (s *DatabaseService) stores() []repository.Store {
	return []repository.Store{s.users, s.inventory, s.preferences}
}

// ClearAll empties the stores one after another, each in its own
// transaction. A failure stops the sequence; stores already cleared stay
// cleared and the returned result says how far it got.
func (s *DatabaseService) ClearAll(ctx context.Context) (*model.ClearResult, error) {
	result := &model.ClearResult{}
	targets := []struct {
		store repository.Store
		count *int64
	}{
		{s.users, &result.Users},
		{s.inventory, &result.Inventory},
		{s.preferences, &result.Preferences},
	}

	for _, t := range targets {
		n, err := t.store.Clear(ctx)
		if err != nil {
			name := t.store.Describe().Name
			s.log.Error("clear-data stopped part way",
				logger.String("store", name), logger.ErrorF(err),
				logger.Any("cleared", result))
			return result, &ClearError{Store: name, Err: err}
		}
		*t.count = n
	}

	s.log.Warn("all stores cleared",
		logger.Int64("users", result.Users),
		logger.Int64("inventory", result.Inventory),
		logger.Int64("preferences", result.Preferences))
	return result, nil
}

// Info reports row counts and backend details for every store. deviceCount
// mirrors the preference count for older front-ends.
func (s *DatabaseService) Info(ctx context.Context) (*model.DatabaseInfo, error) {
	info := &model.DatabaseInfo{Timestamp: s.now()}

	var err error
	if info.UserCount, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if info.InventoryCount, err = s.inventory.Count(ctx); err != nil {
		return nil, err
	}
	if info.PreferenceCount, err = s.preferences.Count(ctx); err != nil {
		return nil, err
	}
	info.DeviceCount = info.PreferenceCount

	info.Stores = lo.Map(s.stores(), func(st repository.Store, _ int) model.StoreInfo {
		return st.Describe()
	})
	info.Databases = lo.Map(info.Stores, func(st model.StoreInfo, _ int) string {
		return st.Location
	})
	info.Database = describeBackends(info.Stores)

	return info, nil
}

// Ping checks every store and joins the failures.
func (s *DatabaseService) Ping(ctx context.Context) error {
	var errs []error
	for _, st := range s.stores() {
		if err := st.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Describe().Name, err))
		}
	}
	return errors.Join(errs...)
}

// Drivers lists the distinct backends in use.
func (s *DatabaseService) Drivers() []string {
	return lo.Uniq(lo.Map(s.stores(), func(st repository.Store, _ int) string {
		return st.Describe().Driver
	}))
}

func describeBackends(stores []model.StoreInfo) string {
	drivers := lo.Uniq(lo.Map(stores, func(st model.StoreInfo, _ int) string { return st.Driver }))
	if len(drivers) == 1 {
		return fmt.Sprintf("%s (separate stores)", drivers[0])
	}
	return fmt.Sprintf("mixed (%d backends)", len(drivers))
}
