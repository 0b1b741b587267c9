package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prstocks-api/internal/config"
	"prstocks-api/internal/model"
	"prstocks-api/internal/repository"
)

func newStores(t *testing.T) *repository.Stores {
	t.Helper()

	cfg := &config.Config{
		Storage:     config.StorageConfig{DataDir: t.TempDir()},
		Users:       config.StoreConfig{Type: config.DriverSQLite},
		Inventory:   config.StoreConfig{Type: config.DriverSQLite},
		Preferences: config.StoreConfig{Type: config.DriverSQLite},
	}

	stores, err := repository.OpenStores(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}

func TestInventoryServiceCreateAccumulates(t *testing.T) {
	stores := newStores(t)
	svc := NewInventoryService(stores.Inventory, zap.NewNop())
	ctx := context.Background()

	q1 := gofakeit.IntRange(1, 100)
	q2 := gofakeit.IntRange(1, 100)

	first, err := svc.Create(ctx, model.InventoryItemCreate{
		PartNumber: "FALCON-500", Quantity: lo.ToPtr(q1), Vendor: "VEX", CreatedBy: "alice",
	})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "Inventory item created successfully", first.Message)

	second, err := svc.Create(ctx, model.InventoryItemCreate{
		PartNumber: "FALCON-500", Quantity: lo.ToPtr(q2), Vendor: "WCP", CreatedBy: "bob",
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ItemID, second.ItemID)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, q1+q2, items[0].Quantity)
	assert.Equal(t, "VEX, WCP", items[0].Vendor)
	assert.Equal(t, "alice", items[0].CreatedBy)
	assert.Equal(t, "bob", items[0].LastUpdatedBy)
}

func TestInventoryServiceUpdate(t *testing.T) {
	stores := newStores(t)
	svc := NewInventoryService(stores.Inventory, zap.NewNop())
	ctx := context.Background()

	res, err := svc.Create(ctx, model.InventoryItemCreate{PartNumber: "P", Quantity: lo.ToPtr(1)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, res.ItemID, model.InventoryItemUpdate{})
	assert.ErrorIs(t, err, model.ErrValidation)

	item, err := svc.Update(ctx, res.ItemID, model.InventoryItemUpdate{Location: lo.ToPtr("Shelf 3")})
	require.NoError(t, err)
	assert.Equal(t, "Shelf 3", item.Location)
	assert.Equal(t, 1, item.Quantity)

	_, err = svc.Update(ctx, res.ItemID+100, model.InventoryItemUpdate{Location: lo.ToPtr("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserServiceFlow(t *testing.T) {
	stores := newStores(t)
	svc := NewUserService(stores.Users, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, model.UserCreate{Username: "alice", Subteam: "Programming", Device: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", created.Message)

	_, err = svc.Create(ctx, model.UserCreate{Username: "alice", Subteam: "Build"})
	assert.ErrorIs(t, err, model.ErrUsernameAlreadyExists)

	res, err := svc.Login(ctx, model.DeviceLogin{Username: "alice", Device: "phone"})
	require.NoError(t, err)
	assert.Equal(t, created.UserID, res.UserID)
	assert.Equal(t, model.DefaultUserCategory, res.Category)

	_, err = svc.Login(ctx, model.DeviceLogin{Username: "alice", Device: "laptop"})
	require.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"laptop", "phone"}, users[0].Devices)
	assert.NotNil(t, users[0].LastLogin)

	_, err = svc.Login(ctx, model.DeviceLogin{Username: "ghost", Device: "x"})
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	assert.NoError(t, svc.Verify(ctx, model.UserVerify{Username: "alice"}))
	assert.ErrorIs(t, svc.Verify(ctx, model.UserVerify{Username: "ghost"}), model.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.UserID))
	assert.ErrorIs(t, svc.Delete(ctx, created.UserID), model.ErrNotFound)
}

// failingInventory is an inventory store whose Clear always fails.
type failingInventory struct {
	repository.InventoryRepository
}

func (failingInventory) Clear(context.Context) (int64, error) {
	return 0, errors.New("disk gone")
}

func seedStores(t *testing.T, stores *repository.Stores) {
	t.Helper()
	ctx := context.Background()

	_, err := NewUserService(stores.Users, zap.NewNop()).
		Create(ctx, model.UserCreate{Username: "alice", Subteam: "CAD"})
	require.NoError(t, err)
	_, err = NewInventoryService(stores.Inventory, zap.NewNop()).
		Create(ctx, model.InventoryItemCreate{PartNumber: "A", Quantity: lo.ToPtr(1)})
	require.NoError(t, err)
	_, err = NewPreferenceService(stores.Preferences, zap.NewNop()).
		Set(ctx, "alice", []byte(`{"theme":"dark"}`))
	require.NoError(t, err)
}

func TestDatabaseServiceInfo(t *testing.T) {
	stores := newStores(t)
	seedStores(t, stores)
	ctx := context.Background()

	db := NewDatabaseService(stores, zap.NewNop())

	info, err := db.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.UserCount)
	assert.Equal(t, int64(1), info.InventoryCount)
	assert.Equal(t, int64(1), info.PreferenceCount)
	assert.Equal(t, info.PreferenceCount, info.DeviceCount)
	require.Len(t, info.Stores, 3)
	assert.Equal(t, "users.db", filepath.Base(info.Databases[0]))
	assert.Equal(t, "sqlite (separate stores)", info.Database)
	assert.Equal(t, []string{"sqlite"}, db.Drivers())
	assert.NoError(t, db.Ping(ctx))
}

func TestDatabaseServiceClearAll(t *testing.T) {
	tests := []struct {
		name      string
		wrap      func(*repository.Stores)
		want      *model.ClearResult
		failStore string
		remaining [3]int64
	}{
		{
			name:      "every store cleared",
			want:      &model.ClearResult{Users: 1, Inventory: 1, Preferences: 1},
			remaining: [3]int64{0, 0, 0},
		},
		{
			name: "failure stops the run and keeps earlier stores cleared",
			wrap: func(s *repository.Stores) {
				s.Inventory = failingInventory{s.Inventory}
			},
			want:      &model.ClearResult{Users: 1},
			failStore: "inventory",
			remaining: [3]int64{0, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := newStores(t)
			seedStores(t, stores)
			if tt.wrap != nil {
				tt.wrap(stores)
			}
			ctx := context.Background()

			cleared, err := NewDatabaseService(stores, zap.NewNop()).ClearAll(ctx)
			assert.Equal(t, tt.want, cleared)

			if tt.failStore == "" {
				require.NoError(t, err)
			} else {
				var clearErr *ClearError
				require.ErrorAs(t, err, &clearErr)
				assert.Equal(t, tt.failStore, clearErr.Store)
				assert.Contains(t, err.Error(), tt.failStore)
			}

			for i, st := range stores.All() {
				n, err := st.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.remaining[i], n, st.Describe().Name)
			}
		})
	}
}
