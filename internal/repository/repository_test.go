package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
)

func openSQLite(t *testing.T, name string) (context.Context, string) {
	t.Helper()
	return context.Background(), filepath.Join(t.TempDir(), name+".db")
}

func newInventoryRepo(t *testing.T) *SQLInventoryRepository {
	t.Helper()
	ctx, path := openSQLite(t, "inventory")

	db, err := OpenSQL(ctx, SQLite, path)
	require.NoError(t, err)

	repo, err := NewSQLInventoryRepository(ctx, db, SQLite, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newUserRepo(t *testing.T) *SQLUserRepository {
	t.Helper()
	ctx, path := openSQLite(t, "users")

	db, err := OpenSQL(ctx, SQLite, path)
	require.NoError(t, err)

	repo, err := NewSQLUserRepository(ctx, db, SQLite, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newPreferenceRepo(t *testing.T) *SQLPreferenceRepository {
	t.Helper()
	ctx, path := openSQLite(t, "preferences")

	db, err := OpenSQL(ctx, SQLite, path)
	require.NoError(t, err)

	repo, err := NewSQLPreferenceRepository(ctx, db, SQLite, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// addQuantity is a minimal merge: create with q, or add q to the stored row.
func addQuantity(partNumber string, q int, now time.Time) MergeFunc {
	return func(existing *model.InventoryItem) *model.InventoryItem {
		if existing == nil {
			return &model.InventoryItem{PartNumber: partNumber, Quantity: q, CreatedAt: now, UpdatedAt: now}
		}
		item := *existing
		item.Quantity += q
		item.UpdatedAt = now
		return &item
	}
}

func TestInventoryUpsertByPartNumber(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, created, err := repo.UpsertByPartNumber(ctx, "P-1", addQuantity("P-1", 3, now))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second, created, err := repo.UpsertByPartNumber(ctx, "P-1", addQuantity("P-1", 4, now))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 7, second.Quantity)

	items, err := repo.List(ctx, model.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1, "exactly one row per part number")
	assert.Equal(t, 7, items[0].Quantity)
}

func TestInventoryMergeSeesStoredRow(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := repo.UpsertByPartNumber(ctx, "P-2", func(existing *model.InventoryItem) *model.InventoryItem {
		require.Nil(t, existing)
		return &model.InventoryItem{
			PartNumber: "P-2", Quantity: 1, Vendor: "Digikey", Cost: 1.25,
			CreatedBy: "alice", LastUpdatedBy: "alice", CreatedAt: now, UpdatedAt: now,
		}
	})
	require.NoError(t, err)

	_, _, err = repo.UpsertByPartNumber(ctx, "P-2", func(existing *model.InventoryItem) *model.InventoryItem {
		require.NotNil(t, existing)
		assert.Equal(t, "Digikey", existing.Vendor)
		assert.Equal(t, 1.25, existing.Cost)
		assert.Equal(t, "alice", existing.CreatedBy)
		assert.WithinDuration(t, now, existing.CreatedAt, time.Millisecond)
		return existing
	})
	require.NoError(t, err)
}

func TestInventoryUpdatePartial(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Hour)

	item, _, err := repo.UpsertByPartNumber(ctx, "P-3", func(*model.InventoryItem) *model.InventoryItem {
		return &model.InventoryItem{
			PartNumber: "P-3", Quantity: 10, Description: "servo", Location: "Cabinet",
			CreatedAt: created, UpdatedAt: created,
		}
	})
	require.NoError(t, err)

	later := created.Add(30 * time.Minute)
	updated, err := repo.Update(ctx, item.ID, model.InventoryItemUpdate{
		Quantity: lo.ToPtr(2),
		Notes:    lo.ToPtr("checked"),
	}, later)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, "checked", updated.Notes)
	assert.Equal(t, "servo", updated.Description, "unset fields are left alone")
	assert.Equal(t, "Cabinet", updated.Location)
	assert.WithinDuration(t, later, updated.UpdatedAt, time.Millisecond)
	assert.WithinDuration(t, created, updated.CreatedAt, time.Millisecond)
}

func TestInventoryNotFound(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.Update(ctx, 404, model.InventoryItemUpdate{Quantity: lo.ToPtr(1)}, time.Now())
	assert.ErrorIs(t, err, model.ErrInventoryItemNotFound)

	err = repo.Delete(ctx, 404)
	assert.ErrorIs(t, err, model.ErrInventoryItemNotFound)
}

func TestInventoryListFilters(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []model.InventoryItem{
		{PartNumber: "NEO-550", Description: "brushless motor", Vendor: "REV", Category: "Motors", Subteam: "Drive"},
		{PartNumber: "M4-NUT", Description: "nylock nut", Vendor: "McMaster", Category: "Hardware", Subteam: "Build"},
		{PartNumber: "SPARK-MAX", Description: "motor controller", Vendor: "REV", Category: "Electronics", Subteam: "Drive"},
		{PartNumber: "TAPE_50%", Description: "electrical tape", Vendor: "3M", Category: "Consumables"},
	}
	for _, it := range seed {
		it := it
		it.CreatedAt, it.UpdatedAt = now, now
		_, _, err := repo.UpsertByPartNumber(ctx, it.PartNumber, func(*model.InventoryItem) *model.InventoryItem { return &it })
		require.NoError(t, err)
	}

	parts := func(items []model.InventoryItem) []string {
		return lo.Map(items, func(it model.InventoryItem, _ int) string { return it.PartNumber })
	}

	items, err := repo.List(ctx, model.InventoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"NEO-550", "M4-NUT", "SPARK-MAX", "TAPE_50%"}, parts(items), "insertion order")

	items, err = repo.List(ctx, model.InventoryFilter{Query: "motor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NEO-550", "SPARK-MAX"}, parts(items))

	items, err = repo.List(ctx, model.InventoryFilter{Query: "rev", Category: "Electronics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SPARK-MAX"}, parts(items))

	items, err = repo.List(ctx, model.InventoryFilter{Subteam: "Drive"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = repo.List(ctx, model.InventoryFilter{Query: "_50%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TAPE_50%"}, parts(items), "LIKE wildcards in the query are literal")

	items, err = repo.List(ctx, model.InventoryFilter{Query: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TAPE_50%"}, parts(items))
}

func TestInventoryCountAndClear(t *testing.T) {
	repo := newInventoryRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		pn := gofakeit.LetterN(8)
		_, _, err := repo.UpsertByPartNumber(ctx, pn, addQuantity(pn, 1, now))
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	cleared, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	info := repo.Describe()
	assert.Equal(t, "inventory", info.Name)
	assert.Equal(t, "sqlite", info.Driver)
	assert.NoError(t, repo.Ping(ctx))
}

func TestUserCreateAndConflict(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := &model.User{
		Username: "alice", Category: "member", Subteam: "Programming",
		Devices: []string{"laptop"}, LastLogin: &now, CreatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &model.User{Username: "alice", Category: "admin", Subteam: "Build", CreatedAt: now}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, model.ErrUsernameAlreadyExists)
	assert.ErrorIs(t, err, model.ErrConflict)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "member", stored.Category, "existing user is untouched")
	assert.Equal(t, "Programming", stored.Subteam)
	assert.Equal(t, []string{"laptop"}, stored.Devices)
	require.NotNil(t, stored.LastLogin)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserUpdateByUsername(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "bob", Category: "member", Subteam: "CAD", CreatedAt: now}))

	stored, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, stored.LastLogin)
	assert.Equal(t, []string{}, stored.Devices)

	login := now.Add(time.Minute)
	updated, err := repo.UpdateByUsername(ctx, "bob", func(u *model.User) {
		u.Devices = append(u.Devices, "tablet")
		u.LastLogin = &login
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tablet"}, updated.Devices)

	stored, err = repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"tablet"}, stored.Devices)
	require.NotNil(t, stored.LastLogin)
	assert.WithinDuration(t, login, *stored.LastLogin, time.Millisecond)

	_, err = repo.UpdateByUsername(ctx, "nobody", func(*model.User) {})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserDelete(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	u := &model.User{Username: gofakeit.Username(), Category: "member", Subteam: "Outreach", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), model.ErrUserNotFound)

	_, err := repo.GetByUsername(ctx, u.Username)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestParseDevices(t *testing.T) {
	devices, ok := parseDevices(`["a","b"]`)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, devices)

	devices, ok = parseDevices("")
	assert.True(t, ok)
	assert.Empty(t, devices)

	devices, ok = parseDevices("null")
	assert.True(t, ok)
	assert.NotNil(t, devices)

	devices, ok = parseDevices("laptop,phone")
	assert.False(t, ok)
	assert.Empty(t, devices)
}

func TestPreferenceRoundTrip(t *testing.T) {
	repo := newPreferenceRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, p, "absent key is not an error")

	require.NoError(t, repo.Upsert(ctx, "alice", []byte(`{"theme":"dark"}`), now))
	require.NoError(t, repo.Upsert(ctx, "alice", []byte(`{"theme":"light","compact":true}`), now.Add(time.Second)))

	p, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.JSONEq(t, `{"theme":"light","compact":true}`, string(p.Preferences), "whole blob is replaced")
	require.NotNil(t, p.UpdatedAt)
	assert.WithinDuration(t, now.Add(time.Second), *p.UpdatedAt, time.Millisecond)

	require.NoError(t, repo.Upsert(ctx, "device-123", []byte(`{}`), now))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "device-123"},
		lo.Map(all, func(p model.Preference, _ int) string { return p.Username }))

	require.NoError(t, repo.Delete(ctx, "alice"))
	assert.ErrorIs(t, repo.Delete(ctx, "alice"), model.ErrPreferencesNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPreferenceUpsertConcurrentWriters(t *testing.T) {
	repo := newPreferenceRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Upsert(ctx, "shared-tablet", []byte(fmt.Sprintf(`{"writer":%d}`, i)), now)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "a concurrent first write must not fail")
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := repo.Get(ctx, "shared-tablet")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Contains(t, string(p.Preferences), `"writer":`)
}

func TestUpsertSuffix(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{SQLite, "ON CONFLICT (username) DO UPDATE SET preferences = excluded.preferences, updated_at = excluded.updated_at"},
		{Postgres, "ON CONFLICT (username) DO UPDATE SET preferences = excluded.preferences, updated_at = excluded.updated_at"},
		{MySQL, "ON DUPLICATE KEY UPDATE preferences = VALUES(preferences), updated_at = VALUES(updated_at)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.upsertSuffix("username", "preferences", "updated_at"))
		})
	}
}

func TestDialectByName(t *testing.T) {
	for name, want := range map[string]Dialect{
		"sqlite":     SQLite,
		"postgres":   Postgres,
		"postgresql": Postgres,
		"mysql":      MySQL,
	} {
		got, err := DialectByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want.Name, got.Name)
	}

	_, err := DialectByName("oracle")
	assert.Error(t, err)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/prstocks", redactDSN("postgres://app:secret@db:5432/prstocks"))
	assert.Equal(t, "tcp(db:3306)/prstocks", redactDSN("app:secret@tcp(db:3306)/prstocks"))
	assert.Equal(t, "(dsn)", redactDSN("host=db user=app password=secret"))
}
