package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
)

const preferencesTable = "user_preferences"

var preferenceColumns = []string{"username", "preferences", "updated_at"}

// SQLPreferenceRepository keeps one JSON blob per username in a SQL table.
type SQLPreferenceRepository struct {
	db       *sql.DB
	dialect  Dialect
	location string
	log      *zap.Logger
}

// NewSQLPreferenceRepository wraps an open pool and creates the table if needed.
func NewSQLPreferenceRepository(ctx context.Context, db *sql.DB, d Dialect, location string, log *zap.Logger) (*SQLPreferenceRepository, error) {
	if err := execAll(ctx, db, preferenceDDL(d)); err != nil {
		return nil, fmt.Errorf("failed to create preference tables: %w", err)
	}

	log.Info("preference store initialized",
		zap.String("driver", d.Name), zap.String("location", location))
	return &SQLPreferenceRepository{db: db, dialect: d, location: location, log: log}, nil
}

func preferenceDDL(d Dialect) []string {
	switch d.Name {
	case Postgres.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS user_preferences (
			username TEXT PRIMARY KEY,
			preferences TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`}
	case MySQL.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS user_preferences (
			username VARCHAR(255) PRIMARY KEY,
			preferences LONGTEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`}
	default:
		return []string{`
		CREATE TABLE IF NOT EXISTS user_preferences (
			username TEXT PRIMARY KEY,
			preferences TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`}
	}
}

func scanPreference(row rowScanner) (*model.Preference, error) {
	var (
		p         model.Preference
		blob      string
		updatedAt time.Time
	)
	if err := row.Scan(&p.Username, &blob, &updatedAt); err != nil {
		return nil, err
	}
	p.Preferences = []byte(blob)
	p.UpdatedAt = &updatedAt
	return &p, nil
}

// Get returns the stored blob, or (nil, nil) when there is none.
func (r *SQLPreferenceRepository) Get(ctx context.Context, username string) (*model.Preference, error) {
	sqlStr, args, err := r.dialect.builder().
		Select(preferenceColumns...).
		From(preferencesTable).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanPreference(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return p, nil
}

// Upsert replaces the blob stored under username in a single statement,
// so concurrent first writes for one key resolve as last writer wins.
func (r *SQLPreferenceRepository) Upsert(ctx context.Context, username string, blob []byte, now time.Time) error {
	sqlStr, args, err := r.dialect.builder().
		Insert(preferencesTable).
		Columns(preferenceColumns...).
		Values(username, string(blob), now).
		Suffix(r.dialect.upsertSuffix("username", "preferences", "updated_at")).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Delete drops the blob stored under username.
func (r *SQLPreferenceRepository) Delete(ctx context.Context, username string) error {
	sqlStr, args, err := r.dialect.builder().
		Delete(preferencesTable).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrPreferencesNotFound
	}
	return nil
}

// List returns every stored blob ordered by username.
func (r *SQLPreferenceRepository) List(ctx context.Context) ([]model.Preference, error) {
	sqlStr, args, err := r.dialect.builder().
		Select(preferenceColumns...).
		From(preferencesTable).
		OrderBy("username").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	prefs := []model.Preference{}
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preferences: %w", err)
		}
		prefs = append(prefs, *p)
	}
	return prefs, rows.Err()
}

// Count returns the number of stored blobs.
func (r *SQLPreferenceRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, r.dialect, preferencesTable)
}

// Clear removes every blob.
func (r *SQLPreferenceRepository) Clear(ctx context.Context) (int64, error) {
	n, err := deleteAll(ctx, r.db, r.dialect, preferencesTable)
	if err != nil {
		return 0, err
	}
	r.log.Warn("preference store cleared", zap.Int64("rows", n))
	return n, nil
}

// Ping checks the pool.
func (r *SQLPreferenceRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Describe reports where the store lives.
func (r *SQLPreferenceRepository) Describe() model.StoreInfo {
	return model.StoreInfo{Name: "preferences", Driver: r.dialect.Name, Location: r.location}
}

// Close closes the database connection.
func (r *SQLPreferenceRepository) Close() error {
	return r.db.Close()
}

var _ PreferenceRepository = (*SQLPreferenceRepository)(nil)
