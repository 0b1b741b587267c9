package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
)

const usersTable = "users"

var userColumns = []string{"user_id", "username", "category", "subteam", "devices", "last_login", "created_at"}

// SQLUserRepository implements UserRepository on SQLite, PostgreSQL or MySQL.
// Devices are kept as a JSON array in a text column.
type SQLUserRepository struct {
	db       *sql.DB
	dialect  Dialect
	location string
	log      *zap.Logger
}

// NewSQLUserRepository wraps an open pool and creates the table if needed.
func NewSQLUserRepository(ctx context.Context, db *sql.DB, d Dialect, location string, log *zap.Logger) (*SQLUserRepository, error) {
	if err := execAll(ctx, db, userDDL(d)); err != nil {
		return nil, fmt.Errorf("failed to create user tables: %w", err)
	}

	log.Info("user store initialized",
		zap.String("driver", d.Name), zap.String("location", location))
	return &SQLUserRepository{db: db, dialect: d, location: location, log: log}, nil
}

func userDDL(d Dialect) []string {
	switch d.Name {
	case Postgres.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL DEFAULT 'member',
			subteam TEXT NOT NULL,
			devices TEXT NOT NULL DEFAULT '[]',
			last_login TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`}
	case MySQL.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			category VARCHAR(255) NOT NULL DEFAULT 'member',
			subteam VARCHAR(255) NOT NULL,
			devices TEXT NOT NULL,
			last_login DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL
		)`}
	default:
		return []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL DEFAULT 'member',
			subteam TEXT NOT NULL,
			devices TEXT NOT NULL DEFAULT '[]',
			last_login DATETIME NULL,
			created_at DATETIME NOT NULL
		)`}
	}
}

// parseDevices decodes the stored device list. ok is false when the column
// holds something other than a JSON string array.
func parseDevices(raw string) (devices []string, ok bool) {
	if raw == "" {
		return []string{}, true
	}
	if err := json.Unmarshal([]byte(raw), &devices); err != nil {
		return []string{}, false
	}
	if devices == nil {
		devices = []string{}
	}
	return devices, true
}

func encodeDevices(devices []string) (string, error) {
	if devices == nil {
		devices = []string{}
	}
	b, err := json.Marshal(devices)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *SQLUserRepository) scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		devices   string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Category, &u.Subteam, &devices, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}

	var ok bool
	u.Devices, ok = parseDevices(devices)
	if !ok {
		r.log.Warn("unreadable device list, treating as empty",
			zap.Int64("user_id", u.ID), zap.String("devices", devices))
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// List returns every user in insertion order.
func (r *SQLUserRepository) List(ctx context.Context) ([]model.User, error) {
	sqlStr, args, err := r.dialect.builder().
		Select(userColumns...).
		From(usersTable).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts u after checking the username is free.
func (r *SQLUserRepository) Create(ctx context.Context, u *model.User) error {
	devices, err := encodeDevices(u.Devices)
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.getByUsername(ctx, tx, u.Username); err == nil {
		return model.ErrUsernameAlreadyExists
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return err
	}

	ins := r.dialect.builder().
		Insert(usersTable).
		Columns(userColumns[1:]...).
		Values(u.Username, u.Category, u.Subteam, devices, nullTime(u.LastLogin), u.CreatedAt)

	id, err := insertReturningID(ctx, tx, r.dialect, ins, "user_id")
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameAlreadyExists
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.ID = id
	return nil
}

// GetByUsername returns a single user.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getByUsername(ctx, r.db, username)
}

func (r *SQLUserRepository) getByUsername(ctx context.Context, db queryer, username string) (*model.User, error) {
	sqlStr, args, err := r.dialect.builder().
		Select(userColumns...).
		From(usersTable).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	u, err := r.scanUser(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateByUsername applies fn to the stored user and writes back devices
// and last_login. Concurrent callers race; the last commit wins.
func (r *SQLUserRepository) UpdateByUsername(ctx context.Context, username string, fn func(*model.User)) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	u, err := r.getByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}

	fn(u)

	devices, err := encodeDevices(u.Devices)
	if err != nil {
		return nil, fmt.Errorf("failed to encode devices: %w", err)
	}

	sqlStr, args, err := r.dialect.builder().
		Update(usersTable).
		Set("devices", devices).
		Set("last_login", nullTime(u.LastLogin)).
		Where(sq.Eq{"user_id": u.ID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return u, nil
}

// Delete removes a user by id.
func (r *SQLUserRepository) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := r.dialect.builder().
		Delete(usersTable).
		Where(sq.Eq{"user_id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// Count returns the number of users.
func (r *SQLUserRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, r.dialect, usersTable)
}

// Clear removes every user.
func (r *SQLUserRepository) Clear(ctx context.Context) (int64, error) {
	n, err := deleteAll(ctx, r.db, r.dialect, usersTable)
	if err != nil {
		return 0, err
	}
	r.log.Warn("user store cleared", zap.Int64("rows", n))
	return n, nil
}

// Ping checks the pool.
func (r *SQLUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Describe reports where the store lives.
func (r *SQLUserRepository) Describe() model.StoreInfo {
	return model.StoreInfo{Name: "users", Driver: r.dialect.Name, Location: r.location}
}

// Close closes the database connection.
func (r *SQLUserRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLUserRepository implements UserRepository
var _ UserRepository = (*SQLUserRepository)(nil)
