package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
)

const inventoryTable = "inventory_items"

var inventoryColumns = []string{
	"item_id", "part_number", "quantity", "description", "category", "location",
	"subteam", "cost", "vendor", "created_by", "last_updated_by", "created_at",
	"updated_at", "item_type", "systems", "case_code_in", "size", "link",
	"company", "notes",
}

// SQLInventoryRepository implements InventoryRepository on SQLite,
// PostgreSQL or MySQL.
type SQLInventoryRepository struct {
	db       *sql.DB
	dialect  Dialect
	location string
	log      *zap.Logger
}

// NewSQLInventoryRepository wraps an open pool and creates the table if needed.
// location is only used for reporting (file path or host).
func NewSQLInventoryRepository(ctx context.Context, db *sql.DB, d Dialect, location string, log *zap.Logger) (*SQLInventoryRepository, error) {
	if err := execAll(ctx, db, inventoryDDL(d)); err != nil {
		return nil, fmt.Errorf("failed to create inventory tables: %w", err)
	}

	log.Info("inventory store initialized",
		zap.String("driver", d.Name), zap.String("location", location))
	return &SQLInventoryRepository{db: db, dialect: d, location: location, log: log}, nil
}

func inventoryDDL(d Dialect) []string {
	switch d.Name {
	case Postgres.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS inventory_items (
			item_id BIGSERIAL PRIMARY KEY,
			part_number TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			subteam TEXT NOT NULL DEFAULT '',
			cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			vendor TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			last_updated_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			item_type TEXT NOT NULL DEFAULT '',
			systems TEXT NOT NULL DEFAULT '',
			case_code_in TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT ''
		)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_part_number ON inventory_items(part_number)`,
		}
	case MySQL.Name:
		return []string{`
		CREATE TABLE IF NOT EXISTS inventory_items (
			item_id BIGINT AUTO_INCREMENT PRIMARY KEY,
			part_number VARCHAR(255) NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			description TEXT NOT NULL,
			category VARCHAR(255) NOT NULL DEFAULT '',
			location VARCHAR(255) NOT NULL DEFAULT '',
			subteam VARCHAR(255) NOT NULL DEFAULT '',
			cost DOUBLE NOT NULL DEFAULT 0,
			vendor VARCHAR(255) NOT NULL DEFAULT '',
			created_by VARCHAR(255) NOT NULL DEFAULT '',
			last_updated_by VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			item_type VARCHAR(255) NOT NULL DEFAULT '',
			systems VARCHAR(255) NOT NULL DEFAULT '',
			case_code_in VARCHAR(255) NOT NULL DEFAULT '',
			size VARCHAR(255) NOT NULL DEFAULT '',
			link TEXT NOT NULL,
			company VARCHAR(255) NOT NULL DEFAULT '',
			notes TEXT NOT NULL,
			INDEX idx_inventory_part_number (part_number)
		)`}
	default:
		return []string{`
		CREATE TABLE IF NOT EXISTS inventory_items (
			item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			part_number TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			subteam TEXT NOT NULL DEFAULT '',
			cost REAL NOT NULL DEFAULT 0,
			vendor TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			last_updated_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			item_type TEXT NOT NULL DEFAULT '',
			systems TEXT NOT NULL DEFAULT '',
			case_code_in TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT ''
		)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_part_number ON inventory_items(part_number)`,
		}
	}
}

func scanInventoryItem(row rowScanner) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := row.Scan(
		&it.ID, &it.PartNumber, &it.Quantity, &it.Description, &it.Category,
		&it.Location, &it.Subteam, &it.Cost, &it.Vendor, &it.CreatedBy,
		&it.LastUpdatedBy, &it.CreatedAt, &it.UpdatedAt, &it.ItemType,
		&it.Systems, &it.CaseCode, &it.Size, &it.Link, &it.Company, &it.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// inventoryValues lists every column except the key, in inventoryColumns order.
func inventoryValues(it *model.InventoryItem) []interface{} {
	return []interface{}{
		it.PartNumber, it.Quantity, it.Description, it.Category, it.Location,
		it.Subteam, it.Cost, it.Vendor, it.CreatedBy, it.LastUpdatedBy,
		it.CreatedAt, it.UpdatedAt, it.ItemType, it.Systems, it.CaseCode,
		it.Size, it.Link, it.Company, it.Notes,
	}
}

// escapeLike makes q safe to embed in a LIKE pattern using '\' as escape.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// List returns items matching filter in insertion order.
func (r *SQLInventoryRepository) List(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItem, error) {
	q := r.dialect.builder().
		Select(inventoryColumns...).
		From(inventoryTable).
		OrderBy("item_id")

	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		likeExpr := `%s LIKE ? ESCAPE '\'`
		if r.dialect.Name == MySQL.Name {
			likeExpr = `%s LIKE ? ESCAPE '\\'`
		}
		q = q.Where(sq.Or{
			sq.Expr(fmt.Sprintf(likeExpr, "part_number"), pattern),
			sq.Expr(fmt.Sprintf(likeExpr, "description"), pattern),
			sq.Expr(fmt.Sprintf(likeExpr, "vendor"), pattern),
		})
	}
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Subteam != "" {
		q = q.Where(sq.Eq{"subteam": filter.Subteam})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	items := []model.InventoryItem{}
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// GetByID returns a single item.
func (r *SQLInventoryRepository) GetByID(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return r.getByID(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *SQLInventoryRepository) getByID(ctx context.Context, db queryer, id int64) (*model.InventoryItem, error) {
	sqlStr, args, err := r.dialect.builder().
		Select(inventoryColumns...).
		From(inventoryTable).
		Where(sq.Eq{"item_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	it, err := scanInventoryItem(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return it, nil
}

// UpsertByPartNumber runs the find-merge-write cycle in one transaction.
// The bool result is true when a new row was inserted.
func (r *SQLInventoryRepository) UpsertByPartNumber(ctx context.Context, partNumber string, merge MergeFunc) (*model.InventoryItem, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sqlStr, args, err := r.dialect.builder().
		Select(inventoryColumns...).
		From(inventoryTable).
		Where(sq.Eq{"part_number": partNumber}).
		OrderBy("item_id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, false, err
	}

	existing, err := scanInventoryItem(tx.QueryRowContext(ctx, sqlStr, args...))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up part %s: %w", partNumber, err)
	}

	item := merge(existing)
	created := existing == nil

	if created {
		ins := r.dialect.builder().
			Insert(inventoryTable).
			Columns(inventoryColumns[1:]...).
			Values(inventoryValues(item)...)
		id, err := insertReturningID(ctx, tx, r.dialect, ins, "item_id")
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert inventory item: %w", err)
		}
		item.ID = id
	} else {
		set := make(map[string]interface{}, len(inventoryColumns)-1)
		values := inventoryValues(item)
		for i, col := range inventoryColumns[1:] {
			set[col] = values[i]
		}
		sqlStr, args, err := r.dialect.builder().
			Update(inventoryTable).
			SetMap(set).
			Where(sq.Eq{"item_id": existing.ID}).
			ToSql()
		if err != nil {
			return nil, false, err
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return nil, false, fmt.Errorf("failed to update inventory item: %w", err)
		}
		item.ID = existing.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, created, nil
}

// Update writes the supplied columns of item id.
func (r *SQLInventoryRepository) Update(ctx context.Context, id int64, upd model.InventoryItemUpdate, now time.Time) (*model.InventoryItem, error) {
	set := upd.Columns()
	set["updated_at"] = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.getByID(ctx, tx, id); err != nil {
		return nil, err
	}

	sqlStr, args, err := r.dialect.builder().
		Update(inventoryTable).
		SetMap(set).
		Where(sq.Eq{"item_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}

	item, err := r.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, nil
}

// Delete removes an item by id.
func (r *SQLInventoryRepository) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := r.dialect.builder().
		Delete(inventoryTable).
		Where(sq.Eq{"item_id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrInventoryItemNotFound
	}
	return nil
}

// Count returns the number of items.
func (r *SQLInventoryRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, r.dialect, inventoryTable)
}

// Clear removes every item.
func (r *SQLInventoryRepository) Clear(ctx context.Context) (int64, error) {
	n, err := deleteAll(ctx, r.db, r.dialect, inventoryTable)
	if err != nil {
		return 0, err
	}
	r.log.Warn("inventory store cleared", zap.Int64("rows", n))
	return n, nil
}

// Ping checks the pool.
func (r *SQLInventoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Describe reports where the store lives.
func (r *SQLInventoryRepository) Describe() model.StoreInfo {
	return model.StoreInfo{Name: "inventory", Driver: r.dialect.Name, Location: r.location}
}

// Close closes the database connection.
func (r *SQLInventoryRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLInventoryRepository implements InventoryRepository
var _ InventoryRepository = (*SQLInventoryRepository)(nil)
