package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the handful of differences between the SQL backends a
// store can run on.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder sq.PlaceholderFormat
}

var (
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite", Placeholder: sq.Question}
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", Placeholder: sq.Dollar}
	MySQL    = Dialect{Name: "mysql", DriverName: "mysql", Placeholder: sq.Question}
)

// DialectByName resolves a configured store type.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name, "postgresql":
		return Postgres, nil
	case MySQL.Name:
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// returnsID reports whether INSERT ... RETURNING is needed to learn the new
// id; the others expose it through LastInsertId.
func (d Dialect) returnsID() bool {
	return d.Name == Postgres.Name
}

// upsertSuffix turns an INSERT into an insert-or-overwrite keyed on key,
// rewriting columns from the incoming row.
func (d Dialect) upsertSuffix(key string, columns ...string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if d.Name == MySQL.Name {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	if d.Name == MySQL.Name {
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

// OpenSQL opens and pings a pool for dialect d. For SQLite, dsn is a file
// path; its directory is created if missing.
func OpenSQL(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if d.Name == SQLite.Name {
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
			}
		}
		// WAL and a busy timeout so readers don't trip over the single writer.
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_time_format=sqlite", dsn)
	}
	if d.Name == MySQL.Name {
		// DATETIME columns must scan into time.Time.
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name, err)
	}

	switch d.Name {
	case SQLite.Name:
		db.SetMaxOpenConns(1) // SQLite only supports 1 writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}

	return db, nil
}

// execAll runs DDL statements one at a time; the MySQL driver rejects
// multi-statement strings by default.
func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation recognises duplicate-key errors from every driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// insertReturningID executes q and returns the generated key in column idColumn.
func insertReturningID(ctx context.Context, tx *sql.Tx, d Dialect, q sq.InsertBuilder, idColumn string) (int64, error) {
	if d.returnsID() {
		sqlStr, args, err := q.Suffix("RETURNING " + idColumn).ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// deleteAll empties table inside its own transaction.
func deleteAll(ctx context.Context, db *sql.DB, d Dialect, table string) (int64, error) {
	sqlStr, args, err := d.builder().Delete(table).ToSql()
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

func countRows(ctx context.Context, db *sql.DB, d Dialect, table string) (int64, error) {
	sqlStr, args, err := d.builder().Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// redactDSN renders a DSN for logs and admin output without its password.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	if cfg, err := mysql.ParseDSN(dsn); err == nil {
		return cfg.Net + "(" + cfg.Addr + ")/" + cfg.DBName
	}
	return "(dsn)"
}
