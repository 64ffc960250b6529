// Package database is the warehouse boundary: driver routing, the
// pass-through batch read, and the transactional score append.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"time-to-shop/pkg/models"
	"time-to-shop/pkg/schema"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Warehouse wraps the opened connection with the driver identity,
// which decides placeholder syntax for the append.
type Warehouse struct {
	DB     *sql.DB
	Driver string // "mysql", "postgres" or "sqlite"
}

// Open routes a DSN by scheme: mariadb:// and mysql:// to the MySQL
// driver (URL form converted to the driver's native DSN), postgres://
// to pq, sqlite:// to the embedded file driver. Anything else is
// passed to the MySQL driver unchanged.
func Open(dsn string) (*Warehouse, error) {
	driver := "mysql"
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		driver = "postgres"
	case strings.HasPrefix(dsn, "sqlite://"):
		driver = "sqlite"
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://"):
		converted, err := toMySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = converted
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Warehouse{DB: db, Driver: driver}, nil
}

// Close releases the underlying pool.
func (w *Warehouse) Close() error { return w.DB.Close() }

func toMySQLDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pw, _ := u.User.Password()
		pass = pw
	}
	host := u.Host
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || db == "" {
		return "", fmt.Errorf("incomplete dsn (user/host/db)")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
		user, pass, host, db), nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// FetchTable runs the pass-through query and materializes the whole
// result set. The read is all-or-nothing: a scan or iteration error
// returns no table at all.
func (w *Warehouse) FetchTable(ctx context.Context, query string) (models.Table, error) {
	rows, err := w.DB.QueryContext(ctx, query)
	if err != nil {
		return models.Table{}, fmt.Errorf("source read: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return models.Table{}, fmt.Errorf("source read: %w", err)
	}

	t := models.Table{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return models.Table{}, fmt.Errorf("source read: %w", err)
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, fmt.Errorf("source read: %w", err)
	}
	return t, nil
}

// EnsureOutputTable creates the 4-column sink table when absent.
func (w *Warehouse) EnsureOutputTable(ctx context.Context, table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid output table name %q", table)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s BIGINT NOT NULL,
		%s TIMESTAMP NOT NULL,
		%s INTEGER NOT NULL,
		%s DOUBLE PRECISION NOT NULL
	)`, table,
		schema.OutColCustomerID, schema.OutColPreviousPurchase,
		schema.OutColDecile, schema.OutColP)
	if _, err := w.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure output table: %w", err)
	}
	return nil
}

// AppendScores appends the batch inside a single transaction. Any row
// failure rolls back the whole write; the sink never sees a partial
// batch.
func (w *Warehouse) AppendScores(ctx context.Context, table string, recs []models.ScoredRecord) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid output table name %q", table)
	}

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink write: %w", err)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(schema.OutputColumns, ", "),
		w.placeholders(len(schema.OutputColumns)))

	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, stmt,
			r.CustomerID, r.PreviousPurchase, r.Decile, r.Probability); err != nil {
			tx.Rollback()
			return fmt.Errorf("sink write: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sink write: %w", err)
	}
	return nil
}

func (w *Warehouse) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if w.Driver == "postgres" {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}
