// Package sqlite persists installment records in a SQLite database whose
// schema is managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"

	_ "modernc.org/sqlite"
)

const (
	selectAll = `SELECT purchase_date, reason, payee, method, installment_count,
       total_cents, installment_index, amount_cents, due_year, due_month
FROM installments
ORDER BY id`

	deleteAll = `DELETE FROM installments`

	insertOne = `INSERT INTO installments (
    purchase_date, reason, payee, method, installment_count,
    total_cents, installment_index, amount_cents, due_year, due_month
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.Store    = (*Repository)(nil)
	_ store.Appender = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Load(ctx context.Context) ([]core.Installment, error) {
	rows, err := r.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, store.ReadError("query installments", err)
	}
	defer rows.Close()

	out := []core.Installment{}
	for rows.Next() {
		var (
			date string
			rec  core.Installment
		)
		if err := rows.Scan(&date, &rec.Reason, &rec.Payee, &rec.Method, &rec.Count,
			&rec.Total.Cents, &rec.Index, &rec.Amount.Cents, &rec.Due.Year, &rec.Due.Month); err != nil {
			return nil, store.ReadError("scan installment", err)
		}
		if t, err := time.Parse("2006-01-02", date); err == nil {
			rec.PurchaseDate = core.DateOf(t)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.ReadError("iterate installments", err)
	}
	return out, nil
}

// Save replaces the table contents in a single transaction.
func (r *Repository) Save(ctx context.Context, recs []core.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WriteError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteAll); err != nil {
		return store.WriteError("clear installments", err)
	}
	if err := insert(ctx, tx, recs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return store.WriteError("commit", err)
	}

	slog.InfoContext(ctx, "Installments saved to SQLite", "records", len(recs))
	return nil
}

// Append inserts recs without touching existing rows.
func (r *Repository) Append(ctx context.Context, recs []core.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WriteError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := insert(ctx, tx, recs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return store.WriteError("commit", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, recs []core.Installment) error {
	stmt, err := tx.PrepareContext(ctx, insertOne)
	if err != nil {
		return store.WriteError("prepare insert", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.PurchaseDate.String(), rec.Reason, rec.Payee, rec.Method, rec.Count,
			rec.Total.Cents, rec.Index, rec.Amount.Cents, rec.Due.Year, rec.Due.Month,
		); err != nil {
			return store.WriteError("insert installment", err)
		}
	}
	return nil
}
