package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carteira/internal/core"
	"carteira/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

const selectTransactions = `
SELECT t.id, t.user_id, t.type, t.amount, COALESCE(t.category_id, ''), t.description,
       t.date, t.created_at, t.updated_at,
       c.id, c.user_id, c.name, c.icon, c.type, c.is_default
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

const selectCategories = `SELECT id, user_id, name, icon, type, is_default FROM categories`

// SQLiteRepository is a store.Store backed by a local SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) QueryTransactions(ctx context.Context, f store.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	conds := []string{"t.user_id = ?"}
	args := []any{f.UserID}
	if !f.StartDate.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		conds = append(conds, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.MinAmount != nil {
		conds = append(conds, "t.amount_cents >= ?")
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		conds = append(conds, "t.amount_cents <= ?")
		args = append(args, f.MaxAmount.Cents)
	}
	q := selectTransactions + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY t.date DESC, t.created_at DESC, t.id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactions+" WHERE t.id = ? AND t.user_id = ?", id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	return tx, err
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	amount, _ := tx.Amount.Money()
	if err := r.requireCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	tx.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO transactions (id, user_id, type, amount, amount_cents, category_id, description, date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), amount.String(), amount.Cents, nullable(tx.CategoryID),
		tx.Description, tx.Date.String(), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", tx.ID, "type", tx.Type, "amount", amount.String())
	return r.GetTransaction(ctx, tx.UserID, tx.ID)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	cur, err := r.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.requireCategory(ctx, next.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	amount, _ := next.Amount.Money()

	_, err = r.db.ExecContext(ctx, `
UPDATE transactions
SET type = ?, amount = ?, amount_cents = ?, category_id = ?, description = ?, date = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		string(next.Type), amount.String(), amount.Cents, nullable(next.CategoryID), next.Description,
		next.Date.String(), r.now().UTC().Format(timeLayout), id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, q store.CategoryQuery) ([]core.Category, error) {
	if q.Type != "" && !q.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, q.Type)
	}
	query := selectCategories + " WHERE (is_default = 1 OR user_id = ?)"
	args := []any{q.UserID}
	if q.Type != "" {
		query += " AND type = ?"
		args = append(args, string(q.Type))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	store.SortCategories(out)
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, selectCategories+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", id, store.ErrNotFound)
	}
	return c, err
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.IsDefault = false
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, icon, type, is_default) VALUES (?, ?, ?, ?, ?, 0)`,
		c.ID, c.UserID, c.Name, c.Icon, string(c.Type))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
	cur, err := r.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if err := store.CheckMutable(cur, userID); err != nil {
		return core.Category{}, fmt.Errorf("category %q: %w", id, err)
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ? AND user_id = ? AND is_default = 0`,
		next.Name, next.Icon, id, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return next, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	cur, err := r.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := store.CheckMutable(cur, userID); err != nil {
		return fmt.Errorf("category %q: %w", id, err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `UPDATE transactions SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach transactions: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND is_default = 0`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return dbTx.Commit()
}

func (r *SQLiteRepository) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := r.GetCategory(ctx, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                   core.Transaction
		typ, amount, date    string
		createdAt, updatedAt string
		catID, catUser       sql.NullString
		catName, catIcon     sql.NullString
		catType              sql.NullString
		catDefault           sql.NullBool
	)
	err := s.Scan(&tx.ID, &tx.UserID, &typ, &amount, &tx.CategoryID, &tx.Description,
		&date, &createdAt, &updatedAt,
		&catID, &catUser, &catName, &catIcon, &catType, &catDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	tx.Amount = core.Amount(amount)
	if tx.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	tx.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if catID.Valid {
		tx.Category = &core.Category{
			ID:        catID.String,
			UserID:    catUser.String,
			Name:      catName.String,
			Icon:      catIcon.String,
			Type:      core.TransactionType(catType.String),
			IsDefault: catDefault.Bool,
		}
	}
	return tx, nil
}

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var typ string
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &typ, &c.IsDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, err
		}
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
