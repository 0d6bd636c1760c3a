// Package postgres is the remote store.Store backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carteira/internal/core"
	"carteira/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectTransactions = `
SELECT t.id, t.user_id, t.type, t.amount::text, COALESCE(t.category_id, ''), t.description,
       to_char(t.date, 'YYYY-MM-DD'), t.created_at, t.updated_at,
       c.id, c.user_id, c.name, c.icon, c.type, c.is_default
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

const selectCategories = `SELECT id, user_id, name, icon, type, is_default FROM categories`

type Repository struct {
	pool *pgxpool.Pool
}

// Options tunes the connection phase.
type Options struct {
	ConnectRetries int
	RetryDelay     time.Duration
}

// NormalizeURL rewrites postgresql:// to postgres://. The sslmode is left to
// the URL, so TLS stays on unless it says sslmode=disable.
func NormalizeURL(url string) string {
	if strings.HasPrefix(url, "postgresql://") {
		url = "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

// New migrates the schema and opens a connection pool, retrying while the
// server is starting up.
func New(ctx context.Context, url string, opts Options) (*Repository, error) {
	url = NormalizeURL(url)
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				break
			}
			pool.Close()
		}
		if attempt >= opts.ConnectRetries {
			return nil, fmt.Errorf("connect to database after %d attempts: %w", attempt, err)
		}
		slog.WarnContext(ctx, "Database not ready, retrying", "attempt", attempt, "delay", opts.RetryDelay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	if err := RunMigrations(url); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) QueryTransactions(ctx context.Context, f store.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	add("t.user_id = $%d", f.UserID)
	if !f.StartDate.IsZero() {
		add("t.date >= $%d::text::date", f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		add("t.date <= $%d::text::date", f.EndDate.String())
	}
	if f.Type != "" {
		add("t.type = $%d", string(f.Type))
	}
	if f.CategoryID != "" {
		add("t.category_id = $%d", f.CategoryID)
	}
	if f.MinAmount != nil {
		add("t.amount >= $%d::text::numeric", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		add("t.amount <= $%d::text::numeric", f.MaxAmount.String())
	}
	q := selectTransactions + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY t.date DESC, t.created_at DESC, t.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
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

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := scanTransaction(r.pool.QueryRow(ctx, selectTransactions+" WHERE t.id = $1 AND t.user_id = $2", id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	return tx, err
}

func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.requireCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	amount, _ := tx.Amount.Money()

	var id string
	err := r.pool.QueryRow(ctx, `
INSERT INTO transactions (user_id, type, amount, category_id, description, date)
VALUES ($1, $2, $3::text::numeric, $4, $5, $6::text::date)
RETURNING id`,
		tx.UserID, string(tx.Type), amount.String(), nullable(tx.CategoryID), tx.Description, tx.Date.String(),
	).Scan(&id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return r.GetTransaction(ctx, tx.UserID, id)
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error) {
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

	_, err = r.pool.Exec(ctx, `
UPDATE transactions
SET type = $1, amount = $2::text::numeric, category_id = $3, description = $4, date = $5::text::date, updated_at = NOW()
WHERE id = $6 AND user_id = $7`,
		string(next.Type), amount.String(), nullable(next.CategoryID), next.Description, next.Date.String(), id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return r.GetTransaction(ctx, userID, id)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, q store.CategoryQuery) ([]core.Category, error) {
	if q.Type != "" && !q.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, q.Type)
	}
	query := selectCategories + " WHERE (is_default OR user_id = $1)"
	args := []any{q.UserID}
	if q.Type != "" {
		query += " AND type = $2"
		args = append(args, string(q.Type))
	}
	rows, err := r.pool.Query(ctx, query, args...)
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

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, selectCategories+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", id, store.ErrNotFound)
	}
	return c, err
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.IsDefault = false
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (user_id, name, icon, type) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.UserID, c.Name, c.Icon, string(c.Type),
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
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
	_, err = r.pool.Exec(ctx,
		`UPDATE categories SET name = $1, icon = $2 WHERE id = $3 AND user_id = $4 AND NOT is_default`,
		next.Name, next.Icon, id, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return next, nil
}

// DeleteCategory removes a user category; the foreign key detaches its transactions.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	cur, err := r.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := store.CheckMutable(cur, userID); err != nil {
		return fmt.Errorf("category %q: %w", id, err)
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND NOT is_default`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (r *Repository) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := r.GetCategory(ctx, id)
	return err
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		tx                      core.Transaction
		typ, amount, date       string
		catID, catUser, catName *string
		catIcon, catType        *string
		catDefault              *bool
	)
	err := row.Scan(&tx.ID, &tx.UserID, &typ, &amount, &tx.CategoryID, &tx.Description,
		&date, &tx.CreatedAt, &tx.UpdatedAt,
		&catID, &catUser, &catName, &catIcon, &catType, &catDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	tx.Amount = core.Amount(amount)
	if tx.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	tx.CreatedAt, tx.UpdatedAt = tx.CreatedAt.UTC(), tx.UpdatedAt.UTC()
	if catID != nil {
		tx.Category = &core.Category{
			ID:        *catID,
			UserID:    deref(catUser),
			Name:      deref(catName),
			Icon:      deref(catIcon),
			Type:      core.TransactionType(deref(catType)),
			IsDefault: catDefault != nil && *catDefault,
		}
	}
	return tx, nil
}

func scanCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	var typ string
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &typ, &c.IsDefault); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Category{}, err
		}
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
