// Package memory is an in-process store. It is meant for tests, demos and
// single-user local runs; nothing survives a restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/store"

	"github.com/google/uuid"
)

// SeedFile lists extra categories, one per line as "type|name|icon".
const SeedFile = "seed_categories.txt"

type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	newID func() string
	txs   map[string]core.Transaction
	cats  map[string]core.Category
}

type Option func(*Store)

// WithClock sets the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the id generator for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store seeded with the default categories.
func New(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		txs:   make(map[string]core.Transaction),
		cats:  make(map[string]core.Category),
	}
	for _, o := range opts {
		o(s)
	}
	for _, c := range core.DefaultCategories() {
		s.cats[c.ID] = c
	}
	return s
}

// NewFromFiles creates a store and adds the categories listed in base/SeedFile
// as categories of the anonymous user. A missing file is not an error.
func NewFromFiles(base string, opts ...Option) (*Store, error) {
	s := New(opts...)
	for i, line := range readLines(filepath.Join(base, SeedFile)) {
		c, err := parseSeed(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", SeedFile, i+1, err)
		}
		if _, err := s.CreateCategory(context.Background(), c); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", SeedFile, i+1, err)
		}
	}
	return s, nil
}

func parseSeed(line string) (core.Category, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Category{}, fmt.Errorf("expected type|name|icon, got %q", line)
	}
	typ, err := core.ParseTransactionType(parts[0])
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Type: typ, Name: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		c.Icon = strings.TrimSpace(parts[2])
	}
	return c, nil
}

func (s *Store) QueryTransactions(ctx context.Context, f store.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if f.Matches(tx) {
			out = append(out, s.join(tx))
		}
	}
	store.SortTransactions(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	return s.join(tx), nil
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.CategoryID != "" {
		if _, ok := s.cats[tx.CategoryID]; !ok {
			return core.Transaction{}, fmt.Errorf("category %q: %w", tx.CategoryID, store.ErrNotFound)
		}
	}
	now := s.now().UTC()
	tx.ID = s.newID()
	tx.Category = nil
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs[tx.ID] = tx
	return s.join(tx), nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[id]
	if !ok || cur.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if next.CategoryID != "" {
		if _, ok := s.cats[next.CategoryID]; !ok {
			return core.Transaction{}, fmt.Errorf("category %q: %w", next.CategoryID, store.ErrNotFound)
		}
	}
	next.Category = nil
	next.UpdatedAt = s.now().UTC()
	s.txs[id] = next
	return s.join(next), nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return fmt.Errorf("transaction %q: %w", id, store.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, q store.CategoryQuery) ([]core.Category, error) {
	if q.Type != "" && !q.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, q.Type)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if !store.Visible(c, q.UserID) {
			continue
		}
		if q.Type != "" && c.Type != q.Type {
			continue
		}
		out = append(out, c)
	}
	store.SortCategories(out)
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %q: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	c.IsDefault = false
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %q: %w", id, store.ErrNotFound)
	}
	if err := store.CheckMutable(cur, userID); err != nil {
		return core.Category{}, fmt.Errorf("category %q: %w", id, err)
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}
	s.cats[id] = next
	return next, nil
}

// DeleteCategory removes a user category. Transactions pointing at it become uncategorized.
func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cats[id]
	if !ok {
		return fmt.Errorf("category %q: %w", id, store.ErrNotFound)
	}
	if err := store.CheckMutable(cur, userID); err != nil {
		return fmt.Errorf("category %q: %w", id, err)
	}
	delete(s.cats, id)
	for txID, tx := range s.txs {
		if tx.CategoryID == id {
			tx.CategoryID = ""
			s.txs[txID] = tx
		}
	}
	return nil
}

// join attaches a copy of the referenced category. Callers hold the lock.
func (s *Store) join(tx core.Transaction) core.Transaction {
	tx.Category = nil
	if c, ok := s.cats[tx.CategoryID]; ok && tx.CategoryID != "" {
		cc := c
		tx.Category = &cc
	}
	return tx
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
