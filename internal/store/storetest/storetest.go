// Package storetest holds behaviour tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"testing"

	"carteira/internal/core"
	"carteira/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the store contract. newStore must return an empty
// store seeded with the default categories.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("InsertGetJoin", func(t *testing.T) { testInsertGetJoin(t, newStore(t)) })
	t.Run("InsertValidation", func(t *testing.T) { testInsertValidation(t, newStore(t)) })
	t.Run("FilterSemantics", func(t *testing.T) { testFilterSemantics(t, newStore(t)) })
	t.Run("Ownership", func(t *testing.T) { testOwnership(t, newStore(t)) })
	t.Run("UpdateDelete", func(t *testing.T) { testUpdateDelete(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("DefaultCategoriesImmutable", func(t *testing.T) { testDefaultsImmutable(t, newStore(t)) })
}

func insert(t *testing.T, s store.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	got, err := s.InsertTransaction(context.Background(), tx)
	require.NoError(t, err)
	return got
}

func testInsertGetJoin(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := insert(t, s, core.Transaction{
		UserID:      "u1",
		Type:        core.Expense,
		Amount:      "12.34",
		CategoryID:  "expense-1",
		Description: "mercado",
		Date:        core.NewDate(2024, 1, 5),
	})
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.NotNil(t, created.Category)
	assert.Equal(t, "Alimentação", created.Category.Name)

	got, err := s.GetTransaction(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, core.NewDate(2024, 1, 5), got.Date)
	m, err := got.Amount.Money()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), m.Cents)
	require.NotNil(t, got.Category)
	assert.Equal(t, "expense-1", got.Category.ID)

	_, err = s.GetTransaction(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testInsertValidation(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := core.Transaction{UserID: "u1", Type: core.Income, Amount: "1", Date: core.NewDate(2024, 1, 1)}

	bad := base
	bad.Amount = "0"
	_, err := s.InsertTransaction(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	bad = base
	bad.Date = core.Date{}
	_, err = s.InsertTransaction(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	bad = base
	bad.CategoryID = "does-not-exist"
	_, err = s.InsertTransaction(ctx, bad)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFilterSemantics(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{UserID: "u1", Type: core.Income, Amount: "1000", CategoryID: "income-1", Date: core.NewDate(2024, 1, 1)},
		{UserID: "u1", Type: core.Expense, Amount: "300", CategoryID: "expense-1", Date: core.NewDate(2024, 1, 15)},
		{UserID: "u1", Type: core.Expense, Amount: "50.5", CategoryID: "expense-2", Date: core.NewDate(2024, 1, 31)},
		{UserID: "u1", Type: core.Expense, Amount: "20", Date: core.NewDate(2024, 2, 1)},
		{UserID: "u2", Type: core.Expense, Amount: "999", Date: core.NewDate(2024, 1, 10)},
	} {
		insert(t, s, tx)
	}
	lo, hi := core.Cents(5000), core.Cents(30000)

	cases := []struct {
		name   string
		filter store.Filter
		want   []string
	}{
		{"all of user", store.Filter{UserID: "u1"}, []string{"20.00", "50.50", "300.00", "1000.00"}},
		{"inclusive range", store.Filter{UserID: "u1", StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31)}, []string{"50.50", "300.00", "1000.00"}},
		{"open start", store.Filter{UserID: "u1", EndDate: core.NewDate(2024, 1, 15)}, []string{"300.00", "1000.00"}},
		{"type", store.Filter{UserID: "u1", Type: core.Income}, []string{"1000.00"}},
		{"category", store.Filter{UserID: "u1", CategoryID: "expense-2"}, []string{"50.50"}},
		{"amount bounds", store.Filter{UserID: "u1", MinAmount: &lo, MaxAmount: &hi}, []string{"50.50", "300.00"}},
		{"limit keeps newest", store.Filter{UserID: "u1", Limit: 2}, []string{"20.00", "50.50"}},
		{"other user", store.Filter{UserID: "u2"}, []string{"999.00"}},
		{"nobody", store.Filter{UserID: "u3"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.QueryTransactions(ctx, tc.filter)
			require.NoError(t, err)
			amounts := make([]string, 0, len(got))
			for _, tx := range got {
				m, err := tx.Amount.Money()
				require.NoError(t, err)
				amounts = append(amounts, m.String())
			}
			assert.Equal(t, tc.want, amounts)
		})
	}

	_, err := s.QueryTransactions(ctx, store.Filter{StartDate: core.NewDate(2024, 2, 1), EndDate: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, store.ErrInvalidFilter)
}

func testOwnership(t *testing.T, s store.Store) {
	ctx := context.Background()
	tx := insert(t, s, core.Transaction{UserID: "owner", Type: core.Income, Amount: "5", Date: core.NewDate(2024, 1, 1)})

	_, err := s.GetTransaction(ctx, "intruder", tx.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	amount := core.Amount("6")
	_, err = s.UpdateTransaction(ctx, "intruder", tx.ID, core.TransactionPatch{Amount: &amount})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "intruder", tx.ID), store.ErrNotFound)

	_, err = s.GetTransaction(ctx, "owner", tx.ID)
	assert.NoError(t, err)
}

func testUpdateDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	tx := insert(t, s, core.Transaction{UserID: "u1", Type: core.Expense, Amount: "10", CategoryID: "expense-1", Date: core.NewDate(2024, 1, 1)})

	amount := core.Amount("25,75")
	desc := "jantar"
	cat := "expense-4"
	updated, err := s.UpdateTransaction(ctx, "u1", tx.ID, core.TransactionPatch{Amount: &amount, Description: &desc, CategoryID: &cat})
	require.NoError(t, err)
	assert.Equal(t, "jantar", updated.Description)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Lazer", updated.Category.Name)
	m, err := updated.Amount.Money()
	require.NoError(t, err)
	assert.Equal(t, int64(2575), m.Cents)

	clear := ""
	updated, err = s.UpdateTransaction(ctx, "u1", tx.ID, core.TransactionPatch{CategoryID: &clear})
	require.NoError(t, err)
	assert.Empty(t, updated.CategoryID)
	assert.Nil(t, updated.Category)

	zero := core.Amount("0")
	_, err = s.UpdateTransaction(ctx, "u1", tx.ID, core.TransactionPatch{Amount: &zero})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	require.NoError(t, s.DeleteTransaction(ctx, "u1", tx.ID))
	_, err = s.GetTransaction(ctx, "u1", tx.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "u1", tx.ID), store.ErrNotFound)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()

	all, err := s.ListCategories(ctx, store.CategoryQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, all, len(core.DefaultCategories()))

	pets, err := s.CreateCategory(ctx, core.Category{UserID: "u1", Name: " Pets ", Icon: "🐶", Type: core.Expense})
	require.NoError(t, err)
	assert.NotEmpty(t, pets.ID)
	assert.Equal(t, "Pets", pets.Name)
	assert.False(t, pets.IsDefault)

	_, err = s.CreateCategory(ctx, core.Category{UserID: "u1", Name: "", Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	expenses, err := s.ListCategories(ctx, store.CategoryQuery{UserID: "u1", Type: core.Expense})
	require.NoError(t, err)
	names := make([]string, 0, len(expenses))
	for _, c := range expenses {
		assert.Equal(t, core.Expense, c.Type)
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Pets")

	others, err := s.ListCategories(ctx, store.CategoryQuery{UserID: "u2", Type: core.Expense})
	require.NoError(t, err)
	for _, c := range others {
		assert.NotEqual(t, pets.ID, c.ID)
	}

	name := "Bichos"
	renamed, err := s.UpdateCategory(ctx, "u1", pets.ID, core.CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bichos", renamed.Name)
	assert.Equal(t, "🐶", renamed.Icon)

	_, err = s.UpdateCategory(ctx, "u2", pets.ID, core.CategoryPatch{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)

	tx := insert(t, s, core.Transaction{UserID: "u1", Type: core.Expense, Amount: "30", CategoryID: pets.ID, Date: core.NewDate(2024, 1, 2)})
	require.NoError(t, s.DeleteCategory(ctx, "u1", pets.ID))
	_, err = s.GetCategory(ctx, pets.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	orphan, err := s.GetTransaction(ctx, "u1", tx.ID)
	require.NoError(t, err)
	assert.Empty(t, orphan.CategoryID)
	assert.Nil(t, orphan.Category)
}

func testDefaultsImmutable(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, def := range core.DefaultCategories() {
		got, err := s.GetCategory(ctx, def.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
		assert.Equal(t, def.Name, got.Name)

		name := "hacked"
		_, err = s.UpdateCategory(ctx, "", def.ID, core.CategoryPatch{Name: &name})
		assert.ErrorIs(t, err, store.ErrDefaultCategory, def.ID)
		assert.ErrorIs(t, s.DeleteCategory(ctx, "", def.ID), store.ErrDefaultCategory, def.ID)
	}
}
