package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDate, "case %d", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 2, d.Month())
	assert.Equal(t, 29, d.Day())
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2023-02-29", "05/01/2024", "2024-1-5"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateWithin(t *testing.T) {
	start, end := NewDate(2024, 1, 1), NewDate(2024, 1, 31)
	assert.True(t, NewDate(2024, 1, 1).Within(start, end))
	assert.True(t, NewDate(2024, 1, 31).Within(start, end))
	assert.False(t, NewDate(2023, 12, 31).Within(start, end))
	assert.False(t, NewDate(2024, 2, 1).Within(start, end))
	assert.True(t, NewDate(1999, 1, 1).Within(Date{}, end))
	assert.True(t, NewDate(2999, 1, 1).Within(start, Date{}))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	d := DateOf(time.Date(2024, 3, 1, 23, 30, 0, 0, loc))
	assert.Equal(t, NewDate(2024, 3, 1), d)
	assert.Equal(t, NewDate(2024, 3, 3), d.AddDays(2))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-05"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-10"`), &d))
	assert.Equal(t, NewDate(2024, 1, 10), d)
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
	assert.ErrorIs(t, json.Unmarshal([]byte(`"10/01/2024"`), &d), ErrInvalidDate)
}

func TestParseTransactionType(t *testing.T) {
	typ, err := ParseTransactionType(" Income ")
	require.NoError(t, err)
	assert.Equal(t, Income, typ)

	_, err = ParseTransactionType("transfer")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Amount:      "12.50",
		Description: "ok",
		Date:        NewDate(2025, 1, 1),
	}
	require.NoError(t, good.Validate())

	cases := []struct {
		name   string
		mutate func(*Transaction)
		err    error
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount = "0" }, ErrInvalidAmount},
		{"malformed amount", func(tx *Transaction) { tx.Amount = "doze" }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("á", MaxDescriptionLength+1) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			assert.ErrorIs(t, tx.Validate(), tc.err)
		})
	}
}

func TestTransactionCategoryFallback(t *testing.T) {
	tx := Transaction{}
	assert.Equal(t, UncategorizedName, tx.CategoryName())
	assert.Equal(t, UncategorizedIcon, tx.CategoryIcon())

	tx.Category = &Category{ID: "expense-1", Name: "Alimentação", Icon: "🍽️"}
	assert.Equal(t, "Alimentação", tx.CategoryName())
	assert.Equal(t, "🍽️", tx.CategoryIcon())
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{
		ID:         "t1",
		Type:       Expense,
		Amount:     "10",
		CategoryID: "expense-1",
		Category:   &Category{ID: "expense-1", Name: "Alimentação"},
		Date:       NewDate(2024, 1, 1),
	}
	empty := ""
	amount := Amount("20")
	got := TransactionPatch{Amount: &amount, CategoryID: &empty}.Apply(tx)

	assert.Equal(t, Amount("20"), got.Amount)
	assert.Empty(t, got.CategoryID)
	assert.Nil(t, got.Category)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, Amount("10"), tx.Amount, "original must be untouched")
}

func TestCategoryValidate(t *testing.T) {
	assert.NoError(t, Category{Name: "Pets", Type: Expense}.Validate())
	assert.ErrorIs(t, Category{Name: "  ", Type: Expense}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Category{Name: "Pets", Type: "x"}.Validate(), ErrInvalidType)
}

func TestDefaultCategories(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range DefaultCategories() {
		require.NoError(t, c.Validate())
		assert.True(t, c.IsDefault, c.ID)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, seen, 13)
}
