package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	// UncategorizedName labels the catch-all bucket for transactions without a category.
	UncategorizedName = "Sem categoria"
	UncategorizedIcon = "📊"

	MaxDescriptionLength = 200

	dateLayout = "2006-01-02"
)

type (
	TransactionType string

	// Date is a calendar date. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	Category struct {
		ID        string          `json:"id"`
		UserID    string          `json:"user_id,omitempty"`
		Name      string          `json:"name"`
		Icon      string          `json:"icon"`
		Type      TransactionType `json:"type"`
		IsDefault bool            `json:"is_default"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id,omitempty"`
		Type        TransactionType `json:"type"`
		Amount      Amount          `json:"amount"`
		CategoryID  string          `json:"category_id,omitempty"`
		Category    *Category       `json:"categories,omitempty"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	// TransactionPatch carries the fields of an update. Nil fields are left untouched;
	// an empty CategoryID clears the category.
	TransactionPatch struct {
		Type        *TransactionType `json:"type,omitempty"`
		Amount      *Amount          `json:"amount,omitempty"`
		CategoryID  *string          `json:"category_id,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *Date            `json:"date,omitempty"`
	}

	CategoryPatch struct {
		Name *string `json:"name,omitempty"`
		Icon *string `json:"icon,omitempty"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAmountOverflow       = errors.New("amount total overflows")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidDate          = errors.New("invalid date")
	ErrDescriptionTooLong   = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrEmptyName            = errors.New("empty category name")
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Within reports whether d lies in the closed range [start, end].
// A zero bound leaves that side open.
func (d Date) Within(start, end Date) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && d.After(end) {
		return false
	}
	return true
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return nil
}

// Validate checks a transaction before it is written to a store.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	m, err := t.Amount.Money()
	if err != nil {
		return err
	}
	if m.Cents <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// CategoryName returns the joined category name or the catch-all label.
func (t Transaction) CategoryName() string {
	if t.Category != nil && t.Category.Name != "" {
		return t.Category.Name
	}
	return UncategorizedName
}

// CategoryIcon returns the joined category icon or the catch-all icon.
func (t Transaction) CategoryIcon() string {
	if t.Category != nil && t.Category.Icon != "" {
		return t.Category.Icon
	}
	return UncategorizedIcon
}

// Apply returns a copy of t with the patch applied. The result is not validated.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
		if t.Category != nil && t.Category.ID != t.CategoryID {
			t.Category = nil
		}
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// Apply returns a copy of c with the patch applied.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	return c
}
