package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

type (
	CategoryType string

	// Date is a calendar date. The time of day is always midnight UTC and
	// carries no meaning.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID    string
		Name  string
		Email string
	}

	Account struct {
		ID             string
		UserID         string
		Name           string
		InitialBalance Money // signed
		Balance        Money // stored copy, see CurrentBalance
		AvatarURL      string
		CreatedAt      time.Time
	}

	Category struct {
		ID    string
		Name  string
		Icon  string
		Color string
		Type  CategoryType
	}

	Transaction struct {
		ID         string
		AccountID  string
		CategoryID string
		Amount     Money // always positive, direction is IsIncome
		IsIncome   bool
		Date       Date
		Note       string
		CreatedAt  time.Time
	}

	// TransactionFields is the mutable part of a transaction. Updates replace
	// every field.
	TransactionFields struct {
		AccountID  string
		CategoryID string
		Amount     Money
		IsIncome   bool
		Date       Date
		Note       string
	}

	AccountFields struct {
		UserID         string
		Name           string
		InitialBalance Money
		AvatarURL      string
	}

	// Period is a (year, month) filter key.
	Period struct {
		Year  int
		Month int // 1-12
	}
)

const maxNoteLength = 500

// TypeFor returns the category type matching an income flag.
func TypeFor(isIncome bool) CategoryType {
	if isIncome {
		return Income
	}
	return Expense
}

func (t CategoryType) IsValid() bool {
	return t == Income || t == Expense
}

func (t CategoryType) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf keeps the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate reads the leading YYYY-MM-DD of an ISO-8601 string. Any time or
// offset suffix is ignored, so the stored calendar date is what gets compared.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	t, err := time.Parse(time.DateOnly, s[:10])
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrValidation)
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

// Period returns the (year, month) the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// ISO renders the date the way the document store expects transaction_date.
func (d Date) ISO() string {
	return d.Format("2006-01-02T00:00:00.000+00:00")
}

func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: invalid month %d", ErrValidation, p.Month)
	}
	if p.Year < 1 {
		return fmt.Errorf("%w: invalid year %d", ErrValidation, p.Year)
	}
	return nil
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether d falls in the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: invalid category type %q", ErrValidation, c.Type)
	}
	return nil
}

// Validate checks the fields that can be verified without a round trip.
// The category/flag agreement needs the category and is checked by
// ValidateAgainst.
func (f TransactionFields) Validate() error {
	if strings.TrimSpace(f.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(f.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	if len(f.Note) > maxNoteLength {
		return fmt.Errorf("%w: note too long (max %d characters)", ErrValidation, maxNoteLength)
	}
	return nil
}

// ValidateAgainst checks that the transaction direction matches its category.
func (f TransactionFields) ValidateAgainst(c Category) error {
	if c.ID != f.CategoryID {
		return fmt.Errorf("%w: category %s does not match %s", ErrValidation, c.ID, f.CategoryID)
	}
	if c.Type != TypeFor(f.IsIncome) {
		return fmt.Errorf("%w: %s category %q used for %s transaction",
			ErrCategoryMismatch, c.Type, c.Name, TypeFor(f.IsIncome))
	}
	return nil
}

func (f AccountFields) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return fmt.Errorf("%w: account owner is required", ErrValidation)
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if len(f.Name) > 100 {
		return fmt.Errorf("%w: account name too long (max 100 characters)", ErrValidation)
	}
	return nil
}

// Fields returns the mutable part of the transaction.
func (t Transaction) Fields() TransactionFields {
	return TransactionFields{
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Amount:     t.Amount,
		IsIncome:   t.IsIncome,
		Date:       t.Date,
		Note:       t.Note,
	}
}

// Signed returns the amount with its direction applied.
func (t Transaction) Signed() Money {
	if t.IsIncome {
		return t.Amount
	}
	return Money{Cents: -t.Amount.Cents}
}

func (a Account) Fields() AccountFields {
	return AccountFields{
		UserID:         a.UserID,
		Name:           a.Name,
		InitialBalance: a.InitialBalance,
		AvatarURL:      a.AvatarURL,
	}
}
