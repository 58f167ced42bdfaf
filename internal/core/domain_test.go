package core

import (
	"errors"
	"strings"
	"testing"
	"time"
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
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateKeepsCalendarDate(t *testing.T) {
	cases := map[string]Date{
		"2025-05-10":                    NewDate(2025, 5, 10),
		"2025-05-31T23:30:00.000+00:00": NewDate(2025, 5, 31),
		"2025-06-01T00:30:00.000+02:00": NewDate(2025, 6, 1),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if !got.Equal(want.Time) {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
	for _, bad := range []string{"", "2025-5-1", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", bad, err)
		}
	}
}

func TestDateISORoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	got, err := ParseDate(d.ISO())
	if err != nil || !got.Equal(d.Time) {
		t.Fatalf("expected %s, got %s (err=%v)", d, got, err)
	}
}

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		p    Period
		days int
	}{
		{NewPeriod(2025, 5), 31},
		{NewPeriod(2025, 4), 30},
		{NewPeriod(2025, 2), 28},
		{NewPeriod(2024, 2), 29},
	}
	for _, tc := range cases {
		if got := tc.p.Days(); got != tc.days {
			t.Fatalf("%s: expected %d days, got %d", tc.p, tc.days, got)
		}
	}
}

func TestPeriodNavigation(t *testing.T) {
	if got := NewPeriod(2025, 1).Prev(); got != NewPeriod(2024, 12) {
		t.Fatalf("unexpected prev: %s", got)
	}
	if got := NewPeriod(2025, 12).Next(); got != NewPeriod(2026, 1) {
		t.Fatalf("unexpected next: %s", got)
	}
	if err := NewPeriod(2025, 13).Validate(); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestTransactionFieldsValidate(t *testing.T) {
	good := TransactionFields{
		AccountID:  "acc",
		CategoryID: "food",
		Amount:     Money{Cents: 100},
		Date:       NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionFields{
		{CategoryID: "c", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{AccountID: "a", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)},
		{AccountID: "a", CategoryID: "c", Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1)},
		{AccountID: "a", CategoryID: "c", Amount: Money{Cents: 1}},
		{AccountID: "a", CategoryID: "c", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), Note: strings.Repeat("x", 501)},
	}
	for i, f := range bads {
		if err := f.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestTransactionFieldsValidateAgainst(t *testing.T) {
	f := TransactionFields{CategoryID: "salary", IsIncome: false}
	err := f.ValidateAgainst(Category{ID: "salary", Name: "Salary", Type: Income})
	if !errors.Is(err, ErrCategoryMismatch) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected category mismatch, got %v", err)
	}
	f.IsIncome = true
	if err := f.ValidateAgainst(Category{ID: "salary", Name: "Salary", Type: Income}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestAccountFieldsValidate(t *testing.T) {
	if err := (AccountFields{UserID: "u", Name: "Wallet"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (AccountFields{UserID: "u"}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name, got %v", err)
	}
	if err := (AccountFields{Name: "Wallet"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
	if !strings.Contains(UserMessage(ErrEmptyName), "name is required") {
		t.Fatalf("validation message should carry the field error")
	}
	if UserMessage(errors.Join(errors.New("dial"), ErrRemoteUnavailable)) == UserMessage(errors.New("x")) {
		t.Fatalf("remote errors should have a dedicated message")
	}
}
