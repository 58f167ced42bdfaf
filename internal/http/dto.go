package http

import (
	"time"

	"walletsync/internal/core"
	"walletsync/internal/screen"
)

type accountJSON struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	InitialBalanceCents int64     `json:"initial_balance_cents"`
	BalanceCents        int64     `json:"balance_cents"`
	StoredBalanceCents  int64     `json:"stored_balance_cents"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type accountsJSON struct {
	Accounts      []accountJSON `json:"accounts"`
	NetWorthCents int64         `json:"net_worth_cents"`
}

func newAccountJSON(a core.Account, current core.Money) accountJSON {
	return accountJSON{
		ID:                  a.ID,
		Name:                a.Name,
		InitialBalanceCents: a.InitialBalance.Cents,
		BalanceCents:        current.Cents,
		StoredBalanceCents:  a.Balance.Cents,
		AvatarURL:           a.AvatarURL,
		CreatedAt:           a.CreatedAt,
	}
}

func newAccountsJSON(v screen.AccountsView) accountsJSON {
	out := accountsJSON{Accounts: make([]accountJSON, len(v.Accounts)), NetWorthCents: v.NetWorth.Cents}
	for i, a := range v.Accounts {
		out.Accounts[i] = newAccountJSON(a.Account, a.Current)
	}
	return out
}

type accountInput struct {
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
}

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
	Type  string `json:"type"`
}

type transactionJSON struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	CategoryID   string    `json:"category_id"`
	AmountCents  int64     `json:"amount_cents"`
	IsIncome     bool      `json:"is_income"`
	Date         string    `json:"date"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	AccountName  string    `json:"account_name,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
}

func newTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		AmountCents: t.Amount.Cents,
		IsIncome:    t.IsIncome,
		Date:        t.Date.String(),
		Note:        t.Note,
		CreatedAt:   t.CreatedAt,
	}
}

type transactionInput struct {
	AccountID  string `json:"account_id"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	IsIncome   bool   `json:"is_income"`
	Date       string `json:"date"`
	Note       string `json:"note"`
}

type shareJSON struct {
	CategoryID  string  `json:"category_id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon,omitempty"`
	Color       string  `json:"color,omitempty"`
	AmountCents int64   `json:"amount_cents"`
	Percentage  float64 `json:"percentage"`
}

type monthJSON struct {
	Period       string `json:"period"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	NetCents     int64  `json:"net_cents"`
}

type summaryJSON struct {
	monthJSON
	IsIncome      bool        `json:"is_income"`
	DailyIncome   float64     `json:"daily_income"`
	DailyExpense  float64     `json:"daily_expense"`
	WeeklyIncome  float64     `json:"weekly_income"`
	WeeklyExpense float64     `json:"weekly_expense"`
	Count         int         `json:"count"`
	Breakdown     []shareJSON `json:"breakdown"`
	Trend         []monthJSON `json:"trend"`
}

func newSummaryJSON(v screen.AnalysisView) summaryJSON {
	s := v.Summary
	out := summaryJSON{
		monthJSON: monthJSON{
			Period:       v.Period.String(),
			IncomeCents:  s.Income.Cents,
			ExpenseCents: s.Expense.Cents,
			NetCents:     s.Net.Cents,
		},
		IsIncome:      v.IsIncome,
		DailyIncome:   s.DailyIncome,
		DailyExpense:  s.DailyExpense,
		WeeklyIncome:  s.WeeklyIncome,
		WeeklyExpense: s.WeeklyExpense,
		Count:         s.Count,
		Breakdown:     make([]shareJSON, len(v.Breakdown)),
		Trend:         make([]monthJSON, len(v.Trend)),
	}
	for i, b := range v.Breakdown {
		out.Breakdown[i] = shareJSON{
			CategoryID:  b.CategoryID,
			Name:        b.Name,
			Icon:        b.Icon,
			Color:       b.Color,
			AmountCents: b.Amount.Cents,
			Percentage:  b.Percentage,
		}
	}
	for i, m := range v.Trend {
		out.Trend[i] = monthJSON{
			Period:       m.Period.String(),
			IncomeCents:  m.Income.Cents,
			ExpenseCents: m.Expense.Cents,
			NetCents:     m.Net().Cents,
		}
	}
	return out
}
