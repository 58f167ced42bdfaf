package screen

import (
	"sync"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// params guards the user-selected period and income/expense toggle shared
// by the period-based screens.
type params struct {
	mu       sync.Mutex
	period   core.Period
	isIncome bool
}

func (p *params) get() (core.Period, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.period, p.isIncome
}

type AnalysisView struct {
	Period    core.Period
	IsIncome  bool
	Summary   core.MonthSummary
	Breakdown core.AggregationResult
	Trend     []core.MonthTotals
}

// Analysis shows the month summary, the category breakdown of the selected
// flag and the yearly trend.
type Analysis struct {
	*Screen[AnalysisView]
	params params
}

func NewAnalysis(userID string, src Source, bus Subscriber, period core.Period, logger *log.Logger) *Analysis {
	a := &Analysis{params: params{period: period}}
	a.Screen = New("analysis", userID, src, bus, a.compute, logger)
	return a
}

func (a *Analysis) compute(d Data) AnalysisView {
	p, isIncome := a.params.get()
	in := core.FilterByPeriod(d.Transactions, p)
	return AnalysisView{
		Period:    p,
		IsIncome:  isIncome,
		Summary:   core.SummarizeMonth(in, p),
		Breakdown: core.GroupByCategory(in, d.Categories, isIncome),
		Trend:     core.MonthlyTotals(d.Transactions, p.Year),
	}
}

func (a *Analysis) SetPeriod(p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	a.params.mu.Lock()
	a.params.period = p
	a.params.mu.Unlock()
	a.Recompute()
	return nil
}

// PrevPeriod steps back one month. Stepping before year 1 fails and keeps
// the current period.
func (a *Analysis) PrevPeriod() error {
	p, _ := a.params.get()
	return a.SetPeriod(p.Prev())
}

func (a *Analysis) NextPeriod() error {
	p, _ := a.params.get()
	return a.SetPeriod(p.Next())
}

func (a *Analysis) ShowIncome(isIncome bool) {
	a.params.mu.Lock()
	a.params.isIncome = isIncome
	a.params.mu.Unlock()
	a.Recompute()
}

type CategoriesView struct {
	Period   core.Period
	IsIncome bool
	Shares   core.AggregationResult
	Total    core.Money
}

// Categories is the income/expense category breakdown for a month.
type Categories struct {
	*Screen[CategoriesView]
	params params
}

func NewCategories(userID string, src Source, bus Subscriber, period core.Period, logger *log.Logger) *Categories {
	c := &Categories{params: params{period: period}}
	c.Screen = New("categories", userID, src, bus, c.compute, logger)
	return c
}

func (c *Categories) compute(d Data) CategoriesView {
	p, isIncome := c.params.get()
	shares := core.GroupByCategory(core.FilterByPeriod(d.Transactions, p), d.Categories, isIncome)
	return CategoriesView{Period: p, IsIncome: isIncome, Shares: shares, Total: shares.Total()}
}

// Toggle switches between the income and expense breakdown.
func (c *Categories) Toggle() {
	c.params.mu.Lock()
	c.params.isIncome = !c.params.isIncome
	c.params.mu.Unlock()
	c.Recompute()
}

func (c *Categories) SetPeriod(p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params.mu.Lock()
	c.params.period = p
	c.params.mu.Unlock()
	c.Recompute()
	return nil
}

type AccountBalance struct {
	Account core.Account
	Current core.Money // derived
	Drifted bool       // stored balance differs from the derived one
}

type AccountsView struct {
	Accounts []AccountBalance
	NetWorth core.Money
}

type Accounts struct {
	*Screen[AccountsView]
}

func NewAccounts(userID string, src Source, bus Subscriber, logger *log.Logger) *Accounts {
	return &Accounts{Screen: New("accounts", userID, src, bus, computeAccounts, logger)}
}

func computeAccounts(d Data) AccountsView {
	v := AccountsView{Accounts: make([]AccountBalance, 0, len(d.Accounts))}
	for _, a := range d.Accounts {
		cur := core.CurrentBalance(a, d.Transactions)
		v.Accounts = append(v.Accounts, AccountBalance{Account: a, Current: cur, Drifted: cur != a.Balance})
		v.NetWorth = v.NetWorth.Add(cur)
	}
	return v
}

type TransactionItem struct {
	core.Transaction
	AccountName  string
	CategoryName string
}

type TransactionsView struct {
	Period core.Period
	Items  []TransactionItem
}

// Transactions lists a month's transactions, newest first.
type Transactions struct {
	*Screen[TransactionsView]
	params params
}

func NewTransactions(userID string, src Source, bus Subscriber, period core.Period, logger *log.Logger) *Transactions {
	t := &Transactions{params: params{period: period}}
	t.Screen = New("transactions", userID, src, bus, t.compute, logger)
	return t
}

func (t *Transactions) compute(d Data) TransactionsView {
	p, _ := t.params.get()
	accounts := make(map[string]string, len(d.Accounts))
	for _, a := range d.Accounts {
		accounts[a.ID] = a.Name
	}
	cats := make(map[string]string, len(d.Categories))
	for _, c := range d.Categories {
		cats[c.ID] = c.Name
	}
	in := core.FilterByPeriod(d.Transactions, p)
	core.SortNewestFirst(in)
	items := make([]TransactionItem, len(in))
	for i, tx := range in {
		items[i] = TransactionItem{Transaction: tx, AccountName: accounts[tx.AccountID], CategoryName: cats[tx.CategoryID]}
	}
	return TransactionsView{Period: p, Items: items}
}

func (t *Transactions) SetPeriod(p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.params.mu.Lock()
	t.params.period = p
	t.params.mu.Unlock()
	t.Recompute()
	return nil
}

// Contains reports whether transaction id is displayed.
func (v TransactionsView) Contains(id string) bool {
	for _, it := range v.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}
