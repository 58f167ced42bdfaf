package core

// CategoryShare is one bucket of a category breakdown.
type CategoryShare struct {
	CategoryID string
	Name       string
	Icon       string
	Color      string
	Amount     Money
	Percentage float64 // 0-100
}

// AggregationResult is a category breakdown sorted by amount, largest first.
type AggregationResult []CategoryShare

// Total returns the sum of all buckets.
func (r AggregationResult) Total() Money {
	var total Money
	for _, s := range r {
		total = total.Add(s.Amount)
	}
	return total
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Period        Period
	Income        Money
	Expense       Money
	Net           Money
	DailyIncome   float64
	DailyExpense  float64
	WeeklyIncome  float64
	WeeklyExpense float64
	Count         int
}

// MonthTotals holds income and expense for one month of a yearly trend.
type MonthTotals struct {
	Period  Period
	Income  Money
	Expense Money
}

// Net returns income minus expense.
func (m MonthTotals) Net() Money {
	return m.Income.Sub(m.Expense)
}
