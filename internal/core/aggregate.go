package core

import "sort"

// WeeksPerMonth is the mean number of weeks in a month used for weekly
// averages. It is an approximation, not a week-boundary computation.
const WeeksPerMonth = 4.33

// FilterByPeriod keeps the transactions whose calendar date falls in p.
// Input order is preserved.
func FilterByPeriod(txs []Transaction, p Period) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// SumByFlag totals the transactions with the given income flag.
func SumByFlag(txs []Transaction, isIncome bool) Money {
	var total Money
	for _, t := range txs {
		if t.IsIncome == isIncome {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// DailyAverage spreads amount over the days of p, in major units.
func DailyAverage(amount Money, p Period) float64 {
	days := p.Days()
	if days == 0 {
		return 0
	}
	return amount.Major() / float64(days)
}

// WeeklyAverage divides a monthly amount by WeeksPerMonth, in major units.
func WeeklyAverage(amount Money) float64 {
	return amount.Major() / WeeksPerMonth
}

// GroupByCategory builds the breakdown of the transactions with the given
// flag over the categories of the matching type. Transactions whose category
// is unknown or of the other type are ignored. Zero buckets are dropped and
// equal amounts keep category order.
func GroupByCategory(txs []Transaction, cats []Category, isIncome bool) AggregationResult {
	want := TypeFor(isIncome)

	buckets := make([]CategoryShare, 0, len(cats))
	index := make(map[string]int, len(cats))
	for _, c := range cats {
		if c.Type != want {
			continue
		}
		if _, dup := index[c.ID]; dup {
			continue
		}
		index[c.ID] = len(buckets)
		buckets = append(buckets, CategoryShare{
			CategoryID: c.ID,
			Name:       c.Name,
			Icon:       c.Icon,
			Color:      c.Color,
		})
	}

	var total Money
	for _, t := range txs {
		if t.IsIncome != isIncome {
			continue
		}
		i, ok := index[t.CategoryID]
		if !ok {
			continue
		}
		buckets[i].Amount = buckets[i].Amount.Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make(AggregationResult, 0, len(buckets))
	for _, b := range buckets {
		if b.Amount.IsZero() {
			continue
		}
		if !total.IsZero() {
			b.Percentage = float64(b.Amount.Cents) / float64(total.Cents) * 100
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// SummarizeMonth computes income, expense, net and averages for p.
func SummarizeMonth(txs []Transaction, p Period) MonthSummary {
	in := FilterByPeriod(txs, p)
	income := SumByFlag(in, true)
	expense := SumByFlag(in, false)
	return MonthSummary{
		Period:        p,
		Income:        income,
		Expense:       expense,
		Net:           income.Sub(expense),
		DailyIncome:   DailyAverage(income, p),
		DailyExpense:  DailyAverage(expense, p),
		WeeklyIncome:  WeeklyAverage(income),
		WeeklyExpense: WeeklyAverage(expense),
		Count:         len(in),
	}
}

// MonthlyTotals returns twelve buckets, January first, for year.
func MonthlyTotals(txs []Transaction, year int) []MonthTotals {
	out := make([]MonthTotals, 12)
	for i := range out {
		out[i].Period = Period{Year: year, Month: i + 1}
	}
	for _, t := range txs {
		if t.Date.Year() != year {
			continue
		}
		m := &out[t.Date.Month()-1]
		if t.IsIncome {
			m.Income = m.Income.Add(t.Amount)
		} else {
			m.Expense = m.Expense.Add(t.Amount)
		}
	}
	return out
}

// CurrentBalance derives an account balance from its initial balance and
// its transactions. Transactions of other accounts are ignored.
func CurrentBalance(a Account, txs []Transaction) Money {
	balance := a.InitialBalance
	for _, t := range txs {
		if t.AccountID != a.ID {
			continue
		}
		balance = balance.Add(t.Signed())
	}
	return balance
}

// SortNewestFirst orders transactions by date, newest first, then by
// creation time.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
