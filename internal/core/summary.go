package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultRecentLimit is the number of transactions shown as recent activity.
	DefaultRecentLimit = 6
	// AllMonths selects every transaction in FilterByMonth.
	AllMonths = "all"
	// NoCategory is reported as top category when a month has no expenses.
	NoCategory = "—"
)

// Summary holds the all-time totals of a ledger.
type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// Analytics is the month-scoped overview plus the all-time highest expense.
type Analytics struct {
	Month          string          `json:"month"`
	MonthIncome    decimal.Decimal `json:"month_income"`
	MonthExpense   decimal.Decimal `json:"month_expense"`
	TopCategory    string          `json:"top_category"`
	HighestExpense decimal.Decimal `json:"highest_expense"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summarize computes total income, total expense and the balance between them.
func Summarize(l Ledger) Summary {
	var s Summary
	for _, t := range l.Transactions {
		switch t.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// sortedByDate returns a copy of the transactions ordered by date, newest
// first. Equal dates keep insertion order.
func sortedByDate(l Ledger) []Transaction {
	out := append([]Transaction(nil), l.Transactions...)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		switch {
		case a.Date > b.Date:
			return -1
		case a.Date < b.Date:
			return 1
		}
		return 0
	})
	return out
}

// Recent returns at most n transactions, newest first.
func Recent(l Ledger, n int) []Transaction {
	if n <= 0 {
		return []Transaction{}
	}
	out := sortedByDate(l)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthsPresent lists the distinct month keys, most recent first.
func MonthsPresent(l Ledger) []string {
	seen := map[string]struct{}{}
	months := make([]string, 0)
	for _, t := range l.Transactions {
		if _, ok := seen[t.Month]; ok {
			continue
		}
		seen[t.Month] = struct{}{}
		months = append(months, t.Month)
	}
	slices.Sort(months)
	slices.Reverse(months)
	return months
}

// FilterByMonth returns the transactions of month (or every transaction for
// AllMonths), newest first.
func FilterByMonth(l Ledger, month string) []Transaction {
	sorted := sortedByDate(l)
	if month == AllMonths {
		return sorted
	}
	out := make([]Transaction, 0, len(sorted))
	for _, t := range sorted {
		if t.Month == month {
			out = append(out, t)
		}
	}
	return out
}

// ExpensesByCategory aggregates expense amounts of month per category, in
// order of first appearance.
func ExpensesByCategory(l Ledger, month string) []CategoryAmount {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, t := range l.Transactions {
		if t.Type != Expense || t.Month != month {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// AnalyticsFor computes the analytics of the month containing ref. The
// highest expense is taken over all transactions, not just that month.
func AnalyticsFor(l Ledger, ref time.Time) Analytics {
	month := ref.Format("2006-01")
	a := Analytics{Month: month, TopCategory: NoCategory}

	for _, t := range l.Transactions {
		if t.Type == Expense && t.Amount.GreaterThan(a.HighestExpense) {
			a.HighestExpense = t.Amount
		}
		if t.Month != month {
			continue
		}
		switch t.Type {
		case Income:
			a.MonthIncome = a.MonthIncome.Add(t.Amount)
		case Expense:
			a.MonthExpense = a.MonthExpense.Add(t.Amount)
		}
	}

	var top *CategoryAmount
	byCategory := ExpensesByCategory(l, month)
	for i := range byCategory {
		// strict comparison keeps the first category on ties
		if top == nil || byCategory[i].Amount.GreaterThan(top.Amount) {
			top = &byCategory[i]
		}
	}
	if top != nil {
		a.TopCategory = top.Name
	}
	return a
}
