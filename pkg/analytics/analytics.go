package analytics

import (
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
)

// MonthlySummary is one month's totals with the expense side broken down by
// category.
type MonthlySummary struct {
	Month             string
	Income            float64
	Expenses          float64
	NetBalance        float64
	CategoryBreakdown []CategoryAmount
	Period            period.Range
}

// CategoryAmount is a single category's share of a total.
type CategoryAmount struct {
	Category string
	Amount   float64
}

// CategorySpend aggregates one category over an arbitrary window.
type CategorySpend struct {
	Category         string
	TotalAmount      float64
	TransactionCount int
	AverageAmount    float64
}

// TrendPoint is one month of a chronological series.
type TrendPoint struct {
	Period           string
	TotalAmount      float64
	TransactionCount int
}

// HealthRating buckets a savings rate into a headline judgement.
type HealthRating string

const (
	RatingExcellent        HealthRating = "Excellent"
	RatingGood             HealthRating = "Good"
	RatingFair             HealthRating = "Fair"
	RatingNeedsImprovement HealthRating = "Needs Improvement"
)

// RatingFor maps a savings rate percentage to its rating.
func RatingFor(savingsRate float64) HealthRating {
	switch {
	case savingsRate > 20:
		return RatingExcellent
	case savingsRate > 10:
		return RatingGood
	case savingsRate > 0:
		return RatingFair
	default:
		return RatingNeedsImprovement
	}
}

// FinancialHealth compares the current month against the previous one.
type FinancialHealth struct {
	CurrentMonth    MonthTotals
	LastMonth       MonthTotals
	SavingsRate     float64
	ExpenseGrowth   float64
	IncomeGrowth    float64
	FinancialHealth HealthRating
}

// MonthTotals is the income and expense sum of one month.
type MonthTotals struct {
	Income  float64
	Expense float64
}

// ComparisonPoint is one bucket of the income-vs-expense series. The bucket
// width follows the requested period granularity.
type ComparisonPoint struct {
	Period  string
	Income  float64
	Expense float64
	Net     float64
}

// CashFlowPoint is one day of in- and outflows.
type CashFlowPoint struct {
	Date    string
	Income  float64
	Expense float64
	Net     float64
}

// NetWorthPoint is one month of the cumulative net worth series.
type NetWorthPoint struct {
	Period             string
	Income             float64
	Expense            float64
	Net                float64
	CumulativeNetWorth float64
}

// YearlyOverview is a full year, month by month.
type YearlyOverview struct {
	Year          int
	Months        []TrendMonth
	TotalIncome   float64
	TotalExpenses float64
	NetBalance    float64
}

// TrendMonth is one month of a yearly overview.
type TrendMonth struct {
	Month   string
	Income  float64
	Expense float64
	Net     float64
}

// DashboardSummary is the single payload the dashboard landing page needs:
// one month's totals, its expense breakdown, and the latest transactions.
type DashboardSummary struct {
	Income            float64
	Expenses          float64
	Balance           float64
	CategoryBreakdown []CategoryAmount
	Recent            []transaction.Transaction
}
