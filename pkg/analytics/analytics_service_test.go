package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = user.WithUser(context.Background(), user.User{Id: 1})

var transactionRepoStub = transaction.NewStubRepo()
var clock = &utils.MockClock{FixedNow: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}

var service Service

func setup(t *testing.T) func() {
	service = NewService(transactionRepoStub, clock)
	return func() {
		t.Log("Teardown after test")
		transactionRepoStub.Cleanup()
	}
}

func record(t *testing.T, amount float64, txType transaction.Type, category string, date time.Time) {
	t.Helper()
	_, err := transactionRepoStub.Store(ctx, 1, transaction.Transaction{
		Amount:   amount,
		Type:     txType,
		Category: category,
		Date:     date,
	})
	require.NoError(t, err)
}

func TestServiceImpl_MonthlySummary(t *testing.T) {
	t.Run("should break expenses down by category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 3000, transaction.Income, "Salary", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		record(t, 400, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 150, transaction.Expense, "Transport", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))

		// when
		summary, err := service.MonthlySummary(ctx, 2024, time.March)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "March 2024", summary.Month)
		assert.Equal(t, 3000.0, summary.Income)
		assert.Equal(t, 550.0, summary.Expenses)
		assert.Equal(t, 2450.0, summary.NetBalance)
		require.Len(t, summary.CategoryBreakdown, 2)
		assert.Equal(t, CategoryAmount{Category: "Food", Amount: 400}, summary.CategoryBreakdown[0])
		assert.Equal(t, CategoryAmount{Category: "Transport", Amount: 150}, summary.CategoryBreakdown[1])
	})

	t.Run("should return zeroed summary for an empty month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		summary, err := service.MonthlySummary(ctx, 2024, time.January)

		// then
		assert.NoError(t, err)
		assert.Zero(t, summary.Income)
		assert.Zero(t, summary.Expenses)
		assert.Zero(t, summary.NetBalance)
		assert.Empty(t, summary.CategoryBreakdown)
	})
}

func TestServiceImpl_CategorySpending(t *testing.T) {
	t.Run("should order categories by total descending", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 300, transaction.Expense, "Food", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
		record(t, 250, transaction.Expense, "Rent", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

		// when
		spending, err := service.CategorySpending(ctx, nil, nil, "")

		// then
		assert.NoError(t, err)
		require.Len(t, spending, 2)
		assert.Equal(t, "Food", spending[0].Category)
		assert.Equal(t, 400.0, spending[0].TotalAmount)
		assert.Equal(t, 2, spending[0].TransactionCount)
		assert.Equal(t, 200.0, spending[0].AverageAmount)
		assert.Equal(t, "Rent", spending[1].Category)
	})
}

func TestServiceImpl_SpendingTrends(t *testing.T) {
	t.Run("should return a chronological month series", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
		record(t, 200, transaction.Expense, "Food", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
		record(t, 300, transaction.Expense, "Food", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

		// when
		points, err := service.SpendingTrends(ctx, 2, "")

		// then
		assert.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, TrendPoint{Period: "Jan 2024", TotalAmount: 100, TransactionCount: 1}, points[0])
		assert.Equal(t, TrendPoint{Period: "Feb 2024", TotalAmount: 200, TransactionCount: 1}, points[1])
		assert.Equal(t, TrendPoint{Period: "Mar 2024", TotalAmount: 300, TransactionCount: 1}, points[2])
	})
}

func TestServiceImpl_FinancialHealth(t *testing.T) {
	t.Run("should compute savings rate and growth against last month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 2000, transaction.Income, "Salary", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		record(t, 1000, transaction.Expense, "Rent", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
		record(t, 2200, transaction.Income, "Salary", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		record(t, 1100, transaction.Expense, "Rent", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		health, err := service.FinancialHealth(ctx)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 2200.0, health.CurrentMonth.Income)
		assert.Equal(t, 1100.0, health.CurrentMonth.Expense)
		assert.Equal(t, 50.0, health.SavingsRate)
		assert.InDelta(t, 10.0, health.ExpenseGrowth, 0.001)
		assert.InDelta(t, 10.0, health.IncomeGrowth, 0.001)
		assert.Equal(t, RatingExcellent, health.FinancialHealth)
	})

	t.Run("should rate no income as needing improvement without dividing", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 500, transaction.Expense, "Rent", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		health, err := service.FinancialHealth(ctx)

		// then
		assert.NoError(t, err)
		assert.Zero(t, health.SavingsRate)
		assert.Zero(t, health.ExpenseGrowth)
		assert.Equal(t, RatingNeedsImprovement, health.FinancialHealth)
	})
}

func TestServiceImpl_NetWorth(t *testing.T) {
	t.Run("should accumulate month nets from a zero seed", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given January nets +100, February nets -50, March nets +200
		record(t, 100, transaction.Income, "Salary", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
		record(t, 50, transaction.Expense, "Food", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
		record(t, 300, transaction.Income, "Salary", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

		// when
		points, err := service.NetWorth(ctx, 2)

		// then
		assert.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, 100.0, points[0].CumulativeNetWorth)
		assert.Equal(t, 50.0, points[1].CumulativeNetWorth)
		assert.Equal(t, 250.0, points[2].CumulativeNetWorth)
	})
}

func TestServiceImpl_YearlyOverview(t *testing.T) {
	t.Run("should total twelve months", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 1000, transaction.Income, "Salary", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
		record(t, 400, transaction.Expense, "Rent", time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))

		// when
		overview, err := service.YearlyOverview(ctx, 2024)

		// then
		assert.NoError(t, err)
		require.Len(t, overview.Months, 12)
		assert.Equal(t, 1000.0, overview.Months[0].Income)
		assert.Equal(t, 400.0, overview.Months[5].Expense)
		assert.Equal(t, 1000.0, overview.TotalIncome)
		assert.Equal(t, 400.0, overview.TotalExpenses)
		assert.Equal(t, 600.0, overview.NetBalance)
	})
}

func TestServiceImpl_TopExpenses(t *testing.T) {
	t.Run("should return the largest expenses first", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 900, transaction.Expense, "Rent", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		record(t, 250, transaction.Expense, "Travel", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
		record(t, 5000, transaction.Income, "Salary", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

		// when
		expenses, err := service.TopExpenses(ctx, nil, nil, 2)

		// then
		assert.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, 900.0, expenses[0].Amount)
		assert.Equal(t, 250.0, expenses[1].Amount)
	})
}

func TestServiceImpl_IncomeVsExpense(t *testing.T) {
	t.Run("should compare income and expenses per month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 100, transaction.Income, "Salary", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
		record(t, 40, transaction.Expense, "Food", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
		record(t, 50, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		points, err := service.IncomeVsExpense(ctx, "", 2)

		// then oldest first, empty months included
		assert.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, ComparisonPoint{Period: "Jan 2024", Income: 100, Expense: 40, Net: 60}, points[0])
		assert.Equal(t, ComparisonPoint{Period: "Feb 2024", Income: 0, Expense: 0, Net: 0}, points[1])
		assert.Equal(t, ComparisonPoint{Period: "Mar 2024", Income: 0, Expense: 50, Net: -50}, points[2])
	})

	t.Run("should fold months of the same quarter into one point", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 10, transaction.Income, "Salary", time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC))
		record(t, 20, transaction.Expense, "Food", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

		// when
		points, err := service.IncomeVsExpense(ctx, period.Quarterly, 3)

		// then
		assert.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, ComparisonPoint{Period: "Q4 2023", Income: 10, Expense: 0, Net: 10}, points[0])
		assert.Equal(t, ComparisonPoint{Period: "Q1 2024", Income: 0, Expense: 20, Net: -20}, points[1])
	})
}

func TestServiceImpl_CashFlow(t *testing.T) {
	t.Run("should bucket the current month's flows by day", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 10, transaction.Expense, "Food", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
		record(t, 100, transaction.Income, "Salary", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 30, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 999, transaction.Expense, "Food", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC))

		// when
		points, err := service.CashFlow(ctx, nil, nil)

		// then chronological, February excluded
		assert.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, CashFlowPoint{Date: "2024-03-02", Income: 0, Expense: 10, Net: -10}, points[0])
		assert.Equal(t, CashFlowPoint{Date: "2024-03-05", Income: 100, Expense: 30, Net: 70}, points[1])
	})
}

func TestServiceImpl_DashboardSummary(t *testing.T) {
	t.Run("should bundle totals, breakdown, and recent transactions", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		record(t, 3000, transaction.Income, "Salary", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		record(t, 100, transaction.Expense, "Food", time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
		record(t, 200, transaction.Expense, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		record(t, 150, transaction.Expense, "Transport", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
		record(t, 50, transaction.Expense, "Entertainment", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
		record(t, 25, transaction.Expense, "Food", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))

		// when
		summary, err := service.DashboardSummary(ctx, 2024, time.March)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 3000.0, summary.Income)
		assert.Equal(t, 525.0, summary.Expenses)
		assert.Equal(t, 2475.0, summary.Balance)

		require.Len(t, summary.CategoryBreakdown, 3)
		assert.Equal(t, CategoryAmount{Category: "Food", Amount: 325}, summary.CategoryBreakdown[0])
		assert.Equal(t, CategoryAmount{Category: "Transport", Amount: 150}, summary.CategoryBreakdown[1])
		assert.Equal(t, CategoryAmount{Category: "Entertainment", Amount: 50}, summary.CategoryBreakdown[2])

		require.Len(t, summary.Recent, 5)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), summary.Recent[0].Date)
		assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), summary.Recent[4].Date)
	})

	t.Run("should return zeroed summary for an empty month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		summary, err := service.DashboardSummary(ctx, 2024, time.January)

		// then
		assert.NoError(t, err)
		assert.Zero(t, summary.Income)
		assert.Zero(t, summary.Expenses)
		assert.Zero(t, summary.Balance)
		assert.Empty(t, summary.CategoryBreakdown)
		assert.Empty(t, summary.Recent)
	})
}
