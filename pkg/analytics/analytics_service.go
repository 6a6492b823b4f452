package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	"golang.org/x/sync/errgroup"
)

// SpendReader is the slice of the transaction store the aggregations need.
type SpendReader interface {
	FindInRange(ctx context.Context, userId int, r period.Range, txType transaction.Type, category string) ([]transaction.Transaction, error)
}

type Service interface {
	MonthlySummary(ctx context.Context, year int, month time.Month) (MonthlySummary, error)
	CategorySpending(ctx context.Context, startDate, endDate *time.Time, txType transaction.Type) ([]CategorySpend, error)
	SpendingTrends(ctx context.Context, months int, txType transaction.Type) ([]TrendPoint, error)
	FinancialHealth(ctx context.Context) (FinancialHealth, error)
	NetWorth(ctx context.Context, months int) ([]NetWorthPoint, error)
	YearlyOverview(ctx context.Context, year int) (YearlyOverview, error)
	TopExpenses(ctx context.Context, startDate, endDate *time.Time, limit int) ([]transaction.Transaction, error)
	IncomeVsExpense(ctx context.Context, granularity period.Period, months int) ([]ComparisonPoint, error)
	CashFlow(ctx context.Context, startDate, endDate *time.Time) ([]CashFlowPoint, error)
	DashboardSummary(ctx context.Context, year int, month time.Month) (DashboardSummary, error)
}

type ServiceImpl struct {
	spend SpendReader
	clock utils.Clock
}

func NewService(spend SpendReader, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{spend: spend, clock: clock}
}

func (s *ServiceImpl) MonthlySummary(ctx context.Context, year int, month time.Month) (MonthlySummary, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("failed to get current user: %w", err)
	}

	window := period.Month(year, month, s.clock.Now().Location())
	transactions, err := s.spend.FindInRange(ctx, userId, window, "", "")
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{
		Month:             period.Label(period.Monthly, window.Start),
		CategoryBreakdown: []CategoryAmount{},
		Period:            window,
	}
	byCategory := map[string]float64{}
	for _, tx := range transactions {
		if tx.Type == transaction.Income {
			summary.Income += tx.Amount
			continue
		}
		summary.Expenses += tx.Amount
		byCategory[tx.Category] += tx.Amount
	}
	summary.NetBalance = summary.Income - summary.Expenses

	for category, amount := range byCategory {
		summary.CategoryBreakdown = append(summary.CategoryBreakdown, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(summary.CategoryBreakdown, func(i, j int) bool {
		return summary.CategoryBreakdown[i].Amount > summary.CategoryBreakdown[j].Amount
	})

	return summary, nil
}

func (s *ServiceImpl) CategorySpending(ctx context.Context, startDate, endDate *time.Time, txType transaction.Type) ([]CategorySpend, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if txType == "" {
		txType = transaction.Expense
	}

	window := s.window(startDate, endDate)
	transactions, err := s.spend.FindInRange(ctx, userId, window, txType, "")
	if err != nil {
		return nil, err
	}

	grouped := map[string][]transaction.Transaction{}
	for _, tx := range transactions {
		grouped[tx.Category] = append(grouped[tx.Category], tx)
	}

	result := make([]CategorySpend, 0, len(grouped))
	for category, txs := range grouped {
		summary := transaction.Summarize(txs)
		result = append(result, CategorySpend{
			Category:         category,
			TotalAmount:      summary.TotalSpent,
			TransactionCount: summary.TransactionCount,
			AverageAmount:    summary.AverageAmount,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TotalAmount > result[j].TotalAmount })
	return result, nil
}

func (s *ServiceImpl) SpendingTrends(ctx context.Context, months int, txType transaction.Type) ([]TrendPoint, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if months <= 0 {
		months = 6
	}
	if txType == "" {
		txType = transaction.Expense
	}

	points := make([]TrendPoint, 0, months+1)
	for _, window := range period.LastMonths(months, s.clock.Now()) {
		transactions, err := s.spend.FindInRange(ctx, userId, window, txType, "")
		if err != nil {
			return nil, err
		}
		summary := transaction.Summarize(transactions)
		points = append(points, TrendPoint{
			Period:           period.ShortMonthLabel(window.Start),
			TotalAmount:      summary.TotalSpent,
			TransactionCount: summary.TransactionCount,
		})
	}
	return points, nil
}

func (s *ServiceImpl) FinancialHealth(ctx context.Context) (FinancialHealth, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return FinancialHealth{}, fmt.Errorf("failed to get current user: %w", err)
	}

	now := s.clock.Now()
	currentWindow := period.Month(now.Year(), now.Month(), now.Location())
	lastStart := currentWindow.Start.AddDate(0, -1, 0)
	lastWindow := period.Month(lastStart.Year(), lastStart.Month(), now.Location())

	var current, last MonthTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.monthTotals(gctx, userId, currentWindow)
		return err
	})
	g.Go(func() error {
		var err error
		last, err = s.monthTotals(gctx, userId, lastWindow)
		return err
	})
	if err := g.Wait(); err != nil {
		return FinancialHealth{}, err
	}

	health := FinancialHealth{CurrentMonth: current, LastMonth: last}
	if current.Income > 0 {
		health.SavingsRate = (current.Income - current.Expense) / current.Income * 100
	}
	if last.Expense > 0 {
		health.ExpenseGrowth = (current.Expense - last.Expense) / last.Expense * 100
	}
	if last.Income > 0 {
		health.IncomeGrowth = (current.Income - last.Income) / last.Income * 100
	}
	health.FinancialHealth = RatingFor(health.SavingsRate)
	return health, nil
}

func (s *ServiceImpl) NetWorth(ctx context.Context, months int) ([]NetWorthPoint, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if months <= 0 {
		months = 12
	}

	var cumulative float64
	points := make([]NetWorthPoint, 0, months+1)
	for _, window := range period.LastMonths(months, s.clock.Now()) {
		totals, err := s.monthTotals(ctx, userId, window)
		if err != nil {
			return nil, err
		}
		net := totals.Income - totals.Expense
		cumulative += net
		points = append(points, NetWorthPoint{
			Period:             period.ShortMonthLabel(window.Start),
			Income:             totals.Income,
			Expense:            totals.Expense,
			Net:                net,
			CumulativeNetWorth: cumulative,
		})
	}
	return points, nil
}

func (s *ServiceImpl) YearlyOverview(ctx context.Context, year int) (YearlyOverview, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return YearlyOverview{}, fmt.Errorf("failed to get current user: %w", err)
	}

	overview := YearlyOverview{Year: year, Months: make([]TrendMonth, 0, 12)}
	for month := time.January; month <= time.December; month++ {
		window := period.Month(year, month, s.clock.Now().Location())
		totals, err := s.monthTotals(ctx, userId, window)
		if err != nil {
			return YearlyOverview{}, err
		}
		overview.Months = append(overview.Months, TrendMonth{
			Month:   period.ShortMonthLabel(window.Start),
			Income:  totals.Income,
			Expense: totals.Expense,
			Net:     totals.Income - totals.Expense,
		})
		overview.TotalIncome += totals.Income
		overview.TotalExpenses += totals.Expense
	}
	overview.NetBalance = overview.TotalIncome - overview.TotalExpenses
	return overview, nil
}

func (s *ServiceImpl) TopExpenses(ctx context.Context, startDate, endDate *time.Time, limit int) ([]transaction.Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if limit <= 0 {
		limit = 10
	}

	window := s.window(startDate, endDate)
	transactions, err := s.spend.FindInRange(ctx, userId, window, transaction.Expense, "")
	if err != nil {
		return nil, err
	}

	sort.Slice(transactions, func(i, j int) bool { return transactions[i].Amount > transactions[j].Amount })
	if len(transactions) > limit {
		transactions = transactions[:limit]
	}
	return transactions, nil
}

// IncomeVsExpense compares in- and outflows over the last months, bucketed
// by the requested granularity. Months that share a quarter or year fold
// into one point.
func (s *ServiceImpl) IncomeVsExpense(ctx context.Context, granularity period.Period, months int) ([]ComparisonPoint, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if granularity == "" {
		granularity = period.Monthly
	}
	if months <= 0 {
		months = 12
	}

	points := make([]ComparisonPoint, 0, months+1)
	for _, window := range period.LastMonths(months, s.clock.Now()) {
		totals, err := s.monthTotals(ctx, userId, window)
		if err != nil {
			return nil, err
		}

		label := period.ShortMonthLabel(window.Start)
		if granularity != period.Monthly {
			label = period.Label(granularity, window.Start)
		}
		if n := len(points); n > 0 && points[n-1].Period == label {
			points[n-1].Income += totals.Income
			points[n-1].Expense += totals.Expense
			points[n-1].Net += totals.Income - totals.Expense
			continue
		}
		points = append(points, ComparisonPoint{
			Period:  label,
			Income:  totals.Income,
			Expense: totals.Expense,
			Net:     totals.Income - totals.Expense,
		})
	}
	return points, nil
}

// CashFlow breaks the window down into daily in- and outflows, oldest first.
// Days without transactions are skipped.
func (s *ServiceImpl) CashFlow(ctx context.Context, startDate, endDate *time.Time) ([]CashFlowPoint, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	window := s.window(startDate, endDate)
	transactions, err := s.spend.FindInRange(ctx, userId, window, "", "")
	if err != nil {
		return nil, err
	}

	byDay := map[string]*CashFlowPoint{}
	for _, tx := range transactions {
		day := tx.Date.Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &CashFlowPoint{Date: day}
			byDay[day] = point
		}
		if tx.Type == transaction.Income {
			point.Income += tx.Amount
		} else {
			point.Expense += tx.Amount
		}
	}

	points := make([]CashFlowPoint, 0, len(byDay))
	for _, point := range byDay {
		point.Net = point.Income - point.Expense
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// DashboardSummary bundles the month's totals, its expense breakdown, and
// the five most recent transactions into one payload.
func (s *ServiceImpl) DashboardSummary(ctx context.Context, year int, month time.Month) (DashboardSummary, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("failed to get current user: %w", err)
	}

	window := period.Month(year, month, s.clock.Now().Location())
	transactions, err := s.spend.FindInRange(ctx, userId, window, "", "")
	if err != nil {
		return DashboardSummary{}, err
	}

	summary := DashboardSummary{CategoryBreakdown: []CategoryAmount{}}
	byCategory := map[string]float64{}
	for _, tx := range transactions {
		if tx.Type == transaction.Income {
			summary.Income += tx.Amount
			continue
		}
		summary.Expenses += tx.Amount
		byCategory[tx.Category] += tx.Amount
	}
	summary.Balance = summary.Income - summary.Expenses

	for category, amount := range byCategory {
		summary.CategoryBreakdown = append(summary.CategoryBreakdown, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(summary.CategoryBreakdown, func(i, j int) bool {
		return summary.CategoryBreakdown[i].Amount > summary.CategoryBreakdown[j].Amount
	})

	sort.Slice(transactions, func(i, j int) bool { return transactions[i].Date.After(transactions[j].Date) })
	if len(transactions) > 5 {
		transactions = transactions[:5]
	}
	summary.Recent = transactions
	return summary, nil
}

func (s *ServiceImpl) monthTotals(ctx context.Context, userId int, window period.Range) (MonthTotals, error) {
	transactions, err := s.spend.FindInRange(ctx, userId, window, "", "")
	if err != nil {
		return MonthTotals{}, err
	}

	var totals MonthTotals
	for _, tx := range transactions {
		if tx.Type == transaction.Income {
			totals.Income += tx.Amount
		} else {
			totals.Expense += tx.Amount
		}
	}
	return totals, nil
}

// window defaults to the current calendar month when no bounds are given.
func (s *ServiceImpl) window(startDate, endDate *time.Time) period.Range {
	now := s.clock.Now()
	window := period.Month(now.Year(), now.Month(), now.Location())
	if startDate != nil {
		window.Start = *startDate
	}
	if endDate != nil {
		window.End = *endDate
	}
	return window
}
