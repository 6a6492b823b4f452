package alert

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
)

// Level grades a fired alert.
type Level string

const (
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Alert is a threshold crossing for a single budget.
type Alert struct {
	BudgetId       int
	Category       string
	Level          Level
	Message        string
	TotalSpent     float64
	PercentageUsed float64
	Remaining      float64
	Period         period.Range
}

// SpendReader is the slice of the transaction store the evaluator needs.
type SpendReader interface {
	FindInRange(ctx context.Context, userId int, r period.Range, txType transaction.Type, category string) ([]transaction.Transaction, error)
}

// Evaluator measures spending against budgets. It is the single place that
// computes usage percentages, so listing, alerting and status endpoints can
// never disagree on the numbers.
type Evaluator struct {
	spend SpendReader
}

func NewEvaluator(spend SpendReader) *Evaluator {
	return &Evaluator{spend: spend}
}

// Evaluate sums the category's expenses over the budget period containing
// asOf. A zero-amount budget leaves no room to spend, so it counts as fully
// exceeded rather than dividing by zero.
func (e *Evaluator) Evaluate(ctx context.Context, b budget.Budget, asOf time.Time) (budget.Evaluation, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return budget.Evaluation{}, fmt.Errorf("failed to get current user: %w", err)
	}

	window := period.Resolve(b.Period, asOf, weekStart(ctx))
	transactions, err := e.spend.FindInRange(ctx, userId, window, transaction.Expense, b.Category)
	if err != nil {
		return budget.Evaluation{}, fmt.Errorf("failed to read spending for category %q: %w", b.Category, err)
	}

	totalSpent := transaction.Summarize(transactions).TotalSpent

	percentageUsed := 100.0
	if b.Amount > 0 {
		percentageUsed = totalSpent / b.Amount * 100
	}

	return budget.Evaluation{
		TotalSpent:     totalSpent,
		PercentageUsed: percentageUsed,
		Remaining:      b.Amount - totalSpent,
		Status:         budget.StatusFor(percentageUsed),
		Period:         window,
	}, nil
}

// CheckAlert evaluates the budget and reports whether an alert fires: the
// budget must be active, have notifications enabled, and its usage must have
// reached the configured threshold.
func (e *Evaluator) CheckAlert(ctx context.Context, b budget.Budget, asOf time.Time) (Alert, bool, error) {
	if !b.IsActive || !b.Notifications.Enabled {
		return Alert{}, false, nil
	}

	evaluation, err := e.Evaluate(ctx, b, asOf)
	if err != nil {
		return Alert{}, false, err
	}
	if evaluation.PercentageUsed < b.Notifications.Threshold {
		return Alert{}, false, nil
	}

	level := LevelWarning
	message := fmt.Sprintf("Budget alert: %d%% used for %s", int(math.Round(evaluation.PercentageUsed)), b.Category)
	if evaluation.PercentageUsed >= 100 {
		level = LevelDanger
		message = fmt.Sprintf("Budget exceeded for %s", b.Category)
	}

	return Alert{
		BudgetId:       b.ID,
		Category:       b.Category,
		Level:          level,
		Message:        message,
		TotalSpent:     evaluation.TotalSpent,
		PercentageUsed: evaluation.PercentageUsed,
		Remaining:      evaluation.Remaining,
		Period:         evaluation.Period,
	}, true, nil
}

// weekStart reads the user's configured first day of week, defaulting to
// Monday when the context carries no user settings.
func weekStart(ctx context.Context) time.Weekday {
	u, err := user.CurrentUser(ctx)
	if err != nil {
		return time.Monday
	}
	return u.Settings.WeekFirstDay
}
