package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/pkg/period"
)

// ErrInvalidBudget wraps every Validate failure so handlers can map bad
// input to a 400 without mistaking store errors for it.
var ErrInvalidBudget = errors.New("invalid budget")

// Status classifies how much of a budget has been consumed.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// StatusFor maps a raw usage percentage to a Status.
func StatusFor(percentageUsed float64) Status {
	switch {
	case percentageUsed >= 100:
		return StatusExceeded
	case percentageUsed >= 80:
		return StatusWarning
	default:
		return StatusGood
	}
}

// Notifications configures threshold alerting for a budget.
type Notifications struct {
	Enabled   bool
	Threshold float64
}

// Budget is a per-category spending limit aligned to a recurring period.
// A user can hold at most one budget per category.
type Budget struct {
	ID            int
	Category      string
	Amount        float64
	Period        period.Period
	StartDate     time.Time
	EndDate       time.Time
	Notifications Notifications
	IsActive      bool
	CreatedAt     time.Time
}

func (b Budget) Validate() error {
	if b.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidBudget)
	}
	if b.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidBudget)
	}
	if _, err := period.Parse(string(b.Period)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	if b.Notifications.Threshold < 0 || b.Notifications.Threshold > 100 {
		return fmt.Errorf("%w: notification threshold must be between 0 and 100", ErrInvalidBudget)
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalidBudget)
	}
	return nil
}

// Evaluation is the outcome of measuring spending against a budget over its
// current period. PercentageUsed is raw and may exceed 100; Remaining goes
// negative once the budget is blown.
type Evaluation struct {
	TotalSpent     float64
	PercentageUsed float64
	Remaining      float64
	Status         Status
	Period         period.Range
}

// Evaluator measures a budget's consumption as of a point in time. The
// implementation lives next to the alerting pipeline, which reads spending
// from the transaction store.
type Evaluator interface {
	Evaluate(ctx context.Context, b Budget, asOf time.Time) (Evaluation, error)
}

// WithStatus pairs a budget with its current evaluation for listing endpoints.
type WithStatus struct {
	Budget     Budget
	Evaluation Evaluation
}
