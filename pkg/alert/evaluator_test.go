package alert

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/mail"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = user.WithUser(context.Background(), user.User{
	Id:          1,
	DisplayName: "Jo",
	Email:       "jo@example.com",
	Settings:    user.Settings{WeekFirstDay: time.Monday},
})

var transactionRepoStub = transaction.NewStubRepo()

var evaluator *Evaluator

// asOf keeps every test inside March 2024.
var asOf = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) func() {
	evaluator = NewEvaluator(transactionRepoStub)
	return func() {
		t.Log("Teardown after test")
		transactionRepoStub.Cleanup()
	}
}

func spend(t *testing.T, amount float64, category string, date time.Time) {
	t.Helper()
	_, err := transactionRepoStub.Store(ctx, 1, transaction.Transaction{
		Amount:   amount,
		Type:     transaction.Expense,
		Category: category,
		Date:     date,
	})
	require.NoError(t, err)
}

func foodBudget(amount float64, threshold float64) budget.Budget {
	return budget.Budget{
		ID:            7,
		Category:      "Food",
		Amount:        amount,
		Period:        period.Monthly,
		Notifications: budget.Notifications{Enabled: true, Threshold: threshold},
		IsActive:      true,
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	t.Run("should report warning status above 80 percent", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 410, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		evaluation, err := evaluator.Evaluate(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 410.0, evaluation.TotalSpent)
		assert.Equal(t, 82.0, evaluation.PercentageUsed)
		assert.Equal(t, 90.0, evaluation.Remaining)
		assert.Equal(t, budget.StatusWarning, evaluation.Status)
	})

	t.Run("should report exceeded status with negative remaining", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 520, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		evaluation, err := evaluator.Evaluate(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 104.0, evaluation.PercentageUsed)
		assert.Equal(t, -20.0, evaluation.Remaining)
		assert.Equal(t, budget.StatusExceeded, evaluation.Status)
	})

	t.Run("should ignore spending outside the period and in other categories", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 100, "Food", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC))
		spend(t, 100, "Transport", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		spend(t, 50, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		evaluation, err := evaluator.Evaluate(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 50.0, evaluation.TotalSpent)
		assert.Equal(t, budget.StatusGood, evaluation.Status)
	})

	t.Run("should treat a zero-amount budget with spending as exceeded", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 1, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		evaluation, err := evaluator.Evaluate(ctx, foodBudget(0, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 100.0, evaluation.PercentageUsed)
		assert.Equal(t, budget.StatusExceeded, evaluation.Status)
	})

	t.Run("should treat a zero-amount budget with no spending as exceeded", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		evaluation, err := evaluator.Evaluate(ctx, foodBudget(0, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 100.0, evaluation.PercentageUsed)
		assert.Equal(t, budget.StatusExceeded, evaluation.Status)
		assert.Zero(t, evaluation.TotalSpent)
	})
}

func TestEvaluator_CheckAlert(t *testing.T) {
	t.Run("should fire a warning alert at the threshold", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 410, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		alert, fired, err := evaluator.CheckAlert(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		require.True(t, fired)
		assert.Equal(t, LevelWarning, alert.Level)
		assert.Equal(t, "Budget alert: 82% used for Food", alert.Message)
	})

	t.Run("should fire a danger alert when exceeded", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 520, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		alert, fired, err := evaluator.CheckAlert(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		require.True(t, fired)
		assert.Equal(t, LevelDanger, alert.Level)
		assert.Equal(t, "Budget exceeded for Food", alert.Message)
	})

	t.Run("should stay quiet below the threshold", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 100, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		_, fired, err := evaluator.CheckAlert(ctx, foodBudget(500, 80), asOf)

		// then
		assert.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("should stay quiet when notifications are disabled", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 520, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		b := foodBudget(500, 80)
		b.Notifications.Enabled = false

		// when
		_, fired, err := evaluator.CheckAlert(ctx, b, asOf)

		// then
		assert.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("should stay quiet for an inactive budget", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 520, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		b := foodBudget(500, 80)
		b.IsActive = false

		// when
		_, fired, err := evaluator.CheckAlert(ctx, b, asOf)

		// then
		assert.NoError(t, err)
		assert.False(t, fired)
	})
}

func TestNotifier(t *testing.T) {
	t.Run("should email the owner when an expense crosses the threshold", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		budgetRepoStub := budget.NewStubRepo()
		_, err := budgetRepoStub.Store(ctx, 1, foodBudget(500, 80))
		require.NoError(t, err)

		mailer := &mail.NoopMailer{}
		bus := event_bus.NewEventBus()
		notifier := NewNotifier(budgetRepoStub, evaluator, mailer, "http://localhost:8282")
		notifier.Register(bus)

		spend(t, 450, "Food", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

		// when
		err = bus.Publish(event_bus.NewEvent(ctx, event_bus.TransactionCreated, transaction.Transaction{
			Amount:   450,
			Type:     transaction.Expense,
			Category: "Food",
			Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		}))

		// then
		assert.NoError(t, err)
		require.Len(t, mailer.Sent, 1)
		assert.Equal(t, "jo@example.com", mailer.Sent[0].To)
		assert.Equal(t, "Budget alert for Food", mailer.Sent[0].Subject)
		assert.Contains(t, mailer.Sent[0].HTML, "Budget alert: 90% used for Food")
		assert.Contains(t, mailer.Sent[0].HTML, "March 2024")
	})

	t.Run("should not email when no budget covers the category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		mailer := &mail.NoopMailer{}
		bus := event_bus.NewEventBus()
		notifier := NewNotifier(budget.NewStubRepo(), evaluator, mailer, "http://localhost:8282")
		notifier.Register(bus)

		// when
		err := bus.Publish(event_bus.NewEvent(ctx, event_bus.TransactionCreated, transaction.Transaction{
			Amount:   450,
			Type:     transaction.Expense,
			Category: "Food",
			Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		}))

		// then
		assert.NoError(t, err)
		assert.Empty(t, mailer.Sent)
	})
}
