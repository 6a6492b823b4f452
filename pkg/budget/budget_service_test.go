package budget

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

var repoStub = NewStubRepo()
var spendStub = transaction.NewStubRepo()
var clock = &utils.MockClock{FixedNow: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}

var service Service

// fixedEvaluator returns the same evaluation for every budget.
type fixedEvaluator struct {
	evaluation Evaluation
}

func (f fixedEvaluator) Evaluate(ctx context.Context, b Budget, asOf time.Time) (Evaluation, error) {
	return f.evaluation, nil
}

func setup(t *testing.T) func() {
	service = NewService(repoStub, fixedEvaluator{Evaluation{
		TotalSpent:     410,
		PercentageUsed: 82,
		Remaining:      90,
		Status:         StatusWarning,
		Period:         period.Month(2024, time.March, time.UTC),
	}}, spendStub, clock)
	return func() {
		t.Log("Teardown after test")
		repoStub.Cleanup()
		spendStub.Cleanup()
	}
}

func spend(t *testing.T, amount float64, category string, date time.Time) {
	t.Helper()
	_, err := spendStub.Store(ctx, 1, transaction.Transaction{
		Amount:   amount,
		Type:     transaction.Expense,
		Category: category,
		Date:     date,
	})
	require.NoError(t, err)
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should create a budget with defaults", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})

		// then
		assert.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, period.Monthly, created.Period)
		assert.Equal(t, clock.FixedNow, created.StartDate)
		assert.Equal(t, 80.0, created.Notifications.Threshold)
		assert.True(t, created.IsActive)
	})

	t.Run("should reject a second budget for the same category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		_, err = service.Create(ctx, Budget{Category: "Food", Amount: 300})

		// then
		assert.ErrorIs(t, err, ErrBudgetExists)
	})

	t.Run("should allow the same category for another user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		otherCtx := user.WithUser(context.Background(), user.User{Id: 2})
		_, err = service.Create(otherCtx, Budget{Category: "Food", Amount: 300})

		// then
		assert.NoError(t, err)
	})

	t.Run("should return error when context has no user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Create(context.Background(), Budget{Category: "Food", Amount: 500})

		// then
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get current user")
	})
}

func TestServiceImpl_ToggleActive(t *testing.T) {
	t.Run("should flip the active flag", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		toggled, err := service.ToggleActive(ctx, created.ID)

		// then
		assert.NoError(t, err)
		assert.False(t, toggled.IsActive)

		toggled, err = service.ToggleActive(ctx, created.ID)
		assert.NoError(t, err)
		assert.True(t, toggled.IsActive)
	})

	t.Run("should return not found for a missing budget", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.ToggleActive(ctx, 404)

		// then
		assert.ErrorIs(t, err, ErrBudgetNotFound)
	})
}

func TestServiceImpl_CopyToNewPeriod(t *testing.T) {
	t.Run("should clone into a fresh budget starting now", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Budget{
			Category:  "Food",
			Amount:    500,
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		// when
		clone, err := service.CopyToNewPeriod(ctx, created.ID, "Groceries")

		// then
		assert.NoError(t, err)
		assert.NotEqual(t, created.ID, clone.ID)
		assert.Equal(t, "Groceries", clone.Category)
		assert.Equal(t, 500.0, clone.Amount)
		assert.Equal(t, clock.FixedNow, clone.StartDate)
		assert.True(t, clone.EndDate.IsZero())
		assert.True(t, clone.IsActive)
	})

	t.Run("should conflict when cloning into the same category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		_, err = service.CopyToNewPeriod(ctx, created.ID, "")

		// then
		assert.ErrorIs(t, err, ErrBudgetExists)
	})
}

func TestServiceImpl_GetAllWithStatus(t *testing.T) {
	t.Run("should pair active budgets with their evaluation", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)
		inactive, err := service.Create(ctx, Budget{Category: "Transport", Amount: 100})
		require.NoError(t, err)
		_, err = service.ToggleActive(ctx, inactive.ID)
		require.NoError(t, err)

		// when
		statuses, err := service.GetAllWithStatus(ctx)

		// then
		assert.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, "Food", statuses[0].Budget.Category)
		assert.Equal(t, StatusWarning, statuses[0].Evaluation.Status)
		assert.Equal(t, 82.0, statuses[0].Evaluation.PercentageUsed)
	})
}

func TestServiceImpl_CategoryStatus(t *testing.T) {
	t.Run("should evaluate the category's budget", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		status, err := service.CategoryStatus(ctx, "Food")

		// then
		assert.NoError(t, err)
		assert.Equal(t, 410.0, status.Evaluation.TotalSpent)
		assert.Equal(t, 90.0, status.Evaluation.Remaining)
	})

	t.Run("should return not found when no budget covers the category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.CategoryStatus(ctx, "Travel")

		// then
		assert.ErrorIs(t, err, ErrBudgetNotFound)
	})
}

func TestServiceImpl_Suggestions(t *testing.T) {
	t.Run("should propose budgets from recent spending with a buffer", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given six Food expenses and two Transport expenses since January
		for day := 1; day <= 6; day++ {
			spend(t, 100, "Food", time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC))
		}
		spend(t, 50, "Transport", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
		spend(t, 50, "Transport", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

		// when
		suggestions, err := service.Suggestions(ctx, 3)

		// then highest spending first, averaged over four months (Dec-Mar)
		assert.NoError(t, err)
		require.Len(t, suggestions, 2)

		food := suggestions[0]
		assert.Equal(t, "Food", food.Category)
		assert.Equal(t, 600.0, food.CurrentSpending)
		assert.Equal(t, 150.0, food.AverageMonthly)
		assert.Equal(t, 165.0, food.SuggestedBudget)
		assert.Equal(t, 6, food.TransactionCount)
		assert.Equal(t, "High", food.Confidence)

		transport := suggestions[1]
		assert.Equal(t, "Transport", transport.Category)
		assert.Equal(t, 100.0, transport.CurrentSpending)
		assert.Equal(t, 25.0, transport.AverageMonthly)
		assert.Equal(t, 28.0, transport.SuggestedBudget)
		assert.Equal(t, "Low", transport.Confidence)
	})

	t.Run("should ignore spending outside the window", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		spend(t, 999, "Food", time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC))

		// when
		suggestions, err := service.Suggestions(ctx, 3)

		// then
		assert.NoError(t, err)
		assert.Empty(t, suggestions)
	})
}

func TestServiceImpl_BulkUpsert(t *testing.T) {
	t.Run("should create missing budgets and update existing ones", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, Budget{Category: "Food", Amount: 500})
		require.NoError(t, err)

		// when
		result, err := service.BulkUpsert(ctx, []Budget{
			{Category: "Food", Amount: 650, Notifications: Notifications{Enabled: true, Threshold: 90}},
			{Category: "Travel", Amount: 200},
		})

		// then
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Modified)

		food, err := repoStub.FindByCategory(ctx, 1, "Food")
		require.NoError(t, err)
		assert.Equal(t, 650.0, food.Amount)
		assert.Equal(t, 90.0, food.Notifications.Threshold)

		travel, err := repoStub.FindByCategory(ctx, 1, "Travel")
		require.NoError(t, err)
		assert.Equal(t, 200.0, travel.Amount)
		assert.Equal(t, period.Monthly, travel.Period)
		assert.Equal(t, 80.0, travel.Notifications.Threshold)
	})

	t.Run("should reject an invalid budget in the batch", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.BulkUpsert(ctx, []Budget{{Category: "Food", Amount: -1}})

		// then
		assert.ErrorIs(t, err, ErrInvalidBudget)
	})
}
