package transaction

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/test_utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	container, openDB := test_utils.TestWithDB()
	db = openDB()
	code := m.Run()
	db.Close()
	_ = container.Terminate(context.Background())
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, Repo, int) {
	ctx := test_utils.CreateTestUser(t, db)
	userId, err := user.CurrentId(ctx)
	require.NoError(t, err)
	return ctx, NewRepo(db), userId
}

func sample(date time.Time) Transaction {
	return Transaction{
		Amount:        42.50,
		Type:          Expense,
		Category:      "Food",
		Date:          date,
		Note:          "lunch",
		PaymentMethod: CreditCard,
		Tags:          []string{"work"},
	}
}

func TestRepoImpl_StoreAndFindById(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	date := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	// when
	id, err := repo.Store(ctx, userId, sample(date))
	require.NoError(t, err)

	// then
	stored, err := repo.FindById(ctx, userId, id)
	assert.NoError(t, err)
	assert.Equal(t, 42.50, stored.Amount)
	assert.Equal(t, Expense, stored.Type)
	assert.Equal(t, "Food", stored.Category)
	assert.True(t, stored.Date.Equal(date))
	assert.Equal(t, "lunch", stored.Note)
	assert.Equal(t, CreditCard, stored.PaymentMethod)
	assert.Equal(t, []string{"work"}, stored.Tags)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestRepoImpl_FindById_NotOwner(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	otherCtx := test_utils.CreateTestUser(t, db)
	otherId, err := user.CurrentId(otherCtx)
	require.NoError(t, err)

	id, err := repo.Store(ctx, userId, sample(time.Now().UTC()))
	require.NoError(t, err)

	// when
	_, err = repo.FindById(otherCtx, otherId, id)

	// then
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRepoImpl_Find_Filtering(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)

	groceries := sample(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	groceries.Note = "weekly groceries"
	_, err := repo.Store(ctx, userId, groceries)
	require.NoError(t, err)

	salary := Transaction{
		Amount:   3000,
		Type:     Income,
		Category: "Salary",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = repo.Store(ctx, userId, salary)
	require.NoError(t, err)

	// when filtering by type
	expenses, err := repo.Find(ctx, userId, Filter{Type: Expense})
	require.NoError(t, err)

	// then
	require.Len(t, expenses, 1)
	assert.Equal(t, "Food", expenses[0].Category)

	// when searching the note text
	found, err := repo.Find(ctx, userId, Filter{Search: "grocer"})
	require.NoError(t, err)

	// then
	require.Len(t, found, 1)
	assert.Equal(t, "weekly groceries", found[0].Note)

	// when searching a tag
	tagged, err := repo.Find(ctx, userId, Filter{Search: "work"})
	require.NoError(t, err)

	// then
	require.Len(t, tagged, 1)
}

func TestRepoImpl_Find_Pagination(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	for day := 1; day <= 5; day++ {
		_, err := repo.Store(ctx, userId, sample(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
	}

	// when
	firstPage, err := repo.Find(ctx, userId, Filter{SortBy: "date", SortOrder: "asc", Limit: 2, Page: 1})
	require.NoError(t, err)
	secondPage, err := repo.Find(ctx, userId, Filter{SortBy: "date", SortOrder: "asc", Limit: 2, Page: 2})
	require.NoError(t, err)
	total, err := repo.Count(ctx, userId, Filter{})
	require.NoError(t, err)

	// then
	require.Len(t, firstPage, 2)
	require.Len(t, secondPage, 2)
	assert.Equal(t, 5, total)
	assert.True(t, firstPage[1].Date.Before(secondPage[0].Date))
}

func TestRepoImpl_Update(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	id, err := repo.Store(ctx, userId, sample(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	// when
	updated := sample(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	updated.ID = id
	updated.Amount = 99.99
	updated.Note = ""
	ok, err := repo.Update(ctx, userId, updated)

	// then
	assert.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindById(ctx, userId, id)
	require.NoError(t, err)
	assert.Equal(t, 99.99, stored.Amount)
	assert.Empty(t, stored.Note)
}

func TestRepoImpl_Delete(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	id, err := repo.Store(ctx, userId, sample(time.Now().UTC()))
	require.NoError(t, err)

	// when
	ok, err := repo.Delete(ctx, userId, id)

	// then
	assert.NoError(t, err)
	assert.True(t, ok)
	_, err = repo.FindById(ctx, userId, id)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRepoImpl_FindInRange(t *testing.T) {
	// given
	ctx, repo, userId := setupTestRepository(t)
	inside := sample(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	before := sample(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC))
	_, err := repo.Store(ctx, userId, inside)
	require.NoError(t, err)
	_, err = repo.Store(ctx, userId, before)
	require.NoError(t, err)

	// when
	window := period.Month(2024, time.March, time.UTC)
	found, err := repo.FindInRange(ctx, userId, window, Expense, "Food")

	// then
	assert.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Date.Equal(inside.Date))
}
