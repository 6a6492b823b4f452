package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/pkg/period"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrBudgetNotFound indicates the budget does not exist or is not owned
	// by the caller.
	ErrBudgetNotFound = errors.New("budget not found")
	// ErrBudgetExists indicates the user already has a budget for the category.
	ErrBudgetExists = errors.New("budget already exists for this category")
)

// GetFilter narrows GetAll. Nil/empty fields match everything.
type GetFilter struct {
	IsActive *bool
	Period   period.Period
}

type Repo interface {
	Store(ctx context.Context, userId int, b Budget) (int, error)
	FindById(ctx context.Context, userId int, id int) (Budget, error)
	FindByCategory(ctx context.Context, userId int, category string) (Budget, error)
	GetAll(ctx context.Context, userId int, filter GetFilter) ([]Budget, error)
	Update(ctx context.Context, userId int, b Budget) (bool, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
	SetActive(ctx context.Context, userId int, id int, active bool) (bool, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

const budgetColumns = `id, category, amount, period, start_date, end_date,
	notifications_enabled, notifications_threshold, is_active, created_at`

func (r *RepoImpl) Store(ctx context.Context, userId int, b Budget) (int, error) {
	query := `INSERT INTO budgets (
			user_id, category, amount, period, start_date, end_date,
			notifications_enabled, notifications_threshold, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	var id int
	err := r.db.QueryRow(ctx, query,
		userId,
		b.Category,
		b.Amount,
		b.Period,
		b.StartDate,
		nullIfZeroTime(b.EndDate),
		b.Notifications.Enabled,
		b.Notifications.Threshold,
		b.IsActive,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrBudgetExists
	} else if err != nil {
		log.Errorf("failed to store budget: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *RepoImpl) FindById(ctx context.Context, userId int, id int) (Budget, error) {
	query := fmt.Sprintf(`SELECT %s FROM budgets WHERE id = $1 AND user_id = $2`, budgetColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, id, userId))
}

func (r *RepoImpl) FindByCategory(ctx context.Context, userId int, category string) (Budget, error) {
	query := fmt.Sprintf(`SELECT %s FROM budgets WHERE user_id = $1 AND category = $2`, budgetColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, userId, category))
}

func (r *RepoImpl) GetAll(ctx context.Context, userId int, filter GetFilter) ([]Budget, error) {
	query := fmt.Sprintf(`SELECT %s FROM budgets WHERE user_id = $1`, budgetColumns)
	args := []any{userId}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Period != "" {
		args = append(args, filter.Period)
		query += fmt.Sprintf(" AND period = $%d", len(args))
	}
	query += " ORDER BY category"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to query budgets: %v", err)
		return nil, err
	}
	defer rows.Close()

	var budgets []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			log.Errorf("failed to scan budget: %v", err)
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return budgets, nil
}

func (r *RepoImpl) Update(ctx context.Context, userId int, b Budget) (bool, error) {
	query := `UPDATE budgets SET
			category = $1, amount = $2, period = $3, start_date = $4, end_date = $5,
			notifications_enabled = $6, notifications_threshold = $7, is_active = $8
		WHERE id = $9 AND user_id = $10`

	result, err := r.db.Exec(ctx, query,
		b.Category,
		b.Amount,
		b.Period,
		b.StartDate,
		nullIfZeroTime(b.EndDate),
		b.Notifications.Enabled,
		b.Notifications.Threshold,
		b.IsActive,
		b.ID,
		userId,
	)
	if isUniqueViolation(err) {
		return false, ErrBudgetExists
	} else if err != nil {
		log.Errorf("failed to update budget %d: %v", b.ID, err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepoImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete budget %d: %v", id, err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepoImpl) SetActive(ctx context.Context, userId int, id int, active bool) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE budgets SET is_active = $1 WHERE id = $2 AND user_id = $3`, active, id, userId)
	if err != nil {
		log.Errorf("failed to toggle budget %d: %v", id, err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepoImpl) scanOne(row pgx.Row) (Budget, error) {
	b, err := scanBudget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	} else if err != nil {
		log.Errorf("failed to find budget: %v", err)
		return Budget{}, err
	}
	return b, nil
}

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	var endDate *time.Time
	err := row.Scan(
		&b.ID,
		&b.Category,
		&b.Amount,
		&b.Period,
		&b.StartDate,
		&endDate,
		&b.Notifications.Enabled,
		&b.Notifications.Threshold,
		&b.IsActive,
		&b.CreatedAt,
	)
	if err != nil {
		return Budget{}, err
	}
	if endDate != nil {
		b.EndDate = *endDate
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
