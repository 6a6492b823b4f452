package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fintrack/fintrack/pkg/period"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// ErrTransactionNotFound indicates the transaction does not exist or is not
// owned by the caller; the two cases are indistinguishable on purpose.
var ErrTransactionNotFound = errors.New("transaction not found")

type Repo interface {
	Store(ctx context.Context, userId int, tx Transaction) (int, error)
	FindById(ctx context.Context, userId int, id int) (Transaction, error)
	Find(ctx context.Context, userId int, filter Filter) ([]Transaction, error)
	Count(ctx context.Context, userId int, filter Filter) (int, error)
	Update(ctx context.Context, userId int, tx Transaction) (bool, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
	// FindInRange returns all transactions in the inclusive interval,
	// optionally narrowed by type and category. It backs every aggregation.
	FindInRange(ctx context.Context, userId int, r period.Range, txType Type, category string) ([]Transaction, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

const transactionColumns = `id, amount, type, category, date, note, payment_method, tags,
	is_recurring, recurring_frequency, recurring_next_date, recurring_end_date, created_at`

func (r *RepoImpl) Store(ctx context.Context, userId int, tx Transaction) (int, error) {
	query := `INSERT INTO transactions (
			user_id, amount, type, category, date, note, payment_method, tags,
			is_recurring, recurring_frequency, recurring_next_date, recurring_end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`

	var id int
	err := r.db.QueryRow(ctx, query,
		userId,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.Date,
		tx.Note,
		tx.PaymentMethod,
		tx.Tags,
		tx.Recurring.IsRecurring,
		nullIfEmpty(tx.Recurring.Frequency),
		nullIfZeroTime(tx.Recurring.NextDate),
		nullIfZeroTime(tx.Recurring.EndDate),
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to store transaction: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *RepoImpl) FindById(ctx context.Context, userId int, id int) (Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1 AND user_id = $2`, transactionColumns)
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	} else if err != nil {
		log.Errorf("failed to find transaction %d: %v", id, err)
		return Transaction{}, err
	}
	return tx, nil
}

func (r *RepoImpl) Find(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	where, args := buildFilter(userId, filter)

	sortColumn := "date"
	switch filter.SortBy {
	case "amount", "category", "date", "created_at":
		sortColumn = filter.SortBy
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY %s %s`,
		transactionColumns, where, sortColumn, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Page > 1 {
			query += fmt.Sprintf(" OFFSET %d", (filter.Page-1)*filter.Limit)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to query transactions: %v", err)
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *RepoImpl) Count(ctx context.Context, userId int, filter Filter) (int, error) {
	where, args := buildFilter(userId, filter)
	query := `SELECT COUNT(*) FROM transactions WHERE ` + where

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		log.Errorf("failed to count transactions: %v", err)
		return 0, err
	}
	return count, nil
}

func (r *RepoImpl) Update(ctx context.Context, userId int, tx Transaction) (bool, error) {
	query := `UPDATE transactions SET
			amount = $1, type = $2, category = $3, date = $4, note = $5, payment_method = $6, tags = $7,
			is_recurring = $8, recurring_frequency = $9, recurring_next_date = $10, recurring_end_date = $11
		WHERE id = $12 AND user_id = $13`

	result, err := r.db.Exec(ctx, query,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.Date,
		tx.Note,
		tx.PaymentMethod,
		tx.Tags,
		tx.Recurring.IsRecurring,
		nullIfEmpty(tx.Recurring.Frequency),
		nullIfZeroTime(tx.Recurring.NextDate),
		nullIfZeroTime(tx.Recurring.EndDate),
		tx.ID,
		userId,
	)
	if err != nil {
		log.Errorf("failed to update transaction %d: %v", tx.ID, err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepoImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete transaction %d: %v", id, err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepoImpl) FindInRange(ctx context.Context, userId int, pr period.Range, txType Type, category string) ([]Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE user_id = $1 AND date >= $2 AND date <= $3`, transactionColumns)
	args := []any{userId, pr.Start, pr.End}

	if txType != "" {
		args = append(args, txType)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY date"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to query transactions in range: %v", err)
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// buildFilter renders the WHERE clause for Find and Count so both stay in sync.
func buildFilter(userId int, filter Filter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userId}

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		add("category ILIKE $%d", "%"+filter.Category+"%")
	}
	if filter.PaymentMethod != "" {
		add("payment_method = $%d", filter.PaymentMethod)
	}
	if filter.StartDate != nil {
		add("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("date <= $%d", *filter.EndDate)
	}
	if filter.MinAmount != nil {
		add("amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d", *filter.MaxAmount)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(note ILIKE $%d OR category ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d))", n, n, n))
	}

	return strings.Join(conditions, " AND "), args
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	var note, frequency *string
	var nextDate, endDate *time.Time
	err := row.Scan(
		&tx.ID,
		&tx.Amount,
		&tx.Type,
		&tx.Category,
		&tx.Date,
		&note,
		&tx.PaymentMethod,
		&tx.Tags,
		&tx.Recurring.IsRecurring,
		&frequency,
		&nextDate,
		&endDate,
		&tx.CreatedAt,
	)
	if err != nil {
		return Transaction{}, err
	}
	if note != nil {
		tx.Note = *note
	}
	if frequency != nil {
		tx.Recurring.Frequency = *frequency
	}
	if nextDate != nil {
		tx.Recurring.NextDate = *nextDate
	}
	if endDate != nil {
		tx.Recurring.EndDate = *endDate
	}
	return tx, nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var transactions []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			log.Errorf("failed to scan transaction: %v", err)
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return transactions, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
