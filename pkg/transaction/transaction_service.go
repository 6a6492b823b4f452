package transaction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Page is the result of a filtered listing.
type Page struct {
	Transactions []Transaction
	Total        int
	TotalPages   int
	CurrentPage  int
}

// Stats aggregates both transaction directions over an optional window.
type Stats struct {
	Income           float64
	Expense          float64
	NetBalance       float64
	TransactionCount int
	AverageIncome    float64
	AverageExpense   float64
}

type Service interface {
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id int) (Transaction, error)
	List(ctx context.Context, filter Filter) (Page, error)
	Update(ctx context.Context, tx Transaction) (Transaction, error)
	Delete(ctx context.Context, id int) (bool, error)
	Recent(ctx context.Context, limit int) ([]Transaction, error)
	Stats(ctx context.Context, startDate, endDate *time.Time) (Stats, error)
}

type ServiceImpl struct {
	repo  Repo
	bus   *event_bus.EventBus
	clock utils.Clock
}

func NewService(repo Repo, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}

	if tx.Date.IsZero() {
		tx.Date = s.clock.Now()
	}
	if tx.PaymentMethod == "" {
		tx.PaymentMethod = Other
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}

	id, err := s.repo.Store(ctx, userId, tx)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id
	tx.CreatedAt = s.clock.Now()

	s.publish(ctx, event_bus.TransactionCreated, tx)
	return tx, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.FindById(ctx, userId, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) (Page, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to get current user: %w", err)
	}

	// A negative limit disables pagination, used by the CSV export.
	if filter.Limit == 0 {
		filter.Limit = 10
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	transactions, err := s.repo.Find(ctx, userId, filter)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.Count(ctx, userId, filter)
	if err != nil {
		return Page{}, err
	}

	totalPages := 1
	if filter.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(filter.Limit)))
	}
	return Page{
		Transactions: transactions,
		Total:        total,
		TotalPages:   totalPages,
		CurrentPage:  filter.Page,
	}, nil
}

func (s *ServiceImpl) Update(ctx context.Context, tx Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}

	updated, err := s.repo.Update(ctx, userId, tx)
	if err != nil {
		return Transaction{}, err
	}
	if !updated {
		log.Warnf("transaction not updated, probably because it does not exist (%d) or the user (%d) is not the owner", tx.ID, userId)
		return Transaction{}, ErrTransactionNotFound
	}

	s.publish(ctx, event_bus.TransactionUpdated, tx)
	return tx, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, userId, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("transaction not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return false, ErrTransactionNotFound
	}
	return true, nil
}

func (s *ServiceImpl) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 5
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Find(ctx, userId, Filter{SortBy: "date", SortOrder: "desc", Limit: limit, Page: 1})
}

func (s *ServiceImpl) Stats(ctx context.Context, startDate, endDate *time.Time) (Stats, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get current user: %w", err)
	}

	window := period.Range{Start: time.Time{}, End: s.clock.Now()}
	if startDate != nil {
		window.Start = *startDate
	}
	if endDate != nil {
		window.End = *endDate
	}

	transactions, err := s.repo.FindInRange(ctx, userId, window, "", "")
	if err != nil {
		return Stats{}, err
	}

	var income, expense []Transaction
	for _, tx := range transactions {
		if tx.Type == Income {
			income = append(income, tx)
		} else {
			expense = append(expense, tx)
		}
	}
	incomeSummary := Summarize(income)
	expenseSummary := Summarize(expense)

	return Stats{
		Income:           incomeSummary.TotalSpent,
		Expense:          expenseSummary.TotalSpent,
		NetBalance:       incomeSummary.TotalSpent - expenseSummary.TotalSpent,
		TransactionCount: len(transactions),
		AverageIncome:    incomeSummary.AverageAmount,
		AverageExpense:   expenseSummary.AverageAmount,
	}, nil
}

// publish emits a bus event for the alert pipeline. Handler failures are
// logged and swallowed: an alert problem must never fail the write that
// triggered it.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, tx Transaction) {
	if s.bus == nil || tx.Type != Expense {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, tx)); err != nil {
		log.Warnf("budget alert check failed for category %q: %v", tx.Category, err)
	}
}
