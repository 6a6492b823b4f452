package budget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	log "github.com/sirupsen/logrus"
)

const defaultThreshold = 80

// suggestionBuffer is the headroom added on top of observed average
// spending when proposing a budget.
const suggestionBuffer = 1.1

// SpendReader is the slice of the transaction store the suggestion
// calculation needs.
type SpendReader interface {
	FindInRange(ctx context.Context, userId int, r period.Range, txType transaction.Type, category string) ([]transaction.Transaction, error)
}

// Suggestion proposes a budget amount for a category based on recent
// spending. Confidence grows with the number of observed transactions.
type Suggestion struct {
	Category         string
	CurrentSpending  float64
	AverageMonthly   float64
	SuggestedBudget  float64
	TransactionCount int
	Confidence       string
}

// BulkResult counts what a bulk upsert did.
type BulkResult struct {
	Created  int
	Modified int
}

type Service interface {
	Create(ctx context.Context, b Budget) (Budget, error)
	Get(ctx context.Context, id int) (Budget, error)
	List(ctx context.Context, filter GetFilter) ([]Budget, error)
	Update(ctx context.Context, b Budget) (Budget, error)
	Delete(ctx context.Context, id int) (bool, error)
	ToggleActive(ctx context.Context, id int) (Budget, error)
	// CopyToNewPeriod clones a budget into a fresh one starting now, with no
	// end date. The source budget keeps its history untouched.
	CopyToNewPeriod(ctx context.Context, id int, category string) (Budget, error)
	GetAllWithStatus(ctx context.Context) ([]WithStatus, error)
	CategoryStatus(ctx context.Context, category string) (WithStatus, error)
	Suggestions(ctx context.Context, months int) ([]Suggestion, error)
	// BulkUpsert creates or updates one budget per category in a single
	// call, matching existing budgets by category.
	BulkUpsert(ctx context.Context, budgets []Budget) (BulkResult, error)
}

type ServiceImpl struct {
	repo      Repo
	evaluator Evaluator
	spend     SpendReader
	clock     utils.Clock
}

func NewService(repo Repo, evaluator Evaluator, spend SpendReader, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, evaluator: evaluator, spend: spend, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, b Budget) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}

	if b.Period == "" {
		b.Period = period.Monthly
	}
	if b.StartDate.IsZero() {
		b.StartDate = s.clock.Now()
	}
	if b.Notifications.Threshold == 0 {
		b.Notifications.Threshold = defaultThreshold
	}
	b.IsActive = true
	if err := b.Validate(); err != nil {
		return Budget{}, err
	}

	id, err := s.repo.Store(ctx, userId, b)
	if err != nil {
		return Budget{}, err
	}
	b.ID = id
	b.CreatedAt = s.clock.Now()
	return b, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.FindById(ctx, userId, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter GetFilter) ([]Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetAll(ctx, userId, filter)
}

func (s *ServiceImpl) Update(ctx context.Context, b Budget) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Budget{}, err
	}

	updated, err := s.repo.Update(ctx, userId, b)
	if err != nil {
		return Budget{}, err
	}
	if !updated {
		log.Warnf("budget not updated, probably because it does not exist (%d) or the user (%d) is not the owner", b.ID, userId)
		return Budget{}, ErrBudgetNotFound
	}
	return b, nil
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
		return false, ErrBudgetNotFound
	}
	return true, nil
}

func (s *ServiceImpl) ToggleActive(ctx context.Context, id int) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}

	current, err := s.repo.FindById(ctx, userId, id)
	if err != nil {
		return Budget{}, err
	}

	toggled, err := s.repo.SetActive(ctx, userId, id, !current.IsActive)
	if err != nil {
		return Budget{}, err
	}
	if !toggled {
		return Budget{}, ErrBudgetNotFound
	}
	current.IsActive = !current.IsActive
	return current, nil
}

func (s *ServiceImpl) CopyToNewPeriod(ctx context.Context, id int, category string) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}

	source, err := s.repo.FindById(ctx, userId, id)
	if err != nil {
		return Budget{}, err
	}

	clone := source
	clone.ID = 0
	clone.StartDate = s.clock.Now()
	clone.EndDate = time.Time{}
	clone.IsActive = true
	if category != "" {
		clone.Category = category
	}

	cloneId, err := s.repo.Store(ctx, userId, clone)
	if err != nil {
		return Budget{}, err
	}
	clone.ID = cloneId
	clone.CreatedAt = s.clock.Now()
	return clone, nil
}

func (s *ServiceImpl) GetAllWithStatus(ctx context.Context) ([]WithStatus, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	active := true
	budgets, err := s.repo.GetAll(ctx, userId, GetFilter{IsActive: &active})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := make([]WithStatus, 0, len(budgets))
	for _, b := range budgets {
		evaluation, err := s.evaluator.Evaluate(ctx, b, now)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate budget %d: %w", b.ID, err)
		}
		result = append(result, WithStatus{Budget: b, Evaluation: evaluation})
	}
	return result, nil
}

func (s *ServiceImpl) CategoryStatus(ctx context.Context, category string) (WithStatus, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return WithStatus{}, fmt.Errorf("failed to get current user: %w", err)
	}

	b, err := s.repo.FindByCategory(ctx, userId, category)
	if err != nil {
		return WithStatus{}, err
	}

	evaluation, err := s.evaluator.Evaluate(ctx, b, s.clock.Now())
	if err != nil {
		return WithStatus{}, fmt.Errorf("failed to evaluate budget %d: %w", b.ID, err)
	}
	return WithStatus{Budget: b, Evaluation: evaluation}, nil
}

// Suggestions derives a proposed monthly budget per category from the
// expenses of the last months (the current month included), with a small
// buffer on top of the monthly average.
func (s *ServiceImpl) Suggestions(ctx context.Context, months int) ([]Suggestion, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if months <= 0 {
		months = 3
	}

	windows := period.LastMonths(months, s.clock.Now())
	full := period.Range{Start: windows[0].Start, End: windows[len(windows)-1].End}
	transactions, err := s.spend.FindInRange(ctx, userId, full, transaction.Expense, "")
	if err != nil {
		return nil, err
	}

	type pattern struct {
		total float64
		count int
	}
	byCategory := map[string]*pattern{}
	for _, tx := range transactions {
		p, ok := byCategory[tx.Category]
		if !ok {
			p = &pattern{}
			byCategory[tx.Category] = p
		}
		p.total += tx.Amount
		p.count++
	}

	suggestions := make([]Suggestion, 0, len(byCategory))
	for category, p := range byCategory {
		average := p.total / float64(len(windows))
		confidence := "Low"
		if p.count > 5 {
			confidence = "High"
		} else if p.count > 2 {
			confidence = "Medium"
		}
		suggestions = append(suggestions, Suggestion{
			Category:         category,
			CurrentSpending:  p.total,
			AverageMonthly:   average,
			SuggestedBudget:  math.Ceil(average * suggestionBuffer),
			TransactionCount: p.count,
			Confidence:       confidence,
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].CurrentSpending > suggestions[j].CurrentSpending
	})
	return suggestions, nil
}

func (s *ServiceImpl) BulkUpsert(ctx context.Context, budgets []Budget) (BulkResult, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return BulkResult{}, fmt.Errorf("failed to get current user: %w", err)
	}

	var result BulkResult
	for _, b := range budgets {
		if b.Period == "" {
			b.Period = period.Monthly
		}
		if b.Notifications.Threshold == 0 {
			b.Notifications.Threshold = defaultThreshold
		}

		existing, err := s.repo.FindByCategory(ctx, userId, b.Category)
		if errors.Is(err, ErrBudgetNotFound) {
			if _, err := s.Create(ctx, b); err != nil {
				return result, fmt.Errorf("failed to create budget for category %q: %w", b.Category, err)
			}
			result.Created++
			continue
		} else if err != nil {
			return result, err
		}

		existing.Amount = b.Amount
		existing.Period = b.Period
		existing.Notifications = b.Notifications
		if !b.StartDate.IsZero() {
			existing.StartDate = b.StartDate
		}
		existing.EndDate = b.EndDate
		if err := existing.Validate(); err != nil {
			return result, err
		}
		updated, err := s.repo.Update(ctx, userId, existing)
		if err != nil {
			return result, fmt.Errorf("failed to update budget for category %q: %w", b.Category, err)
		}
		if !updated {
			return result, ErrBudgetNotFound
		}
		result.Modified++
	}
	return result, nil
}
