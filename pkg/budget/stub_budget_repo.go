package budget

import (
	"context"
	"sort"
	"strings"
)

// StubRepo is an in-memory Repo used by service and alert tests.
type StubRepo struct {
	nextId int
	data   map[int]Budget
	owners map[int]int
}

func NewStubRepo() *StubRepo {
	return &StubRepo{data: map[int]Budget{}, owners: map[int]int{}}
}

func (s *StubRepo) Store(ctx context.Context, userId int, b Budget) (int, error) {
	for id, existing := range s.data {
		if s.owners[id] == userId && strings.EqualFold(existing.Category, b.Category) {
			return 0, ErrBudgetExists
		}
	}
	s.nextId++
	b.ID = s.nextId
	s.data[b.ID] = b
	s.owners[b.ID] = userId
	return b.ID, nil
}

func (s *StubRepo) FindById(ctx context.Context, userId int, id int) (Budget, error) {
	b, ok := s.data[id]
	if !ok || s.owners[id] != userId {
		return Budget{}, ErrBudgetNotFound
	}
	return b, nil
}

func (s *StubRepo) FindByCategory(ctx context.Context, userId int, category string) (Budget, error) {
	for id, b := range s.data {
		if s.owners[id] == userId && strings.EqualFold(b.Category, category) {
			return b, nil
		}
	}
	return Budget{}, ErrBudgetNotFound
}

func (s *StubRepo) GetAll(ctx context.Context, userId int, filter GetFilter) ([]Budget, error) {
	var budgets []Budget
	for id, b := range s.data {
		if s.owners[id] != userId {
			continue
		}
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if filter.Period != "" && b.Period != filter.Period {
			continue
		}
		budgets = append(budgets, b)
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Category < budgets[j].Category })
	return budgets, nil
}

func (s *StubRepo) Update(ctx context.Context, userId int, b Budget) (bool, error) {
	if _, ok := s.data[b.ID]; !ok || s.owners[b.ID] != userId {
		return false, nil
	}
	s.data[b.ID] = b
	return true, nil
}

func (s *StubRepo) Delete(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.data[id]; !ok || s.owners[id] != userId {
		return false, nil
	}
	delete(s.data, id)
	delete(s.owners, id)
	return true, nil
}

func (s *StubRepo) SetActive(ctx context.Context, userId int, id int, active bool) (bool, error) {
	b, ok := s.data[id]
	if !ok || s.owners[id] != userId {
		return false, nil
	}
	b.IsActive = active
	s.data[id] = b
	return true, nil
}

func (s *StubRepo) Cleanup() {
	s.data = map[int]Budget{}
	s.owners = map[int]int{}
	s.nextId = 0
}
