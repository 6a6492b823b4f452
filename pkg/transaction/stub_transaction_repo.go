package transaction

import (
	"context"
	"sort"
	"strings"

	"github.com/fintrack/fintrack/pkg/period"
)

// StubRepo is an in-memory Repo used by service and analytics tests.
type StubRepo struct {
	nextId int
	data   map[int]Transaction
	owners map[int]int
}

func NewStubRepo() *StubRepo {
	return &StubRepo{data: map[int]Transaction{}, owners: map[int]int{}}
}

func (s *StubRepo) Store(ctx context.Context, userId int, tx Transaction) (int, error) {
	s.nextId++
	tx.ID = s.nextId
	s.data[tx.ID] = tx
	s.owners[tx.ID] = userId
	return tx.ID, nil
}

func (s *StubRepo) FindById(ctx context.Context, userId int, id int) (Transaction, error) {
	tx, ok := s.data[id]
	if !ok || s.owners[id] != userId {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *StubRepo) Find(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	var result []Transaction
	for id, tx := range s.data {
		if s.owners[id] != userId {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(tx.Category, filter.Category) {
			continue
		}
		if filter.StartDate != nil && tx.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && tx.Date.After(*filter.EndDate) {
			continue
		}
		result = append(result, tx)
	}

	sort.Slice(result, func(i, j int) bool {
		if strings.EqualFold(filter.SortOrder, "asc") {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Date.After(result[j].Date)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *StubRepo) Count(ctx context.Context, userId int, filter Filter) (int, error) {
	all, err := s.Find(ctx, userId, Filter{Type: filter.Type, Category: filter.Category,
		StartDate: filter.StartDate, EndDate: filter.EndDate})
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *StubRepo) Update(ctx context.Context, userId int, tx Transaction) (bool, error) {
	if _, ok := s.data[tx.ID]; !ok || s.owners[tx.ID] != userId {
		return false, nil
	}
	s.data[tx.ID] = tx
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

func (s *StubRepo) FindInRange(ctx context.Context, userId int, pr period.Range, txType Type, category string) ([]Transaction, error) {
	var result []Transaction
	for id, tx := range s.data {
		if s.owners[id] != userId {
			continue
		}
		if txType != "" && tx.Type != txType {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		if !pr.Contains(tx.Date) {
			continue
		}
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *StubRepo) Cleanup() {
	s.data = map[int]Transaction{}
	s.owners = map[int]int{}
	s.nextId = 0
}
