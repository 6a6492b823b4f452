package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/user"
)

// BudgetLister is the slice of the budget store the handler needs.
type BudgetLister interface {
	GetAll(ctx context.Context, userId int, filter budget.GetFilter) ([]budget.Budget, error)
}

type AlertDTO struct {
	BudgetId       int       `json:"budgetId"`
	Category       string    `json:"category"`
	Level          string    `json:"alertLevel"`
	Message        string    `json:"message"`
	TotalSpent     float64   `json:"totalSpent"`
	PercentageUsed float64   `json:"percentageUsed"`
	Remaining      float64   `json:"remaining"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
}

type Handler struct {
	budgets   BudgetLister
	evaluator *Evaluator
	clock     utils.Clock
}

func NewHandler(budgets BudgetLister, evaluator *Evaluator, clock utils.Clock) *Handler {
	return &Handler{budgets: budgets, evaluator: evaluator, clock: clock}
}

// List returns the alerts currently firing across the user's active budgets.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	userId, err := user.CurrentId(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	active := true
	budgets, err := h.budgets.GetAll(ctx, userId, budget.GetFilter{IsActive: &active})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := h.clock.Now()
	alerts := make([]AlertDTO, 0)
	for _, b := range budgets {
		alert, fired, err := h.evaluator.CheckAlert(ctx, b, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !fired {
			continue
		}
		alerts = append(alerts, AlertDTO{
			BudgetId:       alert.BudgetId,
			Category:       alert.Category,
			Level:          string(alert.Level),
			Message:        alert.Message,
			TotalSpent:     alert.TotalSpent,
			PercentageUsed: alert.PercentageUsed,
			Remaining:      alert.Remaining,
			PeriodStart:    alert.Period.Start,
			PeriodEnd:      alert.Period.End,
		})
	}

	if err := json.NewEncoder(w).Encode(alerts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
