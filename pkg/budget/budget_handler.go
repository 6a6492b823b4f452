package budget

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fintrack/fintrack/internal/rest"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type BudgetDTO struct {
	ID            int              `json:"id"`
	Category      string           `json:"category"`
	Amount        float64          `json:"amount"`
	Period        string           `json:"period"`
	StartDate     time.Time        `json:"startDate"`
	EndDate       *time.Time       `json:"endDate,omitempty"`
	Notifications NotificationsDTO `json:"notifications"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     *time.Time       `json:"createdAt,omitempty"`
}

type NotificationsDTO struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"`
}

type StatusDTO struct {
	Budget            BudgetDTO `json:"budget"`
	TotalSpent        float64   `json:"totalSpent"`
	PercentageUsed    float64   `json:"percentageUsed"`
	DisplayPercentage float64   `json:"displayPercentage"`
	Remaining         float64   `json:"remaining"`
	Status            string    `json:"status"`
	PeriodLabel       string    `json:"periodLabel"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new budget")
	w.Header().Set("Content-Type", "application/json")

	var dto BudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}

	created, err := h.service.Create(r.Context(), dtoToBudget(dto))
	if err != nil {
		switch {
		case errors.Is(err, ErrBudgetExists):
			w.WriteHeader(http.StatusConflict)
		case errors.Is(err, ErrInvalidBudget):
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(budgetToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			http.Error(w, "Budget not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(budgetToDTO(b)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var filter GetFilter
	if v := r.URL.Query().Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "Invalid isActive: "+v, http.StatusBadRequest)
			return
		}
		filter.IsActive = &active
	}
	if v := r.URL.Query().Get("period"); v != "" {
		p, err := period.Parse(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Period = p
	}

	budgets, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]BudgetDTO, 0, len(budgets))
	for _, b := range budgets {
		dtos = append(dtos, budgetToDTO(b))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto BudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}
	if dto.ID != 0 && dto.ID != id {
		http.Error(w, "Invalid budget id in request body", http.StatusBadRequest)
		return
	}

	b := dtoToBudget(dto)
	b.ID = id
	updated, err := h.service.Update(r.Context(), b)
	if err != nil {
		switch {
		case errors.Is(err, ErrBudgetNotFound):
			http.Error(w, "Budget not found", http.StatusNotFound)
		case errors.Is(err, ErrBudgetExists):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrInvalidBudget):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		}
		return
	}

	if err := json.NewEncoder(w).Encode(budgetToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			http.Error(w, "Budget not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	toggled, err := h.service.ToggleActive(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			http.Error(w, "Budget not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(budgetToDTO(toggled)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CopyToNewPeriod(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Category string `json:"category"`
	}
	if r.Body != nil {
		// The body is optional; a bare copy keeps the source category.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	clone, err := h.service.CopyToNewPeriod(r.Context(), id, body.Category)
	if err != nil {
		switch {
		case errors.Is(err, ErrBudgetNotFound):
			http.Error(w, "Budget not found", http.StatusNotFound)
		case errors.Is(err, ErrBudgetExists):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(budgetToDTO(clone)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Performance returns every active budget with its current-period evaluation.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	statuses, err := h.service.GetAllWithStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]StatusDTO, 0, len(statuses))
	for _, ws := range statuses {
		dtos = append(dtos, statusToDTO(ws))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CategoryStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	category := mux.Vars(r)["category"]

	status, err := h.service.CategoryStatus(r.Context(), category)
	if err != nil {
		if errors.Is(err, ErrBudgetNotFound) {
			http.Error(w, "No budget for category "+category, http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(statusToDTO(status)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type SuggestionDTO struct {
	Category         string  `json:"category"`
	CurrentSpending  float64 `json:"currentSpending"`
	AverageMonthly   float64 `json:"averageMonthly"`
	SuggestedBudget  float64 `json:"suggestedBudget"`
	TransactionCount int     `json:"transactionCount"`
	Confidence       string  `json:"confidence"`
}

// Suggestions proposes budget amounts per category from recent spending.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	months := 0
	if v := r.URL.Query().Get("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid months: "+v, http.StatusBadRequest)
			return
		}
		months = parsed
	}

	suggestions, err := h.service.Suggestions(r.Context(), months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]SuggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		dtos = append(dtos, SuggestionDTO(s))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BulkUpsert creates or updates several budgets in one request, matched by
// category.
func (h *Handler) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	log.Debug("Bulk upserting budgets")
	w.Header().Set("Content-Type", "application/json")

	var body struct {
		Budgets []BudgetDTO `json:"budgets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}
	if len(body.Budgets) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "No budgets in request"})
		return
	}

	budgets := make([]Budget, 0, len(body.Budgets))
	for _, dto := range body.Budgets {
		budgets = append(budgets, dtoToBudget(dto))
	}

	result, err := h.service.BulkUpsert(r.Context(), budgets)
	if err != nil {
		if errors.Is(err, ErrInvalidBudget) {
			w.WriteHeader(http.StatusBadRequest)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	response := struct {
		Created  int `json:"created"`
		Modified int `json:"modified"`
	}{Created: result.Created, Modified: result.Modified}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathId(r *http.Request) (int, error) {
	idString := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idString)
	if err != nil {
		return 0, errors.New("invalid budget id: " + idString)
	}
	return id, nil
}

func budgetToDTO(b Budget) BudgetDTO {
	dto := BudgetDTO{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		Period:    string(b.Period),
		StartDate: b.StartDate,
		Notifications: NotificationsDTO{
			Enabled:   b.Notifications.Enabled,
			Threshold: b.Notifications.Threshold,
		},
		IsActive: b.IsActive,
	}
	if !b.EndDate.IsZero() {
		endDate := b.EndDate
		dto.EndDate = &endDate
	}
	if !b.CreatedAt.IsZero() {
		createdAt := b.CreatedAt
		dto.CreatedAt = &createdAt
	}
	return dto
}

func dtoToBudget(dto BudgetDTO) Budget {
	b := Budget{
		ID:        dto.ID,
		Category:  dto.Category,
		Amount:    dto.Amount,
		Period:    period.Period(dto.Period),
		StartDate: dto.StartDate,
		Notifications: Notifications{
			Enabled:   dto.Notifications.Enabled,
			Threshold: dto.Notifications.Threshold,
		},
		IsActive: dto.IsActive,
	}
	if dto.EndDate != nil {
		b.EndDate = *dto.EndDate
	}
	return b
}

func statusToDTO(ws WithStatus) StatusDTO {
	e := ws.Evaluation
	return StatusDTO{
		Budget:            budgetToDTO(ws.Budget),
		TotalSpent:        e.TotalSpent,
		PercentageUsed:    e.PercentageUsed,
		DisplayPercentage: math.Min(e.PercentageUsed, 100),
		Remaining:         e.Remaining,
		Status:            string(e.Status),
		PeriodLabel:       period.Label(ws.Budget.Period, e.Period.Start),
	}
}
