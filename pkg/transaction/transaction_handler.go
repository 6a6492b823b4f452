package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fintrack/fintrack/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TransactionDTO struct {
	ID            int           `json:"id"`
	Amount        float64       `json:"amount"`
	Type          string        `json:"type"`
	Category      string        `json:"category"`
	Date          time.Time     `json:"date"`
	Note          string        `json:"note,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Recurring     *RecurringDTO `json:"recurring,omitempty"`
	CreatedAt     *time.Time    `json:"createdAt,omitempty"`
}

type RecurringDTO struct {
	IsRecurring bool       `json:"isRecurring"`
	Frequency   string     `json:"frequency,omitempty"`
	NextDate    *time.Time `json:"nextDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

type PageDTO struct {
	Data        []TransactionDTO `json:"data"`
	Total       int              `json:"total"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

type StatsDTO struct {
	Income           float64 `json:"income"`
	Expense          float64 `json:"expense"`
	NetBalance       float64 `json:"netBalance"`
	TransactionCount int     `json:"transactionCount"`
	AverageIncome    float64 `json:"averageIncome"`
	AverageExpense   float64 `json:"averageExpense"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create records a new transaction for the current user. An expense write
// triggers the budget alert check downstream.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new transaction")
	w.Header().Set("Content-Type", "application/json")

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}

	created, err := h.service.Create(r.Context(), dtoToTransaction(dto))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(transactionToDTO(created)); err != nil {
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

	tx, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(transactionToDTO(tx)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := PageDTO{
		Data:        make([]TransactionDTO, 0, len(page.Transactions)),
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	}
	for _, tx := range page.Transactions {
		dto.Data = append(dto.Data, transactionToDTO(tx))
	}

	if err := json.NewEncoder(w).Encode(dto); err != nil {
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

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}
	if dto.ID != 0 && dto.ID != id {
		http.Error(w, "Invalid transaction id in request body", http.StatusBadRequest)
		return
	}

	tx := dtoToTransaction(dto)
	tx.ID = id
	updated, err := h.service.Update(r.Context(), tx)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	if err := json.NewEncoder(w).Encode(transactionToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err = h.service.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	transactions, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]TransactionDTO, 0, len(transactions))
	for _, tx := range transactions {
		dtos = append(dtos, transactionToDTO(tx))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	startDate, err := optionalDate(r, "startDate")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	endDate, err := optionalDate(r, "endDate")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.service.Stats(r.Context(), startDate, endDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := StatsDTO{
		Income:           stats.Income,
		Expense:          stats.Expense,
		NetBalance:       stats.NetBalance,
		TransactionCount: stats.TransactionCount,
		AverageIncome:    stats.AverageIncome,
		AverageExpense:   stats.AverageExpense,
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathId(r *http.Request) (int, error) {
	idString := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idString)
	if err != nil {
		return 0, errors.New("invalid transaction id: " + idString)
	}
	return id, nil
}

func optionalDate(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Plain dates are accepted too.
		t, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, errors.New("invalid " + name + ": " + value)
		}
	}
	return &t, nil
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Category:      q.Get("category"),
		PaymentMethod: PaymentMethod(q.Get("paymentMethod")),
		Search:        q.Get("search"),
		SortBy:        q.Get("sortBy"),
		SortOrder:     q.Get("sortOrder"),
	}

	if v := q.Get("type"); v != "" {
		txType, err := ParseType(v)
		if err != nil {
			return Filter{}, err
		}
		filter.Type = txType
	}

	var err error
	if filter.StartDate, err = optionalDate(r, "startDate"); err != nil {
		return Filter{}, err
	}
	if filter.EndDate, err = optionalDate(r, "endDate"); err != nil {
		return Filter{}, err
	}

	for name, target := range map[string]**float64{"minAmount": &filter.MinAmount, "maxAmount": &filter.MaxAmount} {
		if v := q.Get(name); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Filter{}, errors.New("invalid " + name + ": " + v)
			}
			*target = &parsed
		}
	}
	for name, target := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		if v := q.Get(name); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return Filter{}, errors.New("invalid " + name + ": " + v)
			}
			*target = parsed
		}
	}

	return filter, nil
}

func transactionToDTO(tx Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:            tx.ID,
		Amount:        tx.Amount,
		Type:          string(tx.Type),
		Category:      tx.Category,
		Date:          tx.Date,
		Note:          tx.Note,
		PaymentMethod: string(tx.PaymentMethod),
		Tags:          tx.Tags,
	}
	if !tx.CreatedAt.IsZero() {
		createdAt := tx.CreatedAt
		dto.CreatedAt = &createdAt
	}
	if tx.Recurring.IsRecurring {
		recurring := RecurringDTO{IsRecurring: true, Frequency: tx.Recurring.Frequency}
		if !tx.Recurring.NextDate.IsZero() {
			nextDate := tx.Recurring.NextDate
			recurring.NextDate = &nextDate
		}
		if !tx.Recurring.EndDate.IsZero() {
			endDate := tx.Recurring.EndDate
			recurring.EndDate = &endDate
		}
		dto.Recurring = &recurring
	}
	return dto
}

func dtoToTransaction(dto TransactionDTO) Transaction {
	tx := Transaction{
		ID:            dto.ID,
		Amount:        dto.Amount,
		Type:          Type(dto.Type),
		Category:      dto.Category,
		Date:          dto.Date,
		Note:          dto.Note,
		PaymentMethod: PaymentMethod(dto.PaymentMethod),
		Tags:          dto.Tags,
	}
	if dto.Recurring != nil {
		tx.Recurring = Recurring{
			IsRecurring: dto.Recurring.IsRecurring,
			Frequency:   dto.Recurring.Frequency,
		}
		if dto.Recurring.NextDate != nil {
			tx.Recurring.NextDate = *dto.Recurring.NextDate
		}
		if dto.Recurring.EndDate != nil {
			tx.Recurring.EndDate = *dto.Recurring.EndDate
		}
	}
	return tx
}
