package analytics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
)

type MonthlySummaryDTO struct {
	Month             string              `json:"month"`
	Income            float64             `json:"income"`
	Expenses          float64             `json:"expenses"`
	NetBalance        float64             `json:"netBalance"`
	CategoryBreakdown []CategoryAmountDTO `json:"categoryBreakdown"`
}

type CategoryAmountDTO struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type CategorySpendDTO struct {
	Category         string  `json:"category"`
	TotalAmount      float64 `json:"totalAmount"`
	TransactionCount int     `json:"transactionCount"`
	AverageAmount    float64 `json:"averageAmount"`
}

type TrendPointDTO struct {
	Period           string  `json:"period"`
	TotalAmount      float64 `json:"totalAmount"`
	TransactionCount int     `json:"transactionCount"`
}

type FinancialHealthDTO struct {
	CurrentMonth    MonthTotalsDTO `json:"currentMonth"`
	LastMonth       MonthTotalsDTO `json:"lastMonth"`
	SavingsRate     float64        `json:"savingsRate"`
	ExpenseGrowth   float64        `json:"expenseGrowth"`
	IncomeGrowth    float64        `json:"incomeGrowth"`
	FinancialHealth string         `json:"financialHealth"`
}

type MonthTotalsDTO struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type NetWorthPointDTO struct {
	Period             string  `json:"period"`
	Income             float64 `json:"income"`
	Expense            float64 `json:"expense"`
	Net                float64 `json:"net"`
	CumulativeNetWorth float64 `json:"cumulativeNetWorth"`
}

type YearlyOverviewDTO struct {
	Year          int             `json:"year"`
	Months        []TrendMonthDTO `json:"months"`
	TotalIncome   float64         `json:"totalIncome"`
	TotalExpenses float64         `json:"totalExpenses"`
	NetBalance    float64         `json:"netBalance"`
}

type TrendMonthDTO struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

type ComparisonPointDTO struct {
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

type CashFlowPointDTO struct {
	Date    string  `json:"date"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

type DashboardSummaryDTO struct {
	Income            float64             `json:"income"`
	Expenses          float64             `json:"expenses"`
	Balance           float64             `json:"balance"`
	CategoryBreakdown []CategoryAmountDTO `json:"categoryBreakdown"`
	Transactions      []RecentDTO         `json:"transactions"`
}

type RecentDTO struct {
	ID       int       `json:"id"`
	Amount   float64   `json:"amount"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
	Note     string    `json:"note,omitempty"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	now := h.clock.Now()

	year := now.Year()
	month := now.Month()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid year: "+v, http.StatusBadRequest)
			return
		}
		year = parsed
	}
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			http.Error(w, "Invalid month: "+v, http.StatusBadRequest)
			return
		}
		month = time.Month(parsed)
	}

	summary, err := h.service.MonthlySummary(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := MonthlySummaryDTO{
		Month:             summary.Month,
		Income:            summary.Income,
		Expenses:          summary.Expenses,
		NetBalance:        summary.NetBalance,
		CategoryBreakdown: make([]CategoryAmountDTO, 0, len(summary.CategoryBreakdown)),
	}
	for _, ca := range summary.CategoryBreakdown {
		dto.CategoryBreakdown = append(dto.CategoryBreakdown, CategoryAmountDTO{Category: ca.Category, Amount: ca.Amount})
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CategorySpending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	startDate, endDate, err := dateWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	txType, err := optionalType(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	spending, err := h.service.CategorySpending(r.Context(), startDate, endDate, txType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]CategorySpendDTO, 0, len(spending))
	for _, cs := range spending {
		dtos = append(dtos, CategorySpendDTO(cs))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) SpendingTrends(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	months, err := optionalInt(r, "months")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	txType, err := optionalType(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.service.SpendingTrends(r.Context(), months, txType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]TrendPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, TrendPointDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) FinancialHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health, err := h.service.FinancialHealth(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := FinancialHealthDTO{
		CurrentMonth:    MonthTotalsDTO(health.CurrentMonth),
		LastMonth:       MonthTotalsDTO(health.LastMonth),
		SavingsRate:     health.SavingsRate,
		ExpenseGrowth:   health.ExpenseGrowth,
		IncomeGrowth:    health.IncomeGrowth,
		FinancialHealth: string(health.FinancialHealth),
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) NetWorth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	months, err := optionalInt(r, "months")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.service.NetWorth(r.Context(), months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]NetWorthPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, NetWorthPointDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) YearlyOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	year := h.clock.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid year: "+v, http.StatusBadRequest)
			return
		}
		year = parsed
	}

	overview, err := h.service.YearlyOverview(r.Context(), year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := YearlyOverviewDTO{
		Year:          overview.Year,
		Months:        make([]TrendMonthDTO, 0, len(overview.Months)),
		TotalIncome:   overview.TotalIncome,
		TotalExpenses: overview.TotalExpenses,
		NetBalance:    overview.NetBalance,
	}
	for _, m := range overview.Months {
		dto.Months = append(dto.Months, TrendMonthDTO(m))
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) TopExpenses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	startDate, endDate, err := dateWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := optionalInt(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	expenses, err := h.service.TopExpenses(r.Context(), startDate, endDate, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type expenseDTO struct {
		ID       int       `json:"id"`
		Amount   float64   `json:"amount"`
		Category string    `json:"category"`
		Date     time.Time `json:"date"`
		Note     string    `json:"note,omitempty"`
	}
	dtos := make([]expenseDTO, 0, len(expenses))
	for _, tx := range expenses {
		dtos = append(dtos, expenseDTO{ID: tx.ID, Amount: tx.Amount, Category: tx.Category, Date: tx.Date, Note: tx.Note})
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) IncomeVsExpense(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	granularity := period.Monthly
	if v := r.URL.Query().Get("period"); v != "" {
		parsed, err := period.Parse(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		granularity = parsed
	}
	months, err := optionalInt(r, "months")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.service.IncomeVsExpense(r.Context(), granularity, months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]ComparisonPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, ComparisonPointDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	startDate, endDate, err := dateWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.service.CashFlow(r.Context(), startDate, endDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]CashFlowPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, CashFlowPointDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	now := h.clock.Now()

	year := now.Year()
	month := now.Month()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid year: "+v, http.StatusBadRequest)
			return
		}
		year = parsed
	}
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			http.Error(w, "Invalid month: "+v, http.StatusBadRequest)
			return
		}
		month = time.Month(parsed)
	}

	summary, err := h.service.DashboardSummary(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := DashboardSummaryDTO{
		Income:            summary.Income,
		Expenses:          summary.Expenses,
		Balance:           summary.Balance,
		CategoryBreakdown: make([]CategoryAmountDTO, 0, len(summary.CategoryBreakdown)),
		Transactions:      make([]RecentDTO, 0, len(summary.Recent)),
	}
	for _, ca := range summary.CategoryBreakdown {
		dto.CategoryBreakdown = append(dto.CategoryBreakdown, CategoryAmountDTO(ca))
	}
	for _, tx := range summary.Recent {
		dto.Transactions = append(dto.Transactions, RecentDTO{
			ID:       tx.ID,
			Amount:   tx.Amount,
			Type:     string(tx.Type),
			Category: tx.Category,
			Date:     tx.Date,
			Note:     tx.Note,
		})
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func optionalInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + v)
	}
	return parsed, nil
}

func optionalType(r *http.Request) (transaction.Type, error) {
	v := r.URL.Query().Get("type")
	if v == "" {
		return "", nil
	}
	return transaction.ParseType(v)
}

func dateWindow(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(name string) (*time.Time, error) {
		v := r.URL.Query().Get(name)
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
			if err != nil {
				return nil, errors.New("invalid " + name + ": " + v)
			}
		}
		return &t, nil
	}

	startDate, err := parse("startDate")
	if err != nil {
		return nil, nil, err
	}
	endDate, err := parse("endDate")
	if err != nil {
		return nil, nil, err
	}
	return startDate, endDate, nil
}
