package export

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/analytics"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	transactions transaction.Service
	budgets      budget.Service
	analytics    analytics.Service
	clock        utils.Clock
}

func NewHandler(transactions transaction.Service, budgets budget.Service, analytics analytics.Service, clock utils.Clock) *Handler {
	return &Handler{transactions: transactions, budgets: budgets, analytics: analytics, clock: clock}
}

// Transactions streams the user's transactions as a CSV attachment. The same
// query parameters as the listing endpoint narrow the result; pagination is
// disabled so the file is complete.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.Page = 1
	filter.Limit = -1

	page, err := h.transactions.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := TransactionsCSV(page.Transactions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.attach(w, "transactions", data)
}

// Budgets streams the budget report for every active budget.
func (h *Handler) Budgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.budgets.GetAllWithStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := BudgetReportCSV(statuses)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.attach(w, "budget-report", data)
}

// Report streams the financial report for the requested (default current) year.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	year := h.clock.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid year: "+v, http.StatusBadRequest)
			return
		}
		year = parsed
	}

	overview, err := h.analytics.YearlyOverview(r.Context(), year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := FinancialReportCSV(overview)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.attach(w, "financial-report", data)
}

// NetWorth streams the cumulative net worth statement over the last months
// (default twelve).
func (h *Handler) NetWorth(w http.ResponseWriter, r *http.Request) {
	months := 0
	if v := r.URL.Query().Get("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid months: "+v, http.StatusBadRequest)
			return
		}
		months = parsed
	}

	points, err := h.analytics.NetWorth(r.Context(), months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := NetWorthCSV(points)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.attach(w, "net-worth", data)
}

func (h *Handler) attach(w http.ResponseWriter, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.csv", name, h.clock.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		log.Errorf("failed to write csv response: %v", err)
	}
}

func filterFromQuery(r *http.Request) (transaction.Filter, error) {
	q := r.URL.Query()
	filter := transaction.Filter{
		Category:  q.Get("category"),
		SortBy:    "date",
		SortOrder: "asc",
	}

	if v := q.Get("type"); v != "" {
		txType, err := transaction.ParseType(v)
		if err != nil {
			return transaction.Filter{}, err
		}
		filter.Type = txType
	}

	parse := func(name string) (*time.Time, error) {
		v := q.Get(name)
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", name, v)
		}
		return &t, nil
	}

	var err error
	if filter.StartDate, err = parse("startDate"); err != nil {
		return transaction.Filter{}, err
	}
	if filter.EndDate, err = parse("endDate"); err != nil {
		return transaction.Filter{}, err
	}
	return filter, nil
}
