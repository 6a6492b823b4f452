package app

import (
	"github.com/fintrack/fintrack/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Transactions
	r.HandleFunc("/api/transactions", deps.TransactionHandler.List).Methods("GET")
	r.HandleFunc("/api/transactions", deps.TransactionHandler.Create).Methods("POST")
	r.HandleFunc("/api/transactions/stats", deps.TransactionHandler.Stats).Methods("GET")
	r.HandleFunc("/api/transactions/recent", deps.TransactionHandler.Recent).Methods("GET")
	r.HandleFunc("/api/transactions/{id}", deps.TransactionHandler.Get).Methods("GET")
	r.HandleFunc("/api/transactions/{id}", deps.TransactionHandler.Update).Methods("PUT")
	r.HandleFunc("/api/transactions/{id}", deps.TransactionHandler.Delete).Methods("DELETE")

	// Budgets
	r.HandleFunc("/api/budgets", deps.BudgetHandler.List).Methods("GET")
	r.HandleFunc("/api/budgets", deps.BudgetHandler.Create).Methods("POST")
	r.HandleFunc("/api/budgets/alerts", deps.AlertHandler.List).Methods("GET")
	r.HandleFunc("/api/budgets/suggestions", deps.BudgetHandler.Suggestions).Methods("GET")
	r.HandleFunc("/api/budgets/bulk", deps.BudgetHandler.BulkUpsert).Methods("POST")
	r.HandleFunc("/api/budgets/performance", deps.BudgetHandler.Performance).Methods("GET")
	r.HandleFunc("/api/budgets/category/{category}/status", deps.BudgetHandler.CategoryStatus).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Get).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Update).Methods("PUT")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/budgets/{id}/toggle", deps.BudgetHandler.ToggleActive).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/copy", deps.BudgetHandler.CopyToNewPeriod).Methods("POST")

	// Analytics
	r.HandleFunc("/api/analytics/monthly-summary", deps.AnalyticsHandler.MonthlySummary).Methods("GET")
	r.HandleFunc("/api/analytics/category-spending", deps.AnalyticsHandler.CategorySpending).Methods("GET")
	r.HandleFunc("/api/analytics/spending-trends", deps.AnalyticsHandler.SpendingTrends).Methods("GET")
	r.HandleFunc("/api/analytics/financial-health", deps.AnalyticsHandler.FinancialHealth).Methods("GET")
	r.HandleFunc("/api/analytics/net-worth", deps.AnalyticsHandler.NetWorth).Methods("GET")
	r.HandleFunc("/api/analytics/yearly-overview", deps.AnalyticsHandler.YearlyOverview).Methods("GET")
	r.HandleFunc("/api/analytics/top-expenses", deps.AnalyticsHandler.TopExpenses).Methods("GET")
	r.HandleFunc("/api/analytics/income-vs-expense", deps.AnalyticsHandler.IncomeVsExpense).Methods("GET")
	r.HandleFunc("/api/analytics/cash-flow", deps.AnalyticsHandler.CashFlow).Methods("GET")

	// Dashboard
	r.HandleFunc("/api/dashboard/summary", deps.AnalyticsHandler.DashboardSummary).Methods("GET")

	// Export
	r.HandleFunc("/api/export/transactions", deps.ExportHandler.Transactions).Methods("GET")
	r.HandleFunc("/api/export/budgets", deps.ExportHandler.Budgets).Methods("GET")
	r.HandleFunc("/api/export/report", deps.ExportHandler.Report).Methods("GET")
	r.HandleFunc("/api/export/net-worth", deps.ExportHandler.NetWorth).Methods("GET")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/name-availability", deps.UserHandler.IsUsernameAvailable).Methods("GET").Queries("username", "{username}")
}
