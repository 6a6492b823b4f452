package app

import (
	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/mail"
	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/alert"
	"github.com/fintrack/fintrack/pkg/analytics"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/export"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Mailer   mail.Mailer

	UserService user.Service
	UserHandler *user.Handler

	TransactionRepo    transaction.Repo
	TransactionService transaction.Service
	TransactionHandler *transaction.Handler

	BudgetRepo    budget.Repo
	BudgetService budget.Service
	BudgetHandler *budget.Handler

	AlertEvaluator *alert.Evaluator
	AlertNotifier  *alert.Notifier
	AlertHandler   *alert.Handler

	AnalyticsService analytics.Service
	AnalyticsHandler *analytics.Handler

	ExportHandler *export.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	deps.Mailer = mail.NewSMTPMailer(cfg.Mail)

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.TransactionRepo = transaction.NewRepo(db)
	deps.TransactionService = transaction.NewService(deps.TransactionRepo, deps.EventBus, deps.Clock)
	deps.TransactionHandler = transaction.NewHandler(deps.TransactionService)

	deps.AlertEvaluator = alert.NewEvaluator(deps.TransactionRepo)

	deps.BudgetRepo = budget.NewRepo(db)
	deps.BudgetService = budget.NewService(deps.BudgetRepo, deps.AlertEvaluator, deps.TransactionRepo, deps.Clock)
	deps.BudgetHandler = budget.NewHandler(deps.BudgetService)

	deps.AlertNotifier = alert.NewNotifier(deps.BudgetRepo, deps.AlertEvaluator, deps.Mailer, cfg.Host)
	deps.AlertNotifier.Register(deps.EventBus)
	deps.AlertHandler = alert.NewHandler(deps.BudgetRepo, deps.AlertEvaluator, deps.Clock)

	deps.AnalyticsService = analytics.NewService(deps.TransactionRepo, deps.Clock)
	deps.AnalyticsHandler = analytics.NewHandler(deps.AnalyticsService, deps.Clock)

	deps.ExportHandler = export.NewHandler(deps.TransactionService, deps.BudgetService, deps.AnalyticsService, deps.Clock)

	return deps
}
