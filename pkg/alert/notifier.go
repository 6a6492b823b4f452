package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"math"

	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/mail"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/period"
	"github.com/fintrack/fintrack/pkg/transaction"
	"github.com/fintrack/fintrack/pkg/user"
	log "github.com/sirupsen/logrus"
)

// BudgetFinder is the slice of the budget store the notifier needs.
type BudgetFinder interface {
	FindByCategory(ctx context.Context, userId int, category string) (budget.Budget, error)
}

// Notifier listens for recorded expenses and emails the owner when the
// category's budget crosses its notification threshold. It runs inline with
// the write but never fails it: every error ends in a log line.
type Notifier struct {
	budgets   BudgetFinder
	evaluator *Evaluator
	mailer    mail.Mailer
	appURL    string
}

func NewNotifier(budgets BudgetFinder, evaluator *Evaluator, mailer mail.Mailer, appURL string) *Notifier {
	return &Notifier{budgets: budgets, evaluator: evaluator, mailer: mailer, appURL: appURL}
}

// Register subscribes the notifier on the bus. Edits can push a category
// over a threshold just like new expenses, so both events are watched.
// The returned function unsubscribes it.
func (n *Notifier) Register(bus *event_bus.EventBus) func() {
	created := event_bus.SubscribeTyped[transaction.Transaction](bus, event_bus.TransactionCreated, n.onTransaction)
	updated := event_bus.SubscribeTyped[transaction.Transaction](bus, event_bus.TransactionUpdated, n.onTransaction)
	return func() {
		created()
		updated()
	}
}

func (n *Notifier) onTransaction(e event_bus.EventT[transaction.Transaction]) error {
	ctx := e.Context()
	tx := e.Data

	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	b, err := n.budgets.FindByCategory(ctx, currentUser.Id, tx.Category)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		log.Tracef("no budget for category %q, skipping alert check", tx.Category)
		return nil
	} else if err != nil {
		return err
	}

	alert, fired, err := n.evaluator.CheckAlert(ctx, b, tx.Date)
	if err != nil {
		return err
	}
	if !fired {
		return nil
	}

	if currentUser.Email == "" {
		log.Warnf("budget alert fired for category %q but user %d has no email address", b.Category, currentUser.Id)
		return nil
	}

	message, err := n.render(currentUser, b, alert)
	if err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}
	if err := n.mailer.Send(message); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	log.Infof("budget alert (%s) sent to user %d for category %q", alert.Level, currentUser.Id, b.Category)
	return nil
}

var alertTemplate = template.Must(template.New("budgetAlert").Parse(`
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>{{.Headline}}</h2>
  <p>Hi {{.Name}},</p>
  <p>{{.Message}}</p>
  <table cellpadding="6">
    <tr><td>Category</td><td><strong>{{.Category}}</strong></td></tr>
    <tr><td>Period</td><td>{{.PeriodLabel}}</td></tr>
    <tr><td>Budget</td><td>{{printf "%.2f" .BudgetAmount}}</td></tr>
    <tr><td>Spent</td><td>{{printf "%.2f" .AmountSpent}} ({{.PercentageUsed}}%)</td></tr>
    <tr><td>Remaining</td><td>{{printf "%.2f" .Remaining}}</td></tr>
  </table>
  <p><a href="{{.BudgetURL}}">Review your budgets</a></p>
</body>
</html>
`))

type alertEmail struct {
	Headline       string
	Name           string
	Message        string
	Category       string
	PeriodLabel    string
	BudgetAmount   float64
	AmountSpent    float64
	PercentageUsed int
	Remaining      float64
	BudgetURL      string
}

func (n *Notifier) render(u user.User, b budget.Budget, alert Alert) (mail.Message, error) {
	subject := fmt.Sprintf("Budget alert for %s", b.Category)
	headline := "Budget threshold reached"
	if alert.Level == LevelDanger {
		subject = fmt.Sprintf("Budget exceeded for %s", b.Category)
		headline = "Budget exceeded"
	}

	name := u.DisplayName
	if name == "" {
		name = u.Username
	}

	data := alertEmail{
		Headline:       headline,
		Name:           name,
		Message:        alert.Message,
		Category:       b.Category,
		PeriodLabel:    period.Label(b.Period, alert.Period.Start),
		BudgetAmount:   b.Amount,
		AmountSpent:    alert.TotalSpent,
		PercentageUsed: int(math.Round(alert.PercentageUsed)),
		Remaining:      alert.Remaining,
		BudgetURL:      n.appURL + "/budgets",
	}

	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, data); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{To: u.Email, Subject: subject, HTML: body.String()}, nil
}
