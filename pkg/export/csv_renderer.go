package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/fintrack/fintrack/pkg/analytics"
	"github.com/fintrack/fintrack/pkg/budget"
	"github.com/fintrack/fintrack/pkg/transaction"
)

const dateLayout = "2006-01-02"

// TransactionsCSV renders transactions as a CSV document, newest ordering
// preserved from the caller.
func TransactionsCSV(transactions []transaction.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"DATE", "TYPE", "CATEGORY", "AMOUNT", "PAYMENT_METHOD", "NOTE", "TAGS"}); err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		record := []string{
			tx.Date.Format(dateLayout),
			string(tx.Type),
			tx.Category,
			formatAmount(tx.Amount),
			string(tx.PaymentMethod),
			tx.Note,
			strings.Join(tx.Tags, ";"),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// NetWorthCSV renders the cumulative net worth statement, oldest month
// first.
func NetWorthCSV(points []analytics.NetWorthPoint) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"PERIOD", "INCOME", "EXPENSE", "NET", "CUMULATIVE_NET_WORTH"}); err != nil {
		return nil, err
	}
	for _, p := range points {
		record := []string{
			p.Period,
			formatAmount(p.Income),
			formatAmount(p.Expense),
			formatAmount(p.Net),
			formatAmount(p.CumulativeNetWorth),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// BudgetReportCSV renders each budget with its current-period evaluation.
func BudgetReportCSV(statuses []budget.WithStatus) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"CATEGORY", "PERIOD", "BUDGET", "SPENT", "REMAINING", "PERCENTAGE", "STATUS"}); err != nil {
		return nil, err
	}
	for _, ws := range statuses {
		record := []string{
			ws.Budget.Category,
			string(ws.Budget.Period),
			formatAmount(ws.Budget.Amount),
			formatAmount(ws.Evaluation.TotalSpent),
			formatAmount(ws.Evaluation.Remaining),
			fmt.Sprintf("%.1f", ws.Evaluation.PercentageUsed),
			string(ws.Evaluation.Status),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// FinancialReportCSV renders a year overview, one row per month plus a totals
// row with the year's savings rate.
func FinancialReportCSV(overview analytics.YearlyOverview) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"PERIOD", "INCOME", "EXPENSES", "NET", "SAVINGS_RATE"}); err != nil {
		return nil, err
	}
	for _, m := range overview.Months {
		record := []string{
			m.Month,
			formatAmount(m.Income),
			formatAmount(m.Expense),
			formatAmount(m.Net),
			formatRate(m.Income, m.Net),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	totals := []string{
		fmt.Sprintf("TOTAL %d", overview.Year),
		formatAmount(overview.TotalIncome),
		formatAmount(overview.TotalExpenses),
		formatAmount(overview.NetBalance),
		formatRate(overview.TotalIncome, overview.NetBalance),
	}
	if err := writer.Write(totals); err != nil {
		return nil, err
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func formatRate(income, net float64) string {
	if income <= 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", net/income*100)
}
