package transaction

import (
	"errors"
	"fmt"
	"time"
)

type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// ParseType returns the transaction Type matching s.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("invalid transaction type: %q", s)
}

type PaymentMethod string

const (
	Cash          PaymentMethod = "cash"
	CreditCard    PaymentMethod = "credit card"
	DebitCard     PaymentMethod = "debit card"
	BankTransfer  PaymentMethod = "bank transfer"
	DigitalWallet PaymentMethod = "digital wallet"
	Other         PaymentMethod = "other"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case Cash, CreditCard, DebitCard, BankTransfer, DigitalWallet, Other:
		return true
	}
	return false
}

// MaxNoteLength bounds the free-text note attached to a transaction.
const MaxNoteLength = 200

// Recurring is declarative metadata only: nothing in this application
// materializes future occurrences from it.
type Recurring struct {
	IsRecurring bool
	Frequency   string
	NextDate    time.Time
	EndDate     time.Time
}

// Transaction is a single financial event recorded by its owner. Amount is
// always positive; direction is carried by Type.
type Transaction struct {
	ID            int
	Amount        float64
	Type          Type
	Category      string
	Date          time.Time
	Note          string
	PaymentMethod PaymentMethod
	Tags          []string
	Recurring     Recurring
	CreatedAt     time.Time
}

// Validate checks the model invariants before a write.
func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if t.Type != Income && t.Type != Expense {
		return fmt.Errorf("invalid transaction type: %q", t.Type)
	}
	if t.Category == "" {
		return errors.New("category is required")
	}
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	if len(t.Note) > MaxNoteLength {
		return fmt.Errorf("note cannot be longer than %d characters", MaxNoteLength)
	}
	if t.PaymentMethod != "" && !ValidPaymentMethod(t.PaymentMethod) {
		return fmt.Errorf("invalid payment method: %q", t.PaymentMethod)
	}
	return nil
}

// Filter narrows list queries; zero values mean "no constraint".
type Filter struct {
	Type          Type
	Category      string
	PaymentMethod PaymentMethod
	StartDate     *time.Time
	EndDate       *time.Time
	MinAmount     *float64
	MaxAmount     *float64
	// Search matches note, category, and tags, case-insensitively.
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Summary is the aggregate over a set of transactions in a window.
type Summary struct {
	TotalSpent       float64
	TransactionCount int
	AverageAmount    float64
}

// Summarize aggregates the given transactions. The average is 0 when the
// set is empty.
func Summarize(txs []Transaction) Summary {
	s := Summary{TransactionCount: len(txs)}
	for _, tx := range txs {
		s.TotalSpent += tx.Amount
	}
	if s.TransactionCount > 0 {
		s.AverageAmount = s.TotalSpent / float64(s.TransactionCount)
	}
	return s
}
