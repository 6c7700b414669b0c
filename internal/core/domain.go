package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// DateLayout is the ISO calendar date format used for transaction dates.
const DateLayout = "2006-01-02"

type (
	TxType string

	Date struct {
		time.Time
	}

	// Transaction is one income or expense record. Month is derived from
	// Date and is recomputed on every write.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TxType          `json:"type"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
		Category    string          `json:"category"`
		Month       string          `json:"month"`
	}

	// Draft carries raw user input for a transaction before validation.
	Draft struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Category    string `json:"category"`
	}

	// Ledger is the full set of categories and transactions under management.
	Ledger struct {
		Categories   []string      `json:"categories"`
		Transactions []Transaction `json:"transactions"`
	}
)

var (
	ErrNotFound     = errors.New("transaction not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidType     = fmt.Errorf("%w: type must be income or expense", ErrInvalidInput)
	ErrInvalidDate     = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrEmptyCategory   = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrInvalidInput)
)

// DefaultCategories seeds a ledger that has no persisted state.
var DefaultCategories = []string{"Food", "Bills", "Transportation", "Savings", "Shopping"}

// NewLedger returns the default seed state.
func NewLedger() Ledger {
	return Ledger{
		Categories:   append([]string(nil), DefaultCategories...),
		Transactions: []Transaction{},
	}
}

// Clone returns a deep copy so readers never share backing arrays with the owner.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		Categories:   append([]string(nil), l.Categories...),
		Transactions: append([]Transaction(nil), l.Transactions...),
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	return out
}

// HasCategory reports whether name is a known category (case-sensitive).
func (l Ledger) HasCategory(name string) bool {
	for _, c := range l.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the transaction with the given id, or -1.
func (l Ledger) IndexOf(id string) int {
	for i, t := range l.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (t TxType) IsValid() bool {
	return t == Income || t == Expense
}

// Validate rejects the zero date, which time.Parse yields for 0001-01-01.
// Calendar ranges are already enforced by ParseDate.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	d := Date{Time: t}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// MonthKey derives the YYYY-MM key from an ISO date string. Unparseable
// dates yield an empty key so they never match a real month.
func MonthKey(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return d.MonthKey()
}

// Build validates the draft and returns a transaction with the given id.
// Amount handling follows policy; all other invalid fields are rejected.
func (d Draft) Build(id string, policy AmountPolicy) (Transaction, error) {
	typ := TxType(strings.TrimSpace(d.Type))
	if !typ.IsValid() {
		return Transaction{}, ErrInvalidType
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Transaction{}, err
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		return Transaction{}, ErrEmptyCategory
	}
	amount, err := policy.Apply(d.Amount)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          id,
		Type:        typ,
		Description: strings.TrimSpace(d.Description),
		Amount:      amount,
		Date:        date.String(),
		Category:    category,
		Month:       date.MonthKey(),
	}, nil
}
