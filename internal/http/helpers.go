package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pfledger/internal/core"
)

// moneyView carries an amount both as a decimal string and for display.
type moneyView struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

type transactionView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Amount      moneyView `json:"amount"`
	Date        string    `json:"date"`
	Category    string    `json:"category"`
	Month       string    `json:"month"`
}

type summaryView struct {
	Balance      moneyView `json:"balance"`
	TotalIncome  moneyView `json:"total_income"`
	TotalExpense moneyView `json:"total_expense"`
}

type analyticsView struct {
	Month          string    `json:"month"`
	MonthIncome    moneyView `json:"month_income"`
	MonthExpense   moneyView `json:"month_expense"`
	TopCategory    string    `json:"top_category"`
	HighestExpense moneyView `json:"highest_expense"`
}

func (s *Server) money(d decimal.Decimal) moneyView {
	return moneyView{Raw: d.String(), Formatted: core.FormatMoney(s.symbol, d)}
}

func (s *Server) transaction(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Type:        string(t.Type),
		Description: t.Description,
		Amount:      s.money(t.Amount),
		Date:        t.Date,
		Category:    t.Category,
		Month:       t.Month,
	}
}

func (s *Server) transactions(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, s.transaction(t))
	}
	return out
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
