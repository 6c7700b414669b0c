// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input,
// the amount validation policy and display formatting.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol prefixes formatted amounts.
const DefaultCurrencySymbol = "₱"

// AmountPolicy decides what happens to amounts that do not parse.
type AmountPolicy string

const (
	// CoerceAmounts turns invalid or missing amounts into zero.
	CoerceAmounts AmountPolicy = "coerce"
	// RejectInvalidAmounts fails the mutation with ErrInvalidAmount.
	RejectInvalidAmounts AmountPolicy = "reject"
)

func (p AmountPolicy) IsValid() bool {
	return p == CoerceAmounts || p == RejectInvalidAmounts
}

// Apply parses s according to the policy. Under CoerceAmounts it never fails.
func (p AmountPolicy) Apply(s string) (decimal.Decimal, error) {
	amount, err := ParseAmount(s)
	if err == nil {
		return amount, nil
	}
	if p == RejectInvalidAmounts {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

// maxAmountExponent bounds exponent notation so "1e999999" cannot expand
// into a huge digit string.
const maxAmountExponent = 18

// ParseAmount converts a non-negative decimal string to a decimal amount.
//
// A dot is always the decimal separator. Commas followed by groups of exactly
// three digits separate thousands; a single comma followed by any other number
// of digits is a decimal comma. Exponent notation as produced by JSON encoders
// is accepted. Signs, letters, blanks and misplaced separators are rejected
// with ErrInvalidAmount. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34, nil
//	ParseAmount("12,34")     -> 12.34, nil
//	ParseAmount("1,234")     -> 1234, nil
//	ParseAmount("1,234,567") -> 1234567, nil
//	ParseAmount("1,234.56")  -> 1234.56, nil
//	ParseAmount("1e3")       -> 1000, nil
//	ParseAmount("-1")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only non-negative values; the sign lives in the transaction type
		return decimal.Zero, ErrInvalidAmount
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return parseExponent(s[:i], s[i+1:])
	}

	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	if !isPlainDecimal(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// normalizeSeparators rewrites commas into the dot-decimal form.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	integer, fraction, hasDot := strings.Cut(s, ".")
	groups := strings.Split(integer, ",")
	if !hasDot && len(groups) == 2 && len(groups[1]) != 3 {
		return groups[0] + "." + groups[1], true
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	out := strings.Join(groups, "")
	if hasDot {
		out += "." + fraction
	}
	return out, true
}

// isPlainDecimal reports whether s is ASCII digits with at most one dot and
// at least one digit.
func isPlainDecimal(s string) bool {
	integer, fraction, _ := strings.Cut(s, ".")
	if integer == "" && fraction == "" {
		return false
	}
	for _, part := range []string{integer, fraction} {
		for _, r := range part {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return false
			}
		}
	}
	return true
}

func parseExponent(mantissa, exponent string) (decimal.Decimal, error) {
	if !isPlainDecimal(mantissa) {
		return decimal.Zero, ErrInvalidAmount
	}
	exp, err := strconv.Atoi(exponent)
	if err != nil || exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(mantissa, ".") {
		mantissa = "0" + mantissa
	}
	m, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return m.Shift(int32(exp)), nil
}

// FormatMoney renders an amount with two decimals and thousands grouping,
// e.g. FormatMoney("₱", 1234.5) -> "₱1,234.50". Negative values keep their
// sign after the symbol.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	return symbol + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}

// NewID returns a new opaque transaction identifier.
func NewID() string {
	return uuid.NewString()
}
