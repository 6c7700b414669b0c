package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"1,234.56", "1234.56", true},
		{".5", "0.5", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"5000", "5000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,234", "1234", true},
		{"1,234,567", "1234567", true},
		{"1,234,567.5", "1234567.5", true},
		{"12,5", "12.5", true},
		{"1,5000", "1.5", true},
		{"12,34,567", "", false},
		{"1,2,3", "", false},
		{"1234,567.8", "", false},
		{"1e3", "1000", true},
		{"1E3", "1000", true},
		{"1.5e2", "150", true},
		{"25e-2", "0.25", true},
		{"1e+3", "1000", true},
		{"1e", "", false},
		{"e3", "", false},
		{"1e-3x", "", false},
		{"1e999999", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestAmountPolicy(t *testing.T) {
	if !CoerceAmounts.IsValid() || !RejectInvalidAmounts.IsValid() || AmountPolicy("lenient").IsValid() {
		t.Fatalf("unexpected policy validity")
	}
	got, err := CoerceAmounts.Apply("")
	if err != nil || !got.IsZero() {
		t.Fatalf("coerce: got %s err=%v", got, err)
	}
	if _, err := RejectInvalidAmounts.Apply(""); err == nil {
		t.Fatalf("reject: expected error")
	}
	got, err = RejectInvalidAmounts.Apply("10")
	if err != nil || got.String() != "10" {
		t.Fatalf("reject valid: got %s err=%v", got, err)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(5000), "₱5,000.00"},
		{decimal.RequireFromString("1234567.891"), "₱1,234,567.89"},
		{decimal.Zero, "₱0.00"},
		{decimal.NewFromInt(-300), "₱-300.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(DefaultCurrencySymbol, tc.in); got != tc.want {
			t.Fatalf("FormatMoney(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
