package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	if err := (Date{Time: time.Time{}}).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("zero date: expected ErrInvalidDate, got %v", err)
	}
	if err := (Date{Time: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{" 2024-02-29 ", true},
		{"2023-02-29", false},
		{"2025-13-01", false},
		{"2025-04-31", false},
		{"0001-01-01", false},
		{"2025/01/01", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v (%s)", tc.in, err, d)
		}
	}
}

func TestMonthKey(t *testing.T) {
	cases := map[string]string{
		"2024-01-10":   "2024-01",
		" 2024-12-31 ": "2024-12",
		"2024-02-30":   "",
		"10/01/2024":   "",
		"":             "",
	}
	for in, want := range cases {
		if got := MonthKey(in); got != want {
			t.Fatalf("MonthKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDraftBuild(t *testing.T) {
	good := Draft{Type: "expense", Description: "  lunch ", Amount: "12.50", Date: "2024-03-05", Category: "Food"}
	tx, err := good.Build("abc", CoerceAmounts)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.ID != "abc" || tx.Type != Expense || tx.Description != "lunch" || tx.Month != "2024-03" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Amount.String() != "12.5" {
		t.Fatalf("unexpected amount %s", tx.Amount)
	}

	bads := []struct {
		d    Draft
		want error
	}{
		{Draft{Type: "transfer", Amount: "1", Date: "2024-03-05", Category: "Food"}, ErrInvalidType},
		{Draft{Type: "income", Amount: "1", Date: "", Category: "Food"}, ErrInvalidDate},
		{Draft{Type: "income", Amount: "1", Date: "2024-13-01", Category: "Food"}, ErrInvalidDate},
		{Draft{Type: "income", Amount: "1", Date: "2024-03-05", Category: "  "}, ErrEmptyCategory},
	}
	for i, tc := range bads {
		_, err := tc.d.Build("x", CoerceAmounts)
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput in chain, got %v", i, err)
		}
	}
}

func TestDraftBuildAmountPolicy(t *testing.T) {
	d := Draft{Type: "expense", Amount: "abc", Date: "2024-03-05", Category: "Food"}

	tx, err := d.Build("x", CoerceAmounts)
	if err != nil {
		t.Fatalf("coerce should not fail: %v", err)
	}
	if !tx.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", tx.Amount)
	}

	if _, err := d.Build("x", RejectInvalidAmounts); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	l := NewLedger()
	l.Transactions = append(l.Transactions, Transaction{ID: "a"})

	c := l.Clone()
	c.Categories[0] = "Changed"
	c.Transactions[0].ID = "b"

	if l.Categories[0] != "Food" || l.Transactions[0].ID != "a" {
		t.Fatalf("clone shares state with original: %+v", l)
	}
	if l.IndexOf("a") != 0 || l.IndexOf("zzz") != -1 {
		t.Fatalf("unexpected IndexOf results")
	}
	if !l.HasCategory("Bills") || l.HasCategory("bills") {
		t.Fatalf("HasCategory must be case-sensitive")
	}
}
