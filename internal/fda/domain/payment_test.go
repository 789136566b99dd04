package fda

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStatusForPaid_Transitions(t *testing.T) {
	amount := decimal.NewFromInt(1200)

	if got := StatusForPaid(decimal.Zero, amount); got != LineOpen {
		t.Fatalf("no payments: %s", got)
	}
	// First payment of 300: open -> partially settled.
	if got := StatusForPaid(decimal.NewFromInt(300), amount); got != LinePartiallySettled {
		t.Fatalf("after 300: %s", got)
	}
	// Second payment of 900: 300+900 == 1200 -> settled.
	if got := StatusForPaid(decimal.NewFromInt(1200), amount); got != LineSettled {
		t.Fatalf("after 1200: %s", got)
	}
}

func TestStatusForPaid_ZeroAmountLineStaysOpen(t *testing.T) {
	if got := StatusForPaid(decimal.Zero, decimal.Zero); got != LineOpen {
		t.Fatalf("zero line: %s", got)
	}
}

func TestValidatePayment_RejectsOverpayment(t *testing.T) {
	line := LedgerLine{AmountUSD: decimal.NewFromInt(1200)}
	if err := ValidatePayment(line, decimal.NewFromInt(300), decimal.NewFromInt(900)); err != nil {
		t.Fatalf("exact settle should pass: %v", err)
	}
	err := ValidatePayment(line, decimal.NewFromInt(300), decimal.NewFromInt(901))
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
}

func TestValidatePayment_RejectsNonPositive(t *testing.T) {
	line := LedgerLine{AmountUSD: decimal.NewFromInt(1200)}
	for _, amount := range []string{"0", "-50"} {
		err := ValidatePayment(line, decimal.Zero, decimal.RequireFromString(amount))
		if !errors.Is(err, ErrNonPositivePayment) {
			t.Fatalf("amount %s: expected ErrNonPositivePayment, got %v", amount, err)
		}
	}
}

func TestPaidTotal_Monotonic(t *testing.T) {
	var payments []Payment
	previous := decimal.Zero
	for _, amount := range []int64{300, 500, 400} {
		payment, err := NewPayment("pay-1", "fda-1", 1, time.Now(), decimal.NewFromInt(amount), decimal.RequireFromString("5.25"), "wire", "", time.Now())
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		payments = append(payments, payment)
		total := PaidTotal(payments)
		if total.LessThan(previous) {
			t.Fatalf("paid total decreased: %s < %s", total, previous)
		}
		previous = total
	}
}

func TestNewPayment_LocalUsesPaymentRate(t *testing.T) {
	payment, err := NewPayment("pay-1", "fda-1", 1, time.Now(), decimal.NewFromInt(300), decimal.RequireFromString("5.10"), "wire", "ref-1", time.Now())
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	if !payment.AmountLocal.Equal(decimal.RequireFromString("1530")) {
		t.Fatalf("local = %s, want 1530.00", payment.AmountLocal)
	}
}
