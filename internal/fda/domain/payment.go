package fda

import (
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/money"
)

// Payment is one settlement installment against a ledger line. AmountLocal
// uses the rate in force at payment time, not the FDA header rate.
type Payment struct {
	ID          string          `json:"id"`
	FDAID       string          `json:"-"`
	LineNo      int             `json:"line_no"`
	PaidAt      time.Time       `json:"paid_at"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	FxAtPayment decimal.Decimal `json:"fx_at_payment"`
	AmountLocal decimal.Decimal `json:"amount_local"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewPayment builds a payment, deriving the local amount from the payment
// time rate.
func NewPayment(id, fdaID string, lineNo int, paidAt time.Time, amountUSD, fxAtPayment decimal.Decimal, method, reference string, now time.Time) (Payment, error) {
	if err := money.EnsureNonNegative(amountUSD); err != nil {
		return Payment{}, err
	}
	local, err := money.ToLocal(amountUSD, fxAtPayment)
	if err != nil {
		return Payment{}, err
	}
	return Payment{
		ID:          id,
		FDAID:       fdaID,
		LineNo:      lineNo,
		PaidAt:      paidAt.UTC(),
		AmountUSD:   amountUSD,
		FxAtPayment: fxAtPayment,
		AmountLocal: local,
		Method:      method,
		Reference:   reference,
		CreatedAt:   now.UTC(),
	}, nil
}

// PaidTotal sums payment USD amounts.
func PaidTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountUSD)
	}
	return total
}

// StatusForPaid derives a line status from cumulative paid USD. Status only
// advances as payments accumulate; it regresses only through explicit undo,
// which recomputes from the remaining payments.
func StatusForPaid(paidUSD, amountUSD decimal.Decimal) LineStatus {
	switch {
	case paidUSD.GreaterThanOrEqual(amountUSD) && amountUSD.Sign() > 0:
		return LineSettled
	case paidUSD.Sign() > 0:
		return LinePartiallySettled
	default:
		return LineOpen
	}
}

// ValidatePayment rejects a payment that would push the cumulative sum past
// the line amount. Overpayments are a policy error, not silently summed.
func ValidatePayment(line LedgerLine, paidSoFar, paymentUSD decimal.Decimal) error {
	if paymentUSD.Sign() <= 0 {
		return ErrNonPositivePayment
	}
	if paidSoFar.Add(paymentUSD).GreaterThan(line.AmountUSD) {
		return ErrOverpayment
	}
	return nil
}
