package fx

import (
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/money"
)

// RateSource identifies where an exchange rate came from.
type RateSource string

const (
	SourceManual RateSource = "manual"
	SourcePTAX   RateSource = "ptax"
)

// Rate is a USD to local currency exchange rate with provenance.
// Rates are copied by value onto derived documents so later edits to the
// source never change an already-converted ledger.
type Rate struct {
	Value    decimal.Decimal `json:"value"`
	Source   RateSource      `json:"source"`
	QuotedAt *time.Time      `json:"quoted_at,omitempty"`
}

// NewManualRate builds a manually entered rate.
func NewManualRate(value decimal.Decimal) (Rate, error) {
	if value.Sign() <= 0 {
		return Rate{}, money.ErrInvalidRate
	}
	return Rate{Value: value, Source: SourceManual}, nil
}

// NewFeedRate builds a rate sourced from an external feed.
func NewFeedRate(value decimal.Decimal, quotedAt time.Time) (Rate, error) {
	if value.Sign() <= 0 {
		return Rate{}, money.ErrInvalidRate
	}
	at := quotedAt.UTC()
	return Rate{Value: value, Source: SourcePTAX, QuotedAt: &at}, nil
}

// NormalizeSource validates a rate source string.
func NormalizeSource(value string) (RateSource, bool) {
	switch RateSource(value) {
	case SourceManual, SourcePTAX:
		return RateSource(value), true
	default:
		return "", false
	}
}
