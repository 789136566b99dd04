package fda

import (
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
	"portledger/internal/money"
	pda "portledger/internal/pda/domain"
)

// LineStatus is the settlement state of a ledger line.
type LineStatus string

const (
	LineOpen             LineStatus = "open"
	LinePartiallySettled LineStatus = "partially_settled"
	LineSettled          LineStatus = "settled"
)

// CategoryCustom tags ledger lines derived from custom cost lines.
const CategoryCustom = "custom"

// VendorPlaceholder is the counterparty for payable lines until a vendor
// is assigned.
const VendorPlaceholder = "Vendor — to assign"

// LedgerLine is a single payable or receivable row of an FDA.
// AmountLocal always equals round2(AmountUSD * effective rate), where the
// effective rate is RateOverride when set, else the FDA header rate.
type LedgerLine struct {
	FDAID        string           `json:"-"`
	LineNo       int              `json:"line_no"`
	Side         pda.Side         `json:"side"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Counterparty string           `json:"counterparty"`
	AmountUSD    decimal.Decimal  `json:"amount_usd"`
	AmountLocal  decimal.Decimal  `json:"amount_local"`
	RateOverride *decimal.Decimal `json:"rate_override,omitempty"`
	InvoiceNo    string           `json:"invoice_no,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Status       LineStatus       `json:"status"`
	SettledAt    *time.Time       `json:"settled_at,omitempty"`
}

// EffectiveRate returns the rate the line converts at.
func (l LedgerLine) EffectiveRate(headerRate decimal.Decimal) decimal.Decimal {
	if l.RateOverride != nil {
		return *l.RateOverride
	}
	return headerRate
}

// Reprice recomputes AmountLocal from AmountUSD and the effective rate.
func (l *LedgerLine) Reprice(headerRate decimal.Decimal) error {
	local, err := money.ToLocal(l.AmountUSD, l.EffectiveRate(headerRate))
	if err != nil {
		return err
	}
	l.AmountLocal = local
	return nil
}

// DeriveLedger transforms an approved cost record into ledger lines.
//
// Fixed categories are walked in their canonical order, then custom lines in
// list order. Amounts at or below zero are skipped and do not consume a line
// number, so numbering is dense over emitted lines only. The derivation is
// deterministic: the same cost record and rate always produce the same list.
func DeriveLedger(cost *pda.CostRecord, rate fx.Rate, clientName string) ([]LedgerLine, error) {
	if rate.Value.Sign() <= 0 {
		return nil, money.ErrInvalidRate
	}

	var lines []LedgerLine
	lineNo := 0
	for _, category := range pda.Categories() {
		amount := cost.Amount(category)
		if amount.Sign() <= 0 {
			continue
		}
		info, _ := pda.Info(category)
		local, err := money.ToLocal(amount, rate.Value)
		if err != nil {
			return nil, err
		}
		lineNo++
		lines = append(lines, LedgerLine{
			LineNo:       lineNo,
			Side:         info.Side,
			Category:     string(category),
			Description:  info.Label,
			Counterparty: counterpartyFor(info.Side, clientName),
			AmountUSD:    amount,
			AmountLocal:  local,
			Status:       LineOpen,
		})
	}
	if cost != nil {
		for _, custom := range cost.CustomLines {
			if custom.AmountUSD.Sign() <= 0 {
				continue
			}
			local, err := money.ToLocal(custom.AmountUSD, rate.Value)
			if err != nil {
				return nil, err
			}
			lineNo++
			lines = append(lines, LedgerLine{
				LineNo:       lineNo,
				Side:         pda.SideAP,
				Category:     CategoryCustom,
				Description:  custom.Label,
				Counterparty: VendorPlaceholder,
				AmountUSD:    custom.AmountUSD,
				AmountLocal:  local,
				Status:       LineOpen,
			})
		}
	}
	return lines, nil
}

func counterpartyFor(side pda.Side, clientName string) string {
	if side == pda.SideAR {
		return clientName
	}
	return VendorPlaceholder
}

// NormalizeSide validates a ledger side string.
func NormalizeSide(value string) (pda.Side, bool) {
	switch pda.Side(value) {
	case pda.SideAP, pda.SideAR:
		return pda.Side(value), true
	default:
		return "", false
	}
}

// NormalizeLineStatus validates a line status string.
func NormalizeLineStatus(value string) (LineStatus, bool) {
	switch LineStatus(value) {
	case LineOpen, LinePartiallySettled, LineSettled:
		return LineStatus(value), true
	default:
		return "", false
	}
}
