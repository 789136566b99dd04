package fda

import (
	"github.com/shopspring/decimal"

	"portledger/internal/money"
	pda "portledger/internal/pda/domain"
)

// Totals is the settlement position of an FDA: payables, receivables and
// the net (AR - AP) on both currencies.
type Totals struct {
	APUSD    decimal.Decimal `json:"ap_usd"`
	APLocal  decimal.Decimal `json:"ap_local"`
	ARUSD    decimal.Decimal `json:"ar_usd"`
	ARLocal  decimal.Decimal `json:"ar_local"`
	NetUSD   decimal.Decimal `json:"net_usd"`
	NetLocal decimal.Decimal `json:"net_local"`
}

// Aggregate sums ledger lines by side.
func Aggregate(lines []LedgerLine) Totals {
	totals := Totals{
		APUSD:   decimal.Zero,
		APLocal: decimal.Zero,
		ARUSD:   decimal.Zero,
		ARLocal: decimal.Zero,
	}
	for _, line := range lines {
		switch line.Side {
		case pda.SideAP:
			totals.APUSD = totals.APUSD.Add(line.AmountUSD)
			totals.APLocal = totals.APLocal.Add(line.AmountLocal)
		case pda.SideAR:
			totals.ARUSD = totals.ARUSD.Add(line.AmountUSD)
			totals.ARLocal = totals.ARLocal.Add(line.AmountLocal)
		}
	}
	totals.NetUSD = totals.ARUSD.Sub(totals.APUSD)
	totals.NetLocal = totals.ARLocal.Sub(totals.APLocal)
	return totals
}

// DueFromClient applies the client share percentage to the payable total.
// The percentage is clamped to [0, 100]; out-of-range configuration must
// not produce negative or inflated balances.
func DueFromClient(apUSD, clientSharePct decimal.Decimal) decimal.Decimal {
	pct := clientSharePct
	if pct.Sign() < 0 {
		pct = decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return money.Round2(apUSD.Mul(pct).Div(hundred))
}

// CountByStatus tallies lines per settlement status.
func CountByStatus(lines []LedgerLine) map[LineStatus]int {
	counts := map[LineStatus]int{
		LineOpen:             0,
		LinePartiallySettled: 0,
		LineSettled:          0,
	}
	for _, line := range lines {
		counts[line.Status]++
	}
	return counts
}
