package fda

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
	"portledger/internal/money"
	pda "portledger/internal/pda/domain"
)

func mustRate(t *testing.T, value string) fx.Rate {
	t.Helper()
	rate, err := fx.NewManualRate(decimal.RequireFromString(value))
	if err != nil {
		t.Fatalf("rate %s: %v", value, err)
	}
	return rate
}

func TestDeriveLedger_Example(t *testing.T) {
	cost := pda.NewCostRecord()
	if err := cost.SetManual(pda.CategoryPilotageIn, decimal.NewFromInt(1200)); err != nil {
		t.Fatalf("set pilotage: %v", err)
	}
	if err := cost.SetManual(pda.CategoryAgencyFee, decimal.NewFromInt(9804)); err != nil {
		t.Fatalf("set agency fee: %v", err)
	}

	lines, err := DeriveLedger(cost, mustRate(t, "5.25"), "Navix Chartering")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.LineNo != 1 || first.Side != pda.SideAP || first.Category != string(pda.CategoryPilotageIn) {
		t.Fatalf("unexpected first line: %+v", first)
	}
	if first.Counterparty != VendorPlaceholder {
		t.Fatalf("AP counterparty = %q", first.Counterparty)
	}
	if !first.AmountLocal.Equal(decimal.RequireFromString("6300")) {
		t.Fatalf("pilotage local = %s, want 6300.00", first.AmountLocal)
	}

	second := lines[1]
	if second.LineNo != 2 || second.Side != pda.SideAR || second.Category != string(pda.CategoryAgencyFee) {
		t.Fatalf("unexpected second line: %+v", second)
	}
	if second.Counterparty != "Navix Chartering" {
		t.Fatalf("AR counterparty = %q", second.Counterparty)
	}
	if !second.AmountLocal.Equal(decimal.RequireFromString("51471")) {
		t.Fatalf("agency local = %s, want 51471.00", second.AmountLocal)
	}

	for _, line := range lines {
		if line.Status != LineOpen {
			t.Fatalf("line %d starts %s, want open", line.LineNo, line.Status)
		}
	}

	totals := Aggregate(lines)
	if !totals.APUSD.Equal(decimal.NewFromInt(1200)) || !totals.ARUSD.Equal(decimal.NewFromInt(9804)) {
		t.Fatalf("totals = %+v", totals)
	}
	if !totals.NetUSD.Equal(decimal.NewFromInt(8604)) {
		t.Fatalf("net = %s, want 8604", totals.NetUSD)
	}
}

func TestDeriveLedger_Idempotent(t *testing.T) {
	cost := pda.NewCostRecord()
	_ = cost.SetManual(pda.CategoryPilotageIn, decimal.RequireFromString("1200.50"))
	_ = cost.SetManual(pda.CategoryDockage, decimal.RequireFromString("2100"))
	_ = cost.SetManual(pda.CategoryAgencyFee, decimal.RequireFromString("9804"))
	_ = cost.AddCustomLine("Garbage removal", "Per call")
	_ = cost.UpdateCustomLine(0, decimal.RequireFromString("350"), "Per call")
	rate := mustRate(t, "5.4321")

	first, err := DeriveLedger(cost, rate, "Navix Chartering")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := DeriveLedger(cost, rate, "Navix Chartering")
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("derivation not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestDeriveLedger_SkipsZeroWithoutConsumingLineNo(t *testing.T) {
	cost := pda.NewCostRecord()
	_ = cost.SetManual(pda.CategoryTowageIn, decimal.NewFromInt(5400))
	_ = cost.SetManual(pda.CategoryWaterwayFee, decimal.NewFromInt(800))

	lines, err := DeriveLedger(cost, mustRate(t, "5"), "Client")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if line.LineNo != i+1 {
			t.Fatalf("line numbers not dense: %+v", lines)
		}
	}
	if lines[0].Category != string(pda.CategoryTowageIn) || lines[1].Category != string(pda.CategoryWaterwayFee) {
		t.Fatalf("category order broken: %+v", lines)
	}
}

func TestDeriveLedger_CustomLinesAfterFixedCategories(t *testing.T) {
	cost := pda.NewCostRecord()
	_ = cost.SetManual(pda.CategoryAgencyFee, decimal.NewFromInt(9804))
	_ = cost.AddCustomLine("Garbage removal", "")
	_ = cost.UpdateCustomLine(0, decimal.NewFromInt(350), "")
	_ = cost.AddCustomLine("Zero line", "")

	lines, err := DeriveLedger(cost, mustRate(t, "5"), "Client")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (zero custom skipped), got %d", len(lines))
	}
	custom := lines[1]
	if custom.Category != CategoryCustom || custom.Side != pda.SideAP {
		t.Fatalf("unexpected custom line: %+v", custom)
	}
	if custom.Description != "Garbage removal" || custom.Counterparty != VendorPlaceholder {
		t.Fatalf("unexpected custom line: %+v", custom)
	}
}

func TestDeriveLedger_EmptyCostRecord(t *testing.T) {
	lines, err := DeriveLedger(pda.NewCostRecord(), mustRate(t, "5.25"), "Client")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}

func TestDeriveLedger_InvalidRate(t *testing.T) {
	cost := pda.NewCostRecord()
	_ = cost.SetManual(pda.CategoryPilotageIn, decimal.NewFromInt(1200))
	_, err := DeriveLedger(cost, fx.Rate{Value: decimal.Zero}, "Client")
	if !errors.Is(err, money.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestLedgerLine_RepriceWithOverride(t *testing.T) {
	line := LedgerLine{AmountUSD: decimal.NewFromInt(1200)}
	if err := line.Reprice(decimal.RequireFromString("5.25")); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if !line.AmountLocal.Equal(decimal.RequireFromString("6300")) {
		t.Fatalf("header rate local = %s", line.AmountLocal)
	}
	override := decimal.RequireFromString("5.50")
	line.RateOverride = &override
	if err := line.Reprice(decimal.RequireFromString("5.25")); err != nil {
		t.Fatalf("reprice override: %v", err)
	}
	if !line.AmountLocal.Equal(decimal.RequireFromString("6600")) {
		t.Fatalf("override local = %s, want 6600", line.AmountLocal)
	}
}

func TestNormalizeSide(t *testing.T) {
	if side, ok := NormalizeSide("ar"); !ok || side != pda.SideAR {
		t.Fatalf("NormalizeSide(ar) = %s, %v", side, ok)
	}
	if _, ok := NormalizeSide("payable"); ok {
		t.Fatal("expected payable to be rejected")
	}
}

func TestNormalizeLineStatus(t *testing.T) {
	for _, value := range []string{"open", "partially_settled", "settled"} {
		if _, ok := NormalizeLineStatus(value); !ok {
			t.Fatalf("expected %q to normalize", value)
		}
	}
	if _, ok := NormalizeLineStatus("paid"); ok {
		t.Fatal("expected paid to be rejected")
	}
}
