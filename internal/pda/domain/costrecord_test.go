package pda

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"portledger/internal/money"
)

func TestCostRecord_SetManualRejectsNegative(t *testing.T) {
	record := NewCostRecord()
	err := record.SetManual(CategoryPilotageIn, decimal.RequireFromString("-1"))
	if !errors.Is(err, money.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestCostRecord_SetManualRejectsUnknownCategory(t *testing.T) {
	record := NewCostRecord()
	err := record.SetManual(Category("bunkers"), decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestCostRecord_AutoPricingNeverOverwritesManual(t *testing.T) {
	record := NewCostRecord()
	if err := record.SetManual(CategoryPilotageIn, decimal.NewFromInt(1500)); err != nil {
		t.Fatalf("set manual: %v", err)
	}
	quote := map[Category]decimal.Decimal{
		CategoryPilotageIn: decimal.NewFromInt(1200),
		CategoryTowageIn:   decimal.NewFromInt(5400),
	}
	if err := record.ApplyAutoPricing(quote); err != nil {
		t.Fatalf("apply auto pricing: %v", err)
	}
	if !record.Amount(CategoryPilotageIn).Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("manual pilotage overwritten: got %s", record.Amount(CategoryPilotageIn))
	}
	if !record.Entries[CategoryPilotageIn].Manual {
		t.Fatal("pilotage entry lost its manual flag")
	}
	if !record.Amount(CategoryTowageIn).Equal(decimal.NewFromInt(5400)) {
		t.Fatalf("auto towage not set: got %s", record.Amount(CategoryTowageIn))
	}
	if record.Entries[CategoryTowageIn].Manual {
		t.Fatal("auto towage entry flagged manual")
	}
}

func TestCostRecord_AutoPricingSkipsManualOnlyCategories(t *testing.T) {
	record := NewCostRecord()
	quote := map[Category]decimal.Decimal{
		CategoryAgencyFee: decimal.NewFromInt(9804),
	}
	if err := record.ApplyAutoPricing(quote); err != nil {
		t.Fatalf("apply auto pricing: %v", err)
	}
	if !record.Amount(CategoryAgencyFee).IsZero() {
		t.Fatalf("agency fee is not auto-priced, got %s", record.Amount(CategoryAgencyFee))
	}
}

func TestCostRecord_CustomLines(t *testing.T) {
	record := NewCostRecord()
	if err := record.AddCustomLine("Garbage removal", "Per call"); err != nil {
		t.Fatalf("add custom line: %v", err)
	}
	if !record.CustomLines[0].AmountUSD.IsZero() {
		t.Fatalf("custom line must start at zero, got %s", record.CustomLines[0].AmountUSD)
	}
	if err := record.AddCustomLine("", ""); !errors.Is(err, ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
	if err := record.UpdateCustomLine(0, decimal.NewFromInt(350), "Per call"); err != nil {
		t.Fatalf("update custom line: %v", err)
	}
	if err := record.UpdateCustomLine(3, decimal.Zero, ""); !errors.Is(err, ErrCustomLineIndex) {
		t.Fatalf("expected ErrCustomLineIndex, got %v", err)
	}
	if err := record.RemoveCustomLine(0); err != nil {
		t.Fatalf("remove custom line: %v", err)
	}
	if len(record.CustomLines) != 0 {
		t.Fatalf("expected no custom lines, got %d", len(record.CustomLines))
	}
}

func TestCostRecord_TotalUSD(t *testing.T) {
	record := NewCostRecord()
	_ = record.SetManual(CategoryPilotageIn, decimal.NewFromInt(1200))
	_ = record.SetManual(CategoryAgencyFee, decimal.NewFromInt(9804))
	_ = record.AddCustomLine("Garbage removal", "")
	_ = record.UpdateCustomLine(0, decimal.NewFromInt(350), "")
	want := decimal.NewFromInt(11354)
	if !record.TotalUSD().Equal(want) {
		t.Fatalf("total = %s, want %s", record.TotalUSD(), want)
	}
}

func TestCostRecord_CloneIsDetached(t *testing.T) {
	record := NewCostRecord()
	_ = record.SetManual(CategoryPilotageIn, decimal.NewFromInt(1200))
	_ = record.AddCustomLine("Garbage removal", "")
	clone := record.Clone()
	_ = record.SetManual(CategoryPilotageIn, decimal.NewFromInt(9999))
	_ = record.UpdateCustomLine(0, decimal.NewFromInt(500), "")
	if !clone.Amount(CategoryPilotageIn).Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("clone followed source edit: %s", clone.Amount(CategoryPilotageIn))
	}
	if !clone.CustomLines[0].AmountUSD.IsZero() {
		t.Fatalf("clone custom line followed source edit: %s", clone.CustomLines[0].AmountUSD)
	}
}
