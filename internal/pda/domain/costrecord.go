package pda

import (
	"github.com/shopspring/decimal"

	"portledger/internal/money"
)

// Entry is a single cost category value tagged by origin. A manual entry is
// never overwritten by auto pricing.
type Entry struct {
	Amount decimal.Decimal `json:"amount"`
	Manual bool            `json:"manual"`
}

// CustomLine is an ad hoc expense outside the fixed category list.
type CustomLine struct {
	Label     string          `json:"label"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Comment   string          `json:"comment,omitempty"`
}

// CostRecord holds the USD amounts for every fixed category plus any custom
// lines. Entries are stored in a map but every iteration goes through
// Categories() so ordering stays stable.
type CostRecord struct {
	Entries     map[Category]Entry `json:"entries"`
	CustomLines []CustomLine       `json:"custom_lines,omitempty"`
}

// NewCostRecord builds a cost record with every category at zero.
func NewCostRecord() *CostRecord {
	entries := make(map[Category]Entry, len(categoryOrder))
	for _, c := range categoryOrder {
		entries[c] = Entry{Amount: decimal.Zero}
	}
	return &CostRecord{Entries: entries}
}

// Amount returns the USD amount for a category, zero when unset.
func (r *CostRecord) Amount(c Category) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return r.Entries[c].Amount
}

// SetManual records a user-entered amount and flags the entry manual.
func (r *CostRecord) SetManual(c Category, amount decimal.Decimal) error {
	if _, ok := categoryInfo[c]; !ok {
		return ErrUnknownCategory
	}
	if err := money.EnsureNonNegative(amount); err != nil {
		return err
	}
	if r.Entries == nil {
		r.Entries = make(map[Category]Entry, len(categoryOrder))
	}
	r.Entries[c] = Entry{Amount: amount, Manual: true}
	return nil
}

// ApplyAutoPricing writes oracle quotes into auto-priced categories.
// Entries already flagged manual keep their value.
func (r *CostRecord) ApplyAutoPricing(quote map[Category]decimal.Decimal) error {
	if r.Entries == nil {
		r.Entries = make(map[Category]Entry, len(categoryOrder))
	}
	for _, c := range categoryOrder {
		amount, ok := quote[c]
		if !ok {
			continue
		}
		if !categoryInfo[c].Auto {
			continue
		}
		if r.Entries[c].Manual {
			continue
		}
		if err := money.EnsureNonNegative(amount); err != nil {
			return err
		}
		r.Entries[c] = Entry{Amount: amount, Manual: false}
	}
	return nil
}

// AddCustomLine appends a custom line starting at zero.
func (r *CostRecord) AddCustomLine(label, comment string) error {
	if label == "" {
		return ErrEmptyLabel
	}
	r.CustomLines = append(r.CustomLines, CustomLine{
		Label:     label,
		AmountUSD: decimal.Zero,
		Comment:   comment,
	})
	return nil
}

// UpdateCustomLine changes amount and comment of an existing custom line.
func (r *CostRecord) UpdateCustomLine(index int, amount decimal.Decimal, comment string) error {
	if index < 0 || index >= len(r.CustomLines) {
		return ErrCustomLineIndex
	}
	if err := money.EnsureNonNegative(amount); err != nil {
		return err
	}
	r.CustomLines[index].AmountUSD = amount
	r.CustomLines[index].Comment = comment
	return nil
}

// RemoveCustomLine deletes a custom line by index.
func (r *CostRecord) RemoveCustomLine(index int) error {
	if index < 0 || index >= len(r.CustomLines) {
		return ErrCustomLineIndex
	}
	r.CustomLines = append(r.CustomLines[:index], r.CustomLines[index+1:]...)
	return nil
}

// TotalUSD sums the fixed categories and custom lines.
func (r *CostRecord) TotalUSD() decimal.Decimal {
	total := decimal.Zero
	if r == nil {
		return total
	}
	for _, c := range categoryOrder {
		total = total.Add(r.Entries[c].Amount)
	}
	for _, line := range r.CustomLines {
		total = total.Add(line.AmountUSD)
	}
	return total
}

// Validate checks every amount is non-negative and every key is known.
func (r *CostRecord) Validate() error {
	if r == nil {
		return nil
	}
	for c, entry := range r.Entries {
		if _, ok := categoryInfo[c]; !ok {
			return ErrUnknownCategory
		}
		if err := money.EnsureNonNegative(entry.Amount); err != nil {
			return err
		}
	}
	for _, line := range r.CustomLines {
		if line.Label == "" {
			return ErrEmptyLabel
		}
		if err := money.EnsureNonNegative(line.AmountUSD); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy. Conversion to an FDA works on a clone so the
// derived ledger is insulated from later PDA edits.
func (r *CostRecord) Clone() *CostRecord {
	if r == nil {
		return nil
	}
	clone := &CostRecord{Entries: make(map[Category]Entry, len(r.Entries))}
	for c, entry := range r.Entries {
		clone.Entries[c] = entry
	}
	if len(r.CustomLines) > 0 {
		clone.CustomLines = make([]CustomLine, len(r.CustomLines))
		copy(clone.CustomLines, r.CustomLines)
	}
	return clone
}
