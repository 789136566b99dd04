package fda

import (
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

const (
	StatusDraft  = "draft"
	StatusPosted = "posted"
)

// FDA is a Final Disbursement Account: the post-call actual-cost ledger
// derived from an approved PDA. The exchange rate is frozen by value at
// conversion time.
type FDA struct {
	ID             string
	TenantID       string
	PDAID          string
	ClientName     string
	Ship           pda.ShipParticulars
	Rate           fx.Rate
	ClientSharePct decimal.Decimal
	Remarks        string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PostedAt       time.Time
}

// NewFromPDA builds a draft FDA from an approved PDA.
func NewFromPDA(id string, source *pda.PDA, clientSharePct decimal.Decimal, now time.Time) (*FDA, error) {
	if source == nil {
		return nil, ErrSourceNotApproved
	}
	if source.Status != pda.StatusApproved {
		return nil, ErrSourceNotApproved
	}
	return &FDA{
		ID:             id,
		TenantID:       source.TenantID,
		PDAID:          source.ID,
		ClientName:     source.ClientName,
		Ship:           source.Ship,
		Rate:           source.Rate,
		ClientSharePct: clientSharePct,
		Status:         StatusDraft,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}, nil
}

// Post locks the FDA against structural ledger edits.
func (f *FDA) Post(now time.Time) error {
	if f.Status != StatusDraft {
		return ErrNotDraft
	}
	f.Status = StatusPosted
	f.PostedAt = now.UTC()
	f.UpdatedAt = now.UTC()
	return nil
}
