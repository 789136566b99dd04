package pda

import (
	"time"

	"portledger/internal/fx"
)

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
)

// ShipParticulars holds the vessel and berth attributes tariff pricing
// depends on.
type ShipParticulars struct {
	VesselName string  `json:"vessel_name"`
	IMO        string  `json:"imo,omitempty"`
	DWT        float64 `json:"dwt"`
	LOA        float64 `json:"loa"`
	PortName   string  `json:"port_name"`
	Terminal   string  `json:"terminal,omitempty"`
	Berth      string  `json:"berth,omitempty"`
}

// PDA is a Port Disbursement Account: the pre-arrival cost estimate for a
// port call, owned by one tenant.
type PDA struct {
	ID         string
	TenantID   string
	ClientName string
	Ship       ShipParticulars
	Rate       fx.Rate
	Cost       *CostRecord
	Remarks    string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt time.Time
}

// New creates a draft PDA with an empty cost record.
func New(id, tenantID, clientName string, ship ShipParticulars, rate fx.Rate, now time.Time) (*PDA, error) {
	if clientName == "" {
		return nil, ErrEmptyClientName
	}
	return &PDA{
		ID:         id,
		TenantID:   tenantID,
		ClientName: clientName,
		Ship:       ship,
		Rate:       rate,
		Cost:       NewCostRecord(),
		Status:     StatusDraft,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

// SetRate replaces the exchange rate. Only permitted while draft; once
// approved the rate is frozen for conversion.
func (p *PDA) SetRate(rate fx.Rate) error {
	if p.Status != StatusDraft {
		return ErrNotDraft
	}
	p.Rate = rate
	return nil
}

// Approve freezes the cost record for FDA conversion.
func (p *PDA) Approve(now time.Time) error {
	if p.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	if p.Status != StatusDraft {
		return ErrNotDraft
	}
	if err := p.Cost.Validate(); err != nil {
		return err
	}
	p.Status = StatusApproved
	p.ApprovedAt = now.UTC()
	p.UpdatedAt = now.UTC()
	return nil
}
