package interfaces

import (
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
	"portledger/internal/money"
	pda "portledger/internal/pda/domain"
)

type rateDTO struct {
	Value    decimal.Decimal `json:"value"`
	Source   string          `json:"source"`
	QuotedAt *time.Time      `json:"quoted_at,omitempty"`
}

type costLineDTO struct {
	Category    string          `json:"category"`
	Label       string          `json:"label"`
	Side        string          `json:"side"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	AmountLocal decimal.Decimal `json:"amount_local"`
	Manual      bool            `json:"manual"`
}

type customLineDTO struct {
	Label       string          `json:"label"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	AmountLocal decimal.Decimal `json:"amount_local"`
	Comment     string          `json:"comment,omitempty"`
}

type pdaDTO struct {
	ID          string              `json:"id"`
	ClientName  string              `json:"client_name"`
	Ship        pda.ShipParticulars `json:"ship"`
	Rate        rateDTO             `json:"exchange_rate"`
	Costs       []costLineDTO       `json:"costs"`
	CustomLines []customLineDTO     `json:"custom_lines"`
	TotalUSD    decimal.Decimal     `json:"total_usd"`
	TotalLocal  decimal.Decimal     `json:"total_local"`
	Remarks     string              `json:"remarks,omitempty"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ApprovedAt  *time.Time          `json:"approved_at,omitempty"`
}

func toRateDTO(rate fx.Rate) rateDTO {
	return rateDTO{Value: rate.Value, Source: string(rate.Source), QuotedAt: rate.QuotedAt}
}

func toPDADTO(p *pda.PDA) pdaDTO {
	dto := pdaDTO{
		ID:         p.ID,
		ClientName: p.ClientName,
		Ship:       p.Ship,
		Rate:       toRateDTO(p.Rate),
		Remarks:    p.Remarks,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if !p.ApprovedAt.IsZero() {
		approvedAt := p.ApprovedAt
		dto.ApprovedAt = &approvedAt
	}

	for _, category := range pda.Categories() {
		info, _ := pda.Info(category)
		amount := p.Cost.Amount(category)
		local, err := money.ToLocal(amount, p.Rate.Value)
		if err != nil {
			local = decimal.Zero
		}
		dto.Costs = append(dto.Costs, costLineDTO{
			Category:    string(category),
			Label:       info.Label,
			Side:        string(info.Side),
			AmountUSD:   amount,
			AmountLocal: local,
			Manual:      p.Cost.Entries[category].Manual,
		})
	}
	for _, line := range p.Cost.CustomLines {
		local, err := money.ToLocal(line.AmountUSD, p.Rate.Value)
		if err != nil {
			local = decimal.Zero
		}
		dto.CustomLines = append(dto.CustomLines, customLineDTO{
			Label:       line.Label,
			AmountUSD:   line.AmountUSD,
			AmountLocal: local,
			Comment:     line.Comment,
		})
	}

	dto.TotalUSD = p.Cost.TotalUSD()
	if local, err := money.ToLocal(dto.TotalUSD, p.Rate.Value); err == nil {
		dto.TotalLocal = local
	}
	return dto
}
