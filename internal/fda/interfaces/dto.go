package interfaces

import (
	"time"

	"github.com/shopspring/decimal"

	fdaapp "portledger/internal/fda/application"
	fda "portledger/internal/fda/domain"
	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

type rateDTO struct {
	Value    decimal.Decimal `json:"value"`
	Source   string          `json:"source"`
	QuotedAt *time.Time      `json:"quoted_at,omitempty"`
}

type fdaDTO struct {
	ID             string              `json:"id"`
	PDAID          string              `json:"pda_id"`
	ClientName     string              `json:"client_name"`
	Ship           pda.ShipParticulars `json:"ship"`
	Rate           rateDTO             `json:"exchange_rate"`
	ClientSharePct decimal.Decimal     `json:"client_share_pct"`
	Remarks        string              `json:"remarks,omitempty"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	PostedAt       *time.Time          `json:"posted_at,omitempty"`
}

type viewDTO struct {
	fdaDTO
	Lines         []fda.LedgerLine       `json:"ledger"`
	Totals        fda.Totals             `json:"totals"`
	StatusCounts  map[fda.LineStatus]int `json:"status_counts"`
	DueFromClient decimal.Decimal        `json:"due_from_client_usd"`
}

func toRateDTO(rate fx.Rate) rateDTO {
	return rateDTO{Value: rate.Value, Source: string(rate.Source), QuotedAt: rate.QuotedAt}
}

func toFDADTO(f *fda.FDA) fdaDTO {
	dto := fdaDTO{
		ID:             f.ID,
		PDAID:          f.PDAID,
		ClientName:     f.ClientName,
		Ship:           f.Ship,
		Rate:           toRateDTO(f.Rate),
		ClientSharePct: f.ClientSharePct,
		Remarks:        f.Remarks,
		Status:         f.Status,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if !f.PostedAt.IsZero() {
		postedAt := f.PostedAt
		dto.PostedAt = &postedAt
	}
	return dto
}

func toViewDTO(view *fdaapp.View) viewDTO {
	lines := view.Lines
	if lines == nil {
		lines = []fda.LedgerLine{}
	}
	return viewDTO{
		fdaDTO:        toFDADTO(view.FDA),
		Lines:         lines,
		Totals:        view.Totals,
		StatusCounts:  fda.CountByStatus(lines),
		DueFromClient: view.DueFromClient,
	}
}
