package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"portledger/internal/money"
	pda "portledger/internal/pda/domain"
)

// BuildPDAPDF renders a proforma disbursement account as a PDF.
func BuildPDAPDF(p *pda.PDA) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Proforma Disbursement Account")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Reference: %s", p.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Client: %s", p.ClientName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Vessel: %s (DWT %.0f, LOA %.1fm)", p.Ship.VesselName, p.Ship.DWT, p.Ship.LOA))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Port: %s", p.Ship.PortName))
	pdf.Ln(5)
	if p.Ship.Terminal != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Terminal: %s", p.Ship.Terminal))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Exchange Rate (USD/BRL): %s (%s)", p.Rate.Value.StringFixed(4), p.Rate.Source))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", p.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, "Side", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Amount (USD)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Amount (BRL)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)

	writeRow := func(label, side string, amountUSD decimal.Decimal) {
		local, err := money.ToLocal(amountUSD, p.Rate.Value)
		if err != nil {
			local = decimal.Zero
		}
		pdf.CellFormat(70, 6, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, side, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, amountUSD.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, local.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	for _, category := range pda.Categories() {
		amount := p.Cost.Amount(category)
		if amount.Sign() <= 0 {
			continue
		}
		info, _ := pda.Info(category)
		writeRow(info.Label, string(info.Side), amount)
	}
	for _, line := range p.Cost.CustomLines {
		if line.AmountUSD.Sign() <= 0 {
			continue
		}
		writeRow(line.Label, string(pda.SideAP), line.AmountUSD)
	}

	total := p.Cost.TotalUSD()
	totalLocal, err := money.ToLocal(total, p.Rate.Value)
	if err != nil {
		totalLocal = decimal.Zero
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, total.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, totalLocal.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if p.Remarks != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, "Remarks: "+p.Remarks, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
