package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fdaapp "portledger/internal/fda/application"
)

// BuildFDAPDF renders the final disbursement account as a PDF.
func BuildFDAPDF(view *fdaapp.View) ([]byte, error) {
	f := view.FDA
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Final Disbursement Account")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Reference: %s (from %s)", f.ID, f.PDAID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Client: %s", f.ClientName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Vessel: %s / Port: %s", f.Ship.VesselName, f.Ship.PortName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Exchange Rate (USD/BRL): %s (%s)", f.Rate.Value.StringFixed(4), f.Rate.Source))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", f.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(12, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(12, 6, "Side", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, "Counterparty", "1", 0, "L", false, 0, "")
	pdf.CellFormat(32, 6, "Amount (USD)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Amount (BRL)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Invoice", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, line := range view.Lines {
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", line.LineNo), "1", 0, "C", false, 0, "")
		pdf.CellFormat(12, 6, string(line.Side), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, line.Counterparty, "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 6, line.AmountUSD.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, line.AmountLocal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, line.InvoiceNo, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, string(line.Status), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Payable (AP): USD %s / BRL %s", view.Totals.APUSD.StringFixed(2), view.Totals.APLocal.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Receivable (AR): USD %s / BRL %s", view.Totals.ARUSD.StringFixed(2), view.Totals.ARLocal.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net (AR - AP): USD %s / BRL %s", view.Totals.NetUSD.StringFixed(2), view.Totals.NetLocal.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Due from client (%s%%): USD %s", f.ClientSharePct.StringFixed(0), view.DueFromClient.StringFixed(2)))
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFDAXLSX renders the final disbursement account as a workbook with a
// summary sheet and a ledger sheet.
func BuildFDAXLSX(view *fdaapp.View) ([]byte, error) {
	f := view.FDA
	book := excelize.NewFile()
	summarySheet := "summary"
	ledgerSheet := "ledger"
	book.SetSheetName("Sheet1", summarySheet)
	book.NewSheet(ledgerSheet)

	_ = book.SetCellValue(summarySheet, "A1", "Final Disbursement Account")
	_ = book.SetCellValue(summarySheet, "A3", "Reference")
	_ = book.SetCellValue(summarySheet, "B3", f.ID)
	_ = book.SetCellValue(summarySheet, "A4", "Source PDA")
	_ = book.SetCellValue(summarySheet, "B4", f.PDAID)
	_ = book.SetCellValue(summarySheet, "A5", "Client")
	_ = book.SetCellValue(summarySheet, "B5", f.ClientName)
	_ = book.SetCellValue(summarySheet, "A6", "Vessel")
	_ = book.SetCellValue(summarySheet, "B6", f.Ship.VesselName)
	_ = book.SetCellValue(summarySheet, "A7", "Port")
	_ = book.SetCellValue(summarySheet, "B7", f.Ship.PortName)
	_ = book.SetCellValue(summarySheet, "A8", "Exchange Rate")
	_ = book.SetCellValue(summarySheet, "B8", f.Rate.Value.StringFixed(4))
	_ = book.SetCellValue(summarySheet, "A9", "Status")
	_ = book.SetCellValue(summarySheet, "B9", f.Status)
	_ = book.SetCellValue(summarySheet, "A10", "AP (USD)")
	_ = book.SetCellValue(summarySheet, "B10", view.Totals.APUSD.StringFixed(2))
	_ = book.SetCellValue(summarySheet, "A11", "AR (USD)")
	_ = book.SetCellValue(summarySheet, "B11", view.Totals.ARUSD.StringFixed(2))
	_ = book.SetCellValue(summarySheet, "A12", "Net (USD)")
	_ = book.SetCellValue(summarySheet, "B12", view.Totals.NetUSD.StringFixed(2))
	_ = book.SetCellValue(summarySheet, "A13", "Due from client (USD)")
	_ = book.SetCellValue(summarySheet, "B13", view.DueFromClient.StringFixed(2))

	headers := []string{"Line", "Side", "Category", "Description", "Counterparty", "Amount (USD)", "Amount (BRL)", "Invoice", "Due Date", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = book.SetCellValue(ledgerSheet, cell, header)
	}
	for i, line := range view.Lines {
		row := i + 2
		dueDate := ""
		if line.DueDate != nil {
			dueDate = line.DueDate.Format("2006-01-02")
		}
		values := []any{
			line.LineNo, string(line.Side), line.Category, line.Description, line.Counterparty,
			line.AmountUSD.StringFixed(2), line.AmountLocal.StringFixed(2), line.InvoiceNo, dueDate, string(line.Status),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = book.SetCellValue(ledgerSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var csvHeader = []string{
	"fda_id", "client_name", "vessel", "port", "line_no", "side", "category",
	"description", "counterparty", "amount_usd", "amount_brl", "invoice_no",
	"due_date", "status",
}

// WriteLedgerCSV streams ledger lines across one or more FDAs as CSV.
func WriteLedgerCSV(w io.Writer, views []*fdaapp.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, view := range views {
		for _, line := range view.Lines {
			dueDate := ""
			if line.DueDate != nil {
				dueDate = line.DueDate.Format("2006-01-02")
			}
			record := []string{
				view.FDA.ID, view.FDA.ClientName, view.FDA.Ship.VesselName, view.FDA.Ship.PortName,
				fmt.Sprintf("%d", line.LineNo), string(line.Side), line.Category,
				line.Description, line.Counterparty,
				line.AmountUSD.StringFixed(2), line.AmountLocal.StringFixed(2),
				line.InvoiceNo, dueDate, string(line.Status),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
