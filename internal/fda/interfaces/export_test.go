package interfaces

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	fdaapp "portledger/internal/fda/application"
	fda "portledger/internal/fda/domain"
	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

func sampleView(t *testing.T) *fdaapp.View {
	t.Helper()
	rate, err := fx.NewManualRate(decimal.NewFromFloat(5.25))
	if err != nil {
		t.Fatalf("NewManualRate: %v", err)
	}
	header := &fda.FDA{
		ID:             "fda-1",
		TenantID:       "org-1",
		PDAID:          "pda-1",
		ClientName:     "Acme Trading",
		Ship:           pda.ShipParticulars{VesselName: "MV Horizon", PortName: "Santos"},
		Rate:           rate,
		ClientSharePct: decimal.NewFromInt(100),
		Status:         fda.StatusDraft,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	lines := []fda.LedgerLine{
		{
			FDAID: "fda-1", LineNo: 1, Side: pda.SideAP, Category: string(pda.CategoryPilotageIn),
			Description: "Pilotage Inward", Counterparty: fda.VendorPlaceholder,
			AmountUSD: decimal.NewFromInt(1200), AmountLocal: decimal.NewFromInt(6300),
			Status: fda.LineOpen,
		},
		{
			FDAID: "fda-1", LineNo: 2, Side: pda.SideAR, Category: string(pda.CategoryAgencyFee),
			Description: "Agency Fee", Counterparty: "Acme Trading",
			AmountUSD: decimal.NewFromInt(9804), AmountLocal: decimal.NewFromInt(51471),
			Status: fda.LineOpen,
		},
	}
	totals := fda.Aggregate(lines)
	return &fdaapp.View{
		FDA:           header,
		Lines:         lines,
		Totals:        totals,
		DueFromClient: fda.DueFromClient(totals.APUSD, header.ClientSharePct),
	}
}

func TestWriteLedgerCSV(t *testing.T) {
	var sb strings.Builder
	if err := WriteLedgerCSV(&sb, []*fdaapp.View{sampleView(t)}); err != nil {
		t.Fatalf("WriteLedgerCSV: %v", err)
	}
	out := sb.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("rows = %d, want header + 2 lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "fda_id,client_name,vessel,port,line_no") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "1200.00") || !strings.Contains(lines[1], "6300.00") {
		t.Fatalf("AP amounts missing: %s", lines[1])
	}
	if !strings.Contains(lines[2], "AR") || !strings.Contains(lines[2], "51471.00") {
		t.Fatalf("AR row wrong: %s", lines[2])
	}
}

func TestBuildFDAPDF(t *testing.T) {
	data, err := BuildFDAPDF(sampleView(t))
	if err != nil {
		t.Fatalf("BuildFDAPDF: %v", err)
	}
	if len(data) == 0 || !strings.HasPrefix(string(data[:5]), "%PDF-") {
		t.Fatal("output is not a PDF document")
	}
}

func TestBuildFDAXLSX(t *testing.T) {
	data, err := BuildFDAXLSX(sampleView(t))
	if err != nil {
		t.Fatalf("BuildFDAXLSX: %v", err)
	}
	// XLSX files are zip archives.
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Fatal("output is not a zip container")
	}
}
