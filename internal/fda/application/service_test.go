package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/auth"
	fda "portledger/internal/fda/domain"
	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

type lineKey struct {
	fdaID  string
	lineNo int
}

type fakeRepo struct {
	fdas     map[string]*fda.FDA
	lines    map[lineKey]*fda.LedgerLine
	payments map[lineKey][]fda.Payment
	staleOn  string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		fdas:     map[string]*fda.FDA{},
		lines:    map[lineKey]*fda.LedgerLine{},
		payments: map[lineKey][]fda.Payment{},
	}
}

func (f *fakeRepo) CreateWithLedger(_ context.Context, header *fda.FDA, lines []fda.LedgerLine) error {
	f.fdas[header.ID] = header
	for i := range lines {
		line := lines[i]
		line.FDAID = header.ID
		f.lines[lineKey{header.ID, line.LineNo}] = &line
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, tenantID, id string) (*fda.FDA, error) {
	header, ok := f.fdas[id]
	if !ok || header.TenantID != tenantID {
		return nil, nil
	}
	copied := *header
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, tenantID, status string) ([]fda.FDA, error) {
	var out []fda.FDA
	for _, header := range f.fdas {
		if header.TenantID != tenantID {
			continue
		}
		if status != "" && header.Status != status {
			continue
		}
		out = append(out, *header)
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, header *fda.FDA, _ time.Time) error {
	if header.ID == f.staleOn {
		return fda.ErrStaleUpdate
	}
	copied := *header
	f.fdas[header.ID] = &copied
	return nil
}

func (f *fakeRepo) ReplaceLedger(_ context.Context, tenantID, fdaID string, lines []fda.LedgerLine, updatedAt, _ time.Time) error {
	if fdaID == f.staleOn {
		return fda.ErrStaleUpdate
	}
	for key := range f.lines {
		if key.fdaID == fdaID {
			delete(f.lines, key)
		}
	}
	for key := range f.payments {
		if key.fdaID == fdaID {
			delete(f.payments, key)
		}
	}
	for i := range lines {
		line := lines[i]
		line.FDAID = fdaID
		f.lines[lineKey{fdaID, line.LineNo}] = &line
	}
	f.fdas[fdaID].UpdatedAt = updatedAt
	return nil
}

func (f *fakeRepo) ListLines(_ context.Context, fdaID string) ([]fda.LedgerLine, error) {
	var out []fda.LedgerLine
	for no := 1; ; no++ {
		line, ok := f.lines[lineKey{fdaID, no}]
		if !ok {
			break
		}
		out = append(out, *line)
	}
	return out, nil
}

func (f *fakeRepo) GetLine(_ context.Context, fdaID string, lineNo int) (*fda.LedgerLine, error) {
	line, ok := f.lines[lineKey{fdaID, lineNo}]
	if !ok {
		return nil, nil
	}
	copied := *line
	return &copied, nil
}

func (f *fakeRepo) UpdateLine(_ context.Context, line *fda.LedgerLine) error {
	key := lineKey{line.FDAID, line.LineNo}
	if _, ok := f.lines[key]; !ok {
		return fda.ErrLineNotFound
	}
	copied := *line
	f.lines[key] = &copied
	return nil
}

func (f *fakeRepo) ListPayments(_ context.Context, fdaID string, lineNo int) ([]fda.Payment, error) {
	return append([]fda.Payment(nil), f.payments[lineKey{fdaID, lineNo}]...), nil
}

func (f *fakeRepo) AddPayment(_ context.Context, p fda.Payment, status fda.LineStatus, settledAt *time.Time) error {
	key := lineKey{p.FDAID, p.LineNo}
	f.payments[key] = append(f.payments[key], p)
	f.lines[key].Status = status
	f.lines[key].SettledAt = settledAt
	return nil
}

func (f *fakeRepo) RemovePayment(_ context.Context, fdaID string, lineNo int, paymentID string, status fda.LineStatus, settledAt *time.Time) error {
	key := lineKey{fdaID, lineNo}
	kept := f.payments[key][:0]
	found := false
	for _, p := range f.payments[key] {
		if p.ID == paymentID {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fda.ErrNoPayments
	}
	f.payments[key] = kept
	f.lines[key].Status = status
	f.lines[key].SettledAt = settledAt
	return nil
}

type fakePDASource struct {
	byID map[string]*pda.PDA
}

func (f *fakePDASource) Get(_ context.Context, tenantID, id string) (*pda.PDA, error) {
	p, ok := f.byID[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func tenantContext(t *testing.T) context.Context {
	t.Helper()
	return auth.WithIdentity(context.Background(), auth.Identity{
		TenantID: "org-1",
		Role:     auth.RoleOperator,
		Subject:  "user-1",
	})
}

func approvedPDA(t *testing.T) *pda.PDA {
	t.Helper()
	rate, err := fx.NewManualRate(decimal.NewFromFloat(5.25))
	if err != nil {
		t.Fatalf("NewManualRate: %v", err)
	}
	p, err := pda.New("pda-1", "org-1", "Acme Trading", pda.ShipParticulars{VesselName: "MV Horizon", PortName: "Santos"}, rate, time.Now())
	if err != nil {
		t.Fatalf("pda.New: %v", err)
	}
	if err := p.Cost.SetManual(pda.CategoryPilotageIn, decimal.NewFromInt(1200)); err != nil {
		t.Fatalf("SetManual: %v", err)
	}
	if err := p.Cost.SetManual(pda.CategoryAgencyFee, decimal.NewFromInt(9804)); err != nil {
		t.Fatalf("SetManual: %v", err)
	}
	if err := p.Approve(time.Now()); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return p
}

func newTestService(t *testing.T, repo Repository, source PDASource) *Service {
	t.Helper()
	svc, err := NewService(repo, source)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func convert(t *testing.T, svc *Service, ctx context.Context) *View {
	t.Helper()
	view, err := svc.Convert(ctx, "pda-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return view
}

func TestConvertDerivesLedger(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)

	view := convert(t, svc, ctx)
	if view.FDA.Status != fda.StatusDraft {
		t.Fatalf("status = %q", view.FDA.Status)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(view.Lines))
	}
	if !view.Totals.APLocal.Equal(decimal.NewFromInt(6300)) {
		t.Fatalf("AP local = %s, want 6300", view.Totals.APLocal)
	}
	if !view.Totals.ARLocal.Equal(decimal.NewFromInt(51471)) {
		t.Fatalf("AR local = %s, want 51471", view.Totals.ARLocal)
	}
	if !view.DueFromClient.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("due from client = %s, want 1200", view.DueFromClient)
	}
}

func TestConvertRejectsDraftPDA(t *testing.T) {
	rate, _ := fx.NewManualRate(decimal.NewFromFloat(5.25))
	draft, err := pda.New("pda-1", "org-1", "Acme", pda.ShipParticulars{}, rate, time.Now())
	if err != nil {
		t.Fatalf("pda.New: %v", err)
	}
	svc := newTestService(t, newFakeRepo(), &fakePDASource{byID: map[string]*pda.PDA{"pda-1": draft}})

	_, err = svc.Convert(tenantContext(t), "pda-1", decimal.Zero)
	if !errors.Is(err, fda.ErrSourceNotApproved) {
		t.Fatalf("expected source-not-approved, got %v", err)
	}
}

func TestRebuildRequiresConfirmation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)

	_, err := svc.Rebuild(ctx, view.FDA.ID, false, view.FDA.UpdatedAt)
	if !errors.Is(err, fda.ErrConfirmRequired) {
		t.Fatalf("expected confirm-required, got %v", err)
	}
}

func TestRebuildDiscardsEditsAndPayments(t *testing.T) {
	repo := newFakeRepo()
	source := &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}}
	svc := newTestService(t, repo, source)
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)
	id := view.FDA.ID

	vendor := "Praticagem Santos"
	if _, err := svc.UpdateLine(ctx, id, 1, LineInput{Counterparty: &vendor}); err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, id, 1, PaymentInput{AmountUSD: decimal.NewFromInt(300)}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	current, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rebuilt, err := svc.Rebuild(ctx, id, true, current.FDA.UpdatedAt)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.Lines[0].Counterparty != fda.VendorPlaceholder {
		t.Fatalf("counterparty = %q, edit survived rebuild", rebuilt.Lines[0].Counterparty)
	}
	if rebuilt.Lines[0].Status != fda.LineOpen {
		t.Fatalf("status = %q, payment survived rebuild", rebuilt.Lines[0].Status)
	}
	payments, err := svc.Payments(ctx, id, 1)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("payments = %d, want 0", len(payments))
	}
}

func TestPostLocksStructure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)
	id := view.FDA.ID

	posted, err := svc.Post(ctx, id, view.FDA.UpdatedAt)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if posted.FDA.Status != fda.StatusPosted {
		t.Fatalf("status = %q", posted.FDA.Status)
	}

	amount := decimal.NewFromInt(999)
	if _, err := svc.UpdateLine(ctx, id, 1, LineInput{AmountUSD: &amount}); !errors.Is(err, fda.ErrNotDraft) {
		t.Fatalf("expected not-draft on line edit, got %v", err)
	}
	if _, err := svc.Rebuild(ctx, id, true, posted.FDA.UpdatedAt); !errors.Is(err, fda.ErrNotDraft) {
		t.Fatalf("expected not-draft on rebuild, got %v", err)
	}

	// Settlement continues after posting.
	if _, err := svc.RecordPayment(ctx, id, 1, PaymentInput{AmountUSD: decimal.NewFromInt(1200)}); err != nil {
		t.Fatalf("RecordPayment after post: %v", err)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)
	id := view.FDA.ID

	line, err := svc.RecordPayment(ctx, id, 1, PaymentInput{AmountUSD: decimal.NewFromInt(300)})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if line.Status != fda.LinePartiallySettled {
		t.Fatalf("status = %q, want partially_settled", line.Status)
	}

	line, err = svc.RecordPayment(ctx, id, 1, PaymentInput{AmountUSD: decimal.NewFromInt(900)})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if line.Status != fda.LineSettled {
		t.Fatalf("status = %q, want settled", line.Status)
	}
	if line.SettledAt == nil {
		t.Fatal("settled line missing settled_at")
	}

	_, err = svc.RecordPayment(ctx, id, 1, PaymentInput{AmountUSD: decimal.NewFromInt(1)})
	if !errors.Is(err, fda.ErrOverpayment) {
		t.Fatalf("expected overpayment, got %v", err)
	}

	line, err = svc.UndoLastPayment(ctx, id, 1)
	if err != nil {
		t.Fatalf("UndoLastPayment: %v", err)
	}
	if line.Status != fda.LinePartiallySettled {
		t.Fatalf("status after undo = %q, want partially_settled", line.Status)
	}
	if line.SettledAt != nil {
		t.Fatal("settled_at not cleared by undo")
	}
}

func TestPaymentUsesPaymentTimeRate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)

	if _, err := svc.RecordPayment(ctx, view.FDA.ID, 1, PaymentInput{
		AmountUSD:   decimal.NewFromInt(100),
		FxAtPayment: decimal.NewFromFloat(5.40),
	}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	payments, err := svc.Payments(ctx, view.FDA.ID, 1)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if !payments[0].AmountLocal.Equal(decimal.NewFromInt(540)) {
		t.Fatalf("local = %s, want 540", payments[0].AmountLocal)
	}
}

func TestUndoWithoutPayments(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)

	_, err := svc.UndoLastPayment(ctx, view.FDA.ID, 1)
	if !errors.Is(err, fda.ErrNoPayments) {
		t.Fatalf("expected no-payments, got %v", err)
	}
}

func TestUpdateLineRateOverride(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)

	override := decimal.NewFromFloat(5.50)
	line, err := svc.UpdateLine(ctx, view.FDA.ID, 1, LineInput{RateOverride: &override})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if !line.AmountLocal.Equal(decimal.NewFromInt(6600)) {
		t.Fatalf("local = %s, want 6600", line.AmountLocal)
	}

	line, err = svc.UpdateLine(ctx, view.FDA.ID, 1, LineInput{ClearRate: true})
	if err != nil {
		t.Fatalf("UpdateLine clear: %v", err)
	}
	if !line.AmountLocal.Equal(decimal.NewFromInt(6300)) {
		t.Fatalf("local = %s, want 6300 after clearing override", line.AmountLocal)
	}
}

func TestUpdateLineSideAndDescription(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)

	side := "ar"
	desc := "Pilotage rebilled to charterer"
	line, err := svc.UpdateLine(ctx, view.FDA.ID, 1, LineInput{Side: &side, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if line.Side != pda.SideAR {
		t.Fatalf("side = %s, want ar", line.Side)
	}
	if line.Description != desc {
		t.Fatalf("description = %q, want %q", line.Description, desc)
	}

	bad := "payable"
	if _, err := svc.UpdateLine(ctx, view.FDA.ID, 1, LineInput{Side: &bad}); !errors.Is(err, fda.ErrInvalidSide) {
		t.Fatalf("expected invalid side, got %v", err)
	}
}

func TestHeaderUpdateStale(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakePDASource{byID: map[string]*pda.PDA{"pda-1": approvedPDA(t)}})
	ctx := tenantContext(t)
	view := convert(t, svc, ctx)
	repo.staleOn = view.FDA.ID

	pct := decimal.NewFromInt(50)
	_, err := svc.UpdateHeader(ctx, view.FDA.ID, HeaderInput{ClientSharePct: &pct, ExpectedUpdatedAt: view.FDA.UpdatedAt})
	if !errors.Is(err, fda.ErrStaleUpdate) {
		t.Fatalf("expected stale update, got %v", err)
	}
}
