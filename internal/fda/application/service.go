package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portledger/internal/auth"
	fda "portledger/internal/fda/domain"
	"portledger/internal/money"
	"portledger/internal/observability/metrics"
	pda "portledger/internal/pda/domain"
)

// Repository persists FDAs, ledger lines and payments. CreateWithLedger and
// ReplaceLedger are transactional; Update and ReplaceLedger enforce the
// optimistic concurrency check.
type Repository interface {
	CreateWithLedger(ctx context.Context, f *fda.FDA, lines []fda.LedgerLine) error
	Get(ctx context.Context, tenantID, id string) (*fda.FDA, error)
	List(ctx context.Context, tenantID, status string) ([]fda.FDA, error)
	Update(ctx context.Context, f *fda.FDA, expectedUpdatedAt time.Time) error
	ReplaceLedger(ctx context.Context, tenantID, fdaID string, lines []fda.LedgerLine, updatedAt, expectedUpdatedAt time.Time) error
	ListLines(ctx context.Context, fdaID string) ([]fda.LedgerLine, error)
	GetLine(ctx context.Context, fdaID string, lineNo int) (*fda.LedgerLine, error)
	UpdateLine(ctx context.Context, line *fda.LedgerLine) error
	ListPayments(ctx context.Context, fdaID string, lineNo int) ([]fda.Payment, error)
	AddPayment(ctx context.Context, p fda.Payment, status fda.LineStatus, settledAt *time.Time) error
	RemovePayment(ctx context.Context, fdaID string, lineNo int, paymentID string, status fda.LineStatus, settledAt *time.Time) error
}

// PDASource reads the PDAs FDAs derive from.
type PDASource interface {
	Get(ctx context.Context, tenantID, id string) (*pda.PDA, error)
}

// Service handles FDA workflows.
type Service struct {
	repo Repository
	pdas PDASource
}

// NewService constructs a service.
func NewService(repo Repository, pdas PDASource) (*Service, error) {
	if repo == nil {
		return nil, errors.New("fda service: nil repo")
	}
	if pdas == nil {
		return nil, errors.New("fda service: nil pda source")
	}
	return &Service{repo: repo, pdas: pdas}, nil
}

// View is an FDA with its ledger and derived settlement totals.
type View struct {
	FDA           *fda.FDA
	Lines         []fda.LedgerLine
	Totals        fda.Totals
	DueFromClient decimal.Decimal
}

// Convert derives a draft FDA from an approved PDA.
func (s *Service) Convert(ctx context.Context, pdaID string, clientSharePct decimal.Decimal) (*View, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveFDAConvert(result, time.Since(start)) }()

	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		result = metrics.ResultError
		return nil, auth.ErrTenantMismatch
	}
	source, err := s.pdas.Get(ctx, tenantID, pdaID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if source == nil {
		result = metrics.ResultError
		return nil, pda.ErrNotFound
	}

	now := time.Now()
	f, err := fda.NewFromPDA("fda-"+uuid.NewString(), source, clientSharePct, now)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	lines, err := fda.DeriveLedger(source.Cost, f.Rate, f.ClientName)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.repo.CreateWithLedger(ctx, f, lines); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return s.view(f, lines), nil
}

// Get returns the FDA with ledger and totals.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return s.view(f, lines), nil
}

// List returns the tenant's FDAs filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]fda.FDA, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrTenantMismatch
	}
	return s.repo.List(ctx, tenantID, status)
}

// HeaderInput carries the editable FDA header fields.
type HeaderInput struct {
	ClientSharePct    *decimal.Decimal
	Remarks           *string
	ExpectedUpdatedAt time.Time
}

// UpdateHeader edits a draft FDA header.
func (s *Service) UpdateHeader(ctx context.Context, id string, input HeaderInput) (*View, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != fda.StatusDraft {
		return nil, fda.ErrNotDraft
	}
	if input.ClientSharePct != nil {
		f.ClientSharePct = *input.ClientSharePct
	}
	if input.Remarks != nil {
		f.Remarks = *input.Remarks
	}
	f.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, f, input.ExpectedUpdatedAt); err != nil {
		if errors.Is(err, fda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("fda")
		}
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return s.view(f, lines), nil
}

// Rebuild regenerates the ledger from the source PDA, discarding manual
// line edits and recorded payments. Drafts only, and the caller must
// confirm explicitly.
func (s *Service) Rebuild(ctx context.Context, id string, confirm bool, expectedUpdatedAt time.Time) (*View, error) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveFDARebuild(result) }()

	f, err := s.header(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if f.Status != fda.StatusDraft {
		result = metrics.ResultError
		return nil, fda.ErrNotDraft
	}
	if !confirm {
		result = metrics.ResultError
		return nil, fda.ErrConfirmRequired
	}

	source, err := s.pdas.Get(ctx, f.TenantID, f.PDAID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if source == nil {
		result = metrics.ResultError
		return nil, pda.ErrNotFound
	}
	lines, err := fda.DeriveLedger(source.Cost, f.Rate, f.ClientName)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	f.UpdatedAt = time.Now().UTC()
	if err := s.repo.ReplaceLedger(ctx, f.TenantID, f.ID, lines, f.UpdatedAt, expectedUpdatedAt); err != nil {
		result = metrics.ResultError
		if errors.Is(err, fda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("fda")
		}
		return nil, err
	}
	return s.view(f, lines), nil
}

// Post locks the FDA against structural edits. Payments stay allowed.
func (s *Service) Post(ctx context.Context, id string, expectedUpdatedAt time.Time) (*View, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Post(time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, f, expectedUpdatedAt); err != nil {
		if errors.Is(err, fda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("fda")
		}
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return s.view(f, lines), nil
}

// LineInput carries the editable ledger line fields. Nil pointers leave a
// field untouched.
type LineInput struct {
	Side         *string
	Description  *string
	Counterparty *string
	AmountUSD    *decimal.Decimal
	RateOverride *decimal.Decimal
	ClearRate    bool
	InvoiceNo    *string
	DueDate      *time.Time
}

// UpdateLine edits one ledger line of a draft FDA. Amount or rate changes
// reprice the local amount and recompute the settlement status from the
// recorded payments.
func (s *Service) UpdateLine(ctx context.Context, id string, lineNo int, input LineInput) (*fda.LedgerLine, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != fda.StatusDraft {
		return nil, fda.ErrNotDraft
	}
	line, err := s.repo.GetLine(ctx, f.ID, lineNo)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fda.ErrLineNotFound
	}

	if input.Side != nil {
		side, ok := fda.NormalizeSide(*input.Side)
		if !ok {
			return nil, fda.ErrInvalidSide
		}
		line.Side = side
	}
	if input.Description != nil {
		line.Description = *input.Description
	}
	if input.Counterparty != nil {
		line.Counterparty = *input.Counterparty
	}
	if input.AmountUSD != nil {
		if err := money.EnsureNonNegative(*input.AmountUSD); err != nil {
			return nil, err
		}
		line.AmountUSD = *input.AmountUSD
	}
	if input.ClearRate {
		line.RateOverride = nil
	} else if input.RateOverride != nil {
		if input.RateOverride.Sign() <= 0 {
			return nil, money.ErrInvalidRate
		}
		override := *input.RateOverride
		line.RateOverride = &override
	}
	if input.InvoiceNo != nil {
		line.InvoiceNo = *input.InvoiceNo
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		line.DueDate = &due
	}
	if err := line.Reprice(f.Rate.Value); err != nil {
		return nil, err
	}

	payments, err := s.repo.ListPayments(ctx, f.ID, lineNo)
	if err != nil {
		return nil, err
	}
	applyStatus(line, fda.PaidTotal(payments))

	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// PaymentInput records one settlement installment.
type PaymentInput struct {
	AmountUSD   decimal.Decimal
	FxAtPayment decimal.Decimal
	PaidAt      time.Time
	Method      string
	Reference   string
}

// RecordPayment applies a payment against a ledger line. The local amount
// converts at the payment time rate; a zero FxAtPayment falls back to the
// header rate.
func (s *Service) RecordPayment(ctx context.Context, id string, lineNo int, input PaymentInput) (*fda.LedgerLine, error) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObservePayment(result) }()

	f, err := s.header(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	line, err := s.repo.GetLine(ctx, f.ID, lineNo)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if line == nil {
		result = metrics.ResultError
		return nil, fda.ErrLineNotFound
	}

	payments, err := s.repo.ListPayments(ctx, f.ID, lineNo)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	paidSoFar := fda.PaidTotal(payments)
	if err := fda.ValidatePayment(*line, paidSoFar, input.AmountUSD); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	fxAtPayment := input.FxAtPayment
	if fxAtPayment.Sign() == 0 {
		fxAtPayment = line.EffectiveRate(f.Rate.Value)
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	payment, err := fda.NewPayment("pay-"+uuid.NewString(), f.ID, lineNo, paidAt,
		input.AmountUSD, fxAtPayment, input.Method, input.Reference, time.Now())
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	applyStatus(line, paidSoFar.Add(input.AmountUSD))
	if err := s.repo.AddPayment(ctx, payment, line.Status, line.SettledAt); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return line, nil
}

// Payments lists one line's payments.
func (s *Service) Payments(ctx context.Context, id string, lineNo int) ([]fda.Payment, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.GetLine(ctx, f.ID, lineNo)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fda.ErrLineNotFound
	}
	return s.repo.ListPayments(ctx, f.ID, lineNo)
}

// UndoLastPayment removes the most recent payment on a line and recomputes
// the settlement status from the rest.
func (s *Service) UndoLastPayment(ctx context.Context, id string, lineNo int) (*fda.LedgerLine, error) {
	f, err := s.header(ctx, id)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.GetLine(ctx, f.ID, lineNo)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fda.ErrLineNotFound
	}
	payments, err := s.repo.ListPayments(ctx, f.ID, lineNo)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, fda.ErrNoPayments
	}

	last := payments[len(payments)-1]
	applyStatus(line, fda.PaidTotal(payments[:len(payments)-1]))
	if err := s.repo.RemovePayment(ctx, f.ID, lineNo, last.ID, line.Status, line.SettledAt); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) header(ctx context.Context, id string) (*fda.FDA, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrTenantMismatch
	}
	f, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fda.ErrNotFound
	}
	return f, nil
}

func (s *Service) view(f *fda.FDA, lines []fda.LedgerLine) *View {
	totals := fda.Aggregate(lines)
	return &View{
		FDA:           f,
		Lines:         lines,
		Totals:        totals,
		DueFromClient: fda.DueFromClient(totals.APUSD, f.ClientSharePct),
	}
}

func applyStatus(line *fda.LedgerLine, paidUSD decimal.Decimal) {
	status := fda.StatusForPaid(paidUSD, line.AmountUSD)
	line.Status = status
	if status == fda.LineSettled {
		if line.SettledAt == nil {
			now := time.Now().UTC()
			line.SettledAt = &now
		}
	} else {
		line.SettledAt = nil
	}
}
