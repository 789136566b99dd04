package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portledger/internal/auth"
	"portledger/internal/fx"
	"portledger/internal/observability/metrics"
	pda "portledger/internal/pda/domain"
)

// Repository persists PDAs. Update enforces the optimistic concurrency
// check against expectedUpdatedAt.
type Repository interface {
	Create(ctx context.Context, p *pda.PDA) error
	Get(ctx context.Context, tenantID, id string) (*pda.PDA, error)
	List(ctx context.Context, tenantID, status string) ([]pda.PDA, error)
	Update(ctx context.Context, p *pda.PDA, expectedUpdatedAt time.Time) error
}

// Pricer is the auto-pricing oracle: port tariff quotes per vessel call.
type Pricer interface {
	Quote(ship pda.ShipParticulars) (map[pda.Category]decimal.Decimal, error)
}

// RateFeed supplies an external USD/BRL exchange rate.
type RateFeed interface {
	Latest(ctx context.Context) (fx.Rate, error)
}

// Service handles PDA workflows.
type Service struct {
	repo   Repository
	pricer Pricer
	feed   RateFeed
}

// NewService constructs a service. The rate feed is optional; the pricer is
// required.
func NewService(repo Repository, pricer Pricer, feed RateFeed) (*Service, error) {
	if repo == nil {
		return nil, errors.New("pda service: nil repo")
	}
	if pricer == nil {
		return nil, errors.New("pda service: nil pricer")
	}
	return &Service{repo: repo, pricer: pricer, feed: feed}, nil
}

// CreateInput is the payload for creating a PDA.
type CreateInput struct {
	ClientName  string
	Ship        pda.ShipParticulars
	RateValue   decimal.Decimal
	UseFeedRate bool
}

// Create creates a draft PDA.
func (s *Service) Create(ctx context.Context, input CreateInput) (*pda.PDA, error) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObservePDACreate(result) }()

	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		result = metrics.ResultError
		return nil, auth.ErrTenantMismatch
	}

	rate, err := s.resolveRate(ctx, input)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	now := time.Now()
	p, err := pda.New("pda-"+uuid.NewString(), tenantID, input.ClientName, input.Ship, rate, now)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return p, nil
}

func (s *Service) resolveRate(ctx context.Context, input CreateInput) (fx.Rate, error) {
	if input.UseFeedRate {
		if s.feed == nil {
			return fx.Rate{}, errors.New("pda service: no rate feed configured")
		}
		return s.feed.Latest(ctx)
	}
	return fx.NewManualRate(input.RateValue)
}

// Get fetches a PDA for the caller's tenant.
func (s *Service) Get(ctx context.Context, id string) (*pda.PDA, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrTenantMismatch
	}
	p, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, pda.ErrNotFound
	}
	return p, nil
}

// List returns the tenant's PDAs filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]pda.PDA, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, auth.ErrTenantMismatch
	}
	return s.repo.List(ctx, tenantID, status)
}

// UpdateInput is a form-style replacement of the editable PDA fields.
// Cost amounts listed in SetCosts become manual entries; CustomLines
// replaces the whole custom line list.
type UpdateInput struct {
	SetCosts          map[pda.Category]decimal.Decimal
	CustomLines       *[]pda.CustomLine
	RateValue         *decimal.Decimal
	Remarks           *string
	ExpectedUpdatedAt time.Time
}

// Update edits a draft PDA under the optimistic concurrency check.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*pda.PDA, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != pda.StatusDraft {
		return nil, pda.ErrNotDraft
	}

	for category, amount := range input.SetCosts {
		if err := p.Cost.SetManual(category, amount); err != nil {
			return nil, err
		}
	}
	if input.CustomLines != nil {
		p.Cost.CustomLines = *input.CustomLines
		if err := p.Cost.Validate(); err != nil {
			return nil, err
		}
	}
	if input.RateValue != nil {
		rate, err := fx.NewManualRate(*input.RateValue)
		if err != nil {
			return nil, err
		}
		if err := p.SetRate(rate); err != nil {
			return nil, err
		}
	}
	if input.Remarks != nil {
		p.Remarks = *input.Remarks
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, input.ExpectedUpdatedAt); err != nil {
		if errors.Is(err, pda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("pda")
		}
		return nil, err
	}
	return p, nil
}

// AutoPrice runs the tariff oracle over a draft PDA. Manual entries keep
// their values.
func (s *Service) AutoPrice(ctx context.Context, id string, expectedUpdatedAt time.Time) (*pda.PDA, error) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveAutoPrice(result) }()

	p, err := s.Get(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if p.Status != pda.StatusDraft {
		result = metrics.ResultError
		return nil, pda.ErrNotDraft
	}
	quote, err := s.pricer.Quote(p.Ship)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := p.Cost.ApplyAutoPricing(quote); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p, expectedUpdatedAt); err != nil {
		result = metrics.ResultError
		if errors.Is(err, pda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("pda")
		}
		return nil, err
	}
	return p, nil
}

// Approve freezes a draft PDA for FDA conversion.
func (s *Service) Approve(ctx context.Context, id string, expectedUpdatedAt time.Time) (*pda.PDA, error) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObservePDAApprove(result) }()

	p, err := s.Get(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := p.Approve(time.Now()); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.repo.Update(ctx, p, expectedUpdatedAt); err != nil {
		result = metrics.ResultError
		if errors.Is(err, pda.ErrStaleUpdate) {
			metrics.ObserveStaleUpdate("pda")
		}
		return nil, err
	}
	return p, nil
}

// FeedRate fetches the latest external exchange rate.
func (s *Service) FeedRate(ctx context.Context) (fx.Rate, error) {
	if s.feed == nil {
		return fx.Rate{}, errors.New("pda service: no rate feed configured")
	}
	start := time.Now()
	result := metrics.ResultSuccess
	rate, err := s.feed.Latest(ctx)
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObservePTAXLookup(result, time.Since(start))
	return rate, err
}
