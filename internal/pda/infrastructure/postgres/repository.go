package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

// Repository persists PDAs. The cost record is stored as a JSONB document;
// the exchange rate and ship particulars are flat columns.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const pdaColumns = `
id, tenant_id, client_name, vessel_name, imo, dwt, loa, port_name, terminal, berth,
rate_value, rate_source, rate_quoted_at, cost_record, remarks, status,
created_at, updated_at, approved_at`

// Create inserts a PDA.
func (r *Repository) Create(ctx context.Context, p *pda.PDA) error {
	if r == nil || r.db == nil {
		return errors.New("pda repo: nil db")
	}
	if p == nil {
		return errors.New("pda repo: nil pda")
	}
	costJSON, err := json.Marshal(p.Cost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO pdas (
	id, tenant_id, client_name, vessel_name, imo, dwt, loa, port_name, terminal, berth,
	rate_value, rate_source, rate_quoted_at, cost_record, remarks, status,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)`,
		p.ID, p.TenantID, p.ClientName, p.Ship.VesselName, nullString(p.Ship.IMO), p.Ship.DWT, p.Ship.LOA,
		p.Ship.PortName, nullString(p.Ship.Terminal), nullString(p.Ship.Berth),
		p.Rate.Value, string(p.Rate.Source), nullTime(p.Rate.QuotedAt), costJSON, nullString(p.Remarks), p.Status,
		p.CreatedAt, p.UpdatedAt)
	return err
}

// Get fetches a PDA scoped to a tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*pda.PDA, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pda repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+pdaColumns+`
FROM pdas
WHERE tenant_id = $1 AND id = $2
LIMIT 1`, tenantID, id)
	return scanPDA(row)
}

// List returns a tenant's PDAs, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, tenantID, status string) ([]pda.PDA, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pda repo: nil db")
	}
	query := `
SELECT ` + pdaColumns + `
FROM pdas
WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pda.PDA
	for rows.Next() {
		p, err := scanPDA(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			result = append(result, *p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists PDA changes guarded by an optimistic check on updated_at.
// A zero-row update against an existing PDA means the caller edited a stale
// copy.
func (r *Repository) Update(ctx context.Context, p *pda.PDA, expectedUpdatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("pda repo: nil db")
	}
	if p == nil {
		return errors.New("pda repo: nil pda")
	}
	costJSON, err := json.Marshal(p.Cost)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE pdas
SET client_name = $1, vessel_name = $2, imo = $3, dwt = $4, loa = $5,
	port_name = $6, terminal = $7, berth = $8,
	rate_value = $9, rate_source = $10, rate_quoted_at = $11,
	cost_record = $12, remarks = $13, status = $14,
	updated_at = $15, approved_at = $16
WHERE tenant_id = $17 AND id = $18 AND updated_at = $19`,
		p.ClientName, p.Ship.VesselName, nullString(p.Ship.IMO), p.Ship.DWT, p.Ship.LOA,
		p.Ship.PortName, nullString(p.Ship.Terminal), nullString(p.Ship.Berth),
		p.Rate.Value, string(p.Rate.Source), nullTime(p.Rate.QuotedAt),
		costJSON, nullString(p.Remarks), p.Status,
		p.UpdatedAt, nullZeroTime(p.ApprovedAt),
		p.TenantID, p.ID, expectedUpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := r.Get(ctx, p.TenantID, p.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return pda.ErrNotFound
		}
		return pda.ErrStaleUpdate
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPDA(row rowScanner) (*pda.PDA, error) {
	var p pda.PDA
	var imo, terminal, berth, remarks sql.NullString
	var rateValue decimal.Decimal
	var rateSource string
	var rateQuotedAt, approvedAt sql.NullTime
	var costJSON []byte

	err := row.Scan(
		&p.ID, &p.TenantID, &p.ClientName,
		&p.Ship.VesselName, &imo, &p.Ship.DWT, &p.Ship.LOA,
		&p.Ship.PortName, &terminal, &berth,
		&rateValue, &rateSource, &rateQuotedAt,
		&costJSON, &remarks, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &approvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if imo.Valid {
		p.Ship.IMO = imo.String
	}
	if terminal.Valid {
		p.Ship.Terminal = terminal.String
	}
	if berth.Valid {
		p.Ship.Berth = berth.String
	}
	if remarks.Valid {
		p.Remarks = remarks.String
	}
	p.Rate = fx.Rate{Value: rateValue, Source: fx.RateSource(rateSource)}
	if rateQuotedAt.Valid {
		at := rateQuotedAt.Time.UTC()
		p.Rate.QuotedAt = &at
	}
	if approvedAt.Valid {
		p.ApprovedAt = approvedAt.Time.UTC()
	}
	cost := pda.NewCostRecord()
	if len(costJSON) > 0 {
		if err := json.Unmarshal(costJSON, cost); err != nil {
			return nil, err
		}
	}
	p.Cost = cost
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func nullZeroTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC()
}
