package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	fda "portledger/internal/fda/domain"
	"portledger/internal/fx"
)

// Repository persists FDAs, their ledger lines and payments. Ledger rows
// are flat columns keyed by (fda_id, line_no); payments cascade with their
// line.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const fdaColumns = `
id, tenant_id, pda_id, client_name, vessel_name, imo, dwt, loa, port_name, terminal, berth,
rate_value, rate_source, rate_quoted_at, client_share_pct, remarks, status,
created_at, updated_at, posted_at`

const lineColumns = `
fda_id, line_no, side, category, description, counterparty,
amount_usd, amount_local, rate_override, invoice_no, due_date, status, settled_at`

const paymentColumns = `
id, fda_id, line_no, paid_at, amount_usd, fx_at_payment, amount_local, method, reference, created_at`

// CreateWithLedger inserts an FDA header and its derived ledger in one
// transaction.
func (r *Repository) CreateWithLedger(ctx context.Context, f *fda.FDA, lines []fda.LedgerLine) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	if f == nil {
		return errors.New("fda repo: nil fda")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO fdas (
	id, tenant_id, pda_id, client_name, vessel_name, imo, dwt, loa, port_name, terminal, berth,
	rate_value, rate_source, rate_quoted_at, client_share_pct, remarks, status,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)`,
		f.ID, f.TenantID, f.PDAID, f.ClientName, f.Ship.VesselName, nullString(f.Ship.IMO),
		f.Ship.DWT, f.Ship.LOA, f.Ship.PortName, nullString(f.Ship.Terminal), nullString(f.Ship.Berth),
		f.Rate.Value, string(f.Rate.Source), nullTime(f.Rate.QuotedAt),
		f.ClientSharePct, nullString(f.Remarks), f.Status, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertLines(ctx, tx, f.ID, lines); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Get fetches an FDA scoped to a tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*fda.FDA, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fda repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+fdaColumns+`
FROM fdas
WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanFDA(row)
}

// List returns the tenant's FDAs, optionally filtered by status, newest
// first.
func (r *Repository) List(ctx context.Context, tenantID, status string) ([]fda.FDA, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fda repo: nil db")
	}
	query := `
SELECT ` + fdaColumns + `
FROM fdas
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

	var out []fda.FDA
	for rows.Next() {
		f, err := scanFDA(rows)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, rows.Err()
}

// Update writes the FDA header under the optimistic concurrency check.
func (r *Repository) Update(ctx context.Context, f *fda.FDA, expectedUpdatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	if f == nil {
		return errors.New("fda repo: nil fda")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE fdas SET
	client_name = $1, client_share_pct = $2, remarks = $3, status = $4,
	updated_at = $5, posted_at = $6
WHERE tenant_id = $7 AND id = $8 AND updated_at = $9`,
		f.ClientName, f.ClientSharePct, nullString(f.Remarks), f.Status,
		f.UpdatedAt, nullZeroTime(f.PostedAt),
		f.TenantID, f.ID, expectedUpdatedAt)
	if err != nil {
		return err
	}
	return r.checkStale(ctx, res, f.TenantID, f.ID)
}

// ReplaceLedger deletes the current ledger (payments included) and inserts
// the rebuilt lines, bumping the header timestamp, all in one transaction.
func (r *Repository) ReplaceLedger(ctx context.Context, tenantID, fdaID string, lines []fda.LedgerLine, updatedAt, expectedUpdatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
UPDATE fdas SET updated_at = $1
WHERE tenant_id = $2 AND id = $3 AND updated_at = $4`,
		updatedAt, tenantID, fdaID, expectedUpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return r.resolveStale(ctx, tenantID, fdaID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fda_ledger_payments WHERE fda_id = $1`, fdaID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fda_ledger WHERE fda_id = $1`, fdaID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertLines(ctx, tx, fdaID, lines); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListLines returns the FDA ledger in line number order.
func (r *Repository) ListLines(ctx context.Context, fdaID string) ([]fda.LedgerLine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fda repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+lineColumns+`
FROM fda_ledger
WHERE fda_id = $1
ORDER BY line_no`, fdaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fda.LedgerLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// GetLine fetches one ledger line.
func (r *Repository) GetLine(ctx context.Context, fdaID string, lineNo int) (*fda.LedgerLine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fda repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+lineColumns+`
FROM fda_ledger
WHERE fda_id = $1 AND line_no = $2`, fdaID, lineNo)
	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateLine writes the editable ledger line fields.
func (r *Repository) UpdateLine(ctx context.Context, line *fda.LedgerLine) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	if line == nil {
		return errors.New("fda repo: nil line")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE fda_ledger SET
	counterparty = $1, amount_usd = $2, amount_local = $3, rate_override = $4,
	invoice_no = $5, due_date = $6, status = $7, settled_at = $8
WHERE fda_id = $9 AND line_no = $10`,
		line.Counterparty, line.AmountUSD, line.AmountLocal, nullDecimal(line.RateOverride),
		nullString(line.InvoiceNo), nullTime(line.DueDate), string(line.Status), nullTime(line.SettledAt),
		line.FDAID, line.LineNo)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fda.ErrLineNotFound
	}
	return nil
}

// ListPayments returns one line's payments in creation order.
func (r *Repository) ListPayments(ctx context.Context, fdaID string, lineNo int) ([]fda.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fda repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+paymentColumns+`
FROM fda_ledger_payments
WHERE fda_id = $1 AND line_no = $2
ORDER BY created_at, id`, fdaID, lineNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fda.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddPayment inserts a payment and writes the line's new settlement state
// in one transaction.
func (r *Repository) AddPayment(ctx context.Context, p fda.Payment, status fda.LineStatus, settledAt *time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO fda_ledger_payments (
	id, fda_id, line_no, paid_at, amount_usd, fx_at_payment, amount_local, method, reference, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.FDAID, p.LineNo, p.PaidAt, p.AmountUSD, p.FxAtPayment, p.AmountLocal,
		p.Method, nullString(p.Reference), p.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := updateLineStatus(ctx, tx, p.FDAID, p.LineNo, status, settledAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RemovePayment deletes a payment and writes the line's recomputed
// settlement state in one transaction.
func (r *Repository) RemovePayment(ctx context.Context, fdaID string, lineNo int, paymentID string, status fda.LineStatus, settledAt *time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("fda repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
DELETE FROM fda_ledger_payments
WHERE fda_id = $1 AND line_no = $2 AND id = $3`, fdaID, lineNo, paymentID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return fda.ErrNoPayments
	}
	if err := updateLineStatus(ctx, tx, fdaID, lineNo, status, settledAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertLines(ctx context.Context, tx *sql.Tx, fdaID string, lines []fda.LedgerLine) error {
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
INSERT INTO fda_ledger (
	fda_id, line_no, side, category, description, counterparty,
	amount_usd, amount_local, rate_override, invoice_no, due_date, status, settled_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			fdaID, line.LineNo, string(line.Side), line.Category, line.Description, line.Counterparty,
			line.AmountUSD, line.AmountLocal, nullDecimal(line.RateOverride),
			nullString(line.InvoiceNo), nullTime(line.DueDate), string(line.Status), nullTime(line.SettledAt))
		if err != nil {
			return err
		}
	}
	return nil
}

func updateLineStatus(ctx context.Context, tx *sql.Tx, fdaID string, lineNo int, status fda.LineStatus, settledAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `
UPDATE fda_ledger SET status = $1, settled_at = $2
WHERE fda_id = $3 AND line_no = $4`,
		string(status), nullTime(settledAt), fdaID, lineNo)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fda.ErrLineNotFound
	}
	return nil
}

func (r *Repository) checkStale(ctx context.Context, res sql.Result, tenantID, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	return r.resolveStale(ctx, tenantID, id)
}

func (r *Repository) resolveStale(ctx context.Context, tenantID, id string) error {
	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fda.ErrNotFound
	}
	return fda.ErrStaleUpdate
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFDA(row rowScanner) (*fda.FDA, error) {
	var f fda.FDA
	var imo, terminal, berth, remarks sql.NullString
	var rateSource string
	var rateQuotedAt, postedAt sql.NullTime

	err := row.Scan(
		&f.ID, &f.TenantID, &f.PDAID, &f.ClientName,
		&f.Ship.VesselName, &imo, &f.Ship.DWT, &f.Ship.LOA,
		&f.Ship.PortName, &terminal, &berth,
		&f.Rate.Value, &rateSource, &rateQuotedAt,
		&f.ClientSharePct, &remarks, &f.Status,
		&f.CreatedAt, &f.UpdatedAt, &postedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.Ship.IMO = imo.String
	f.Ship.Terminal = terminal.String
	f.Ship.Berth = berth.String
	f.Remarks = remarks.String
	f.Rate.Source = fx.RateSource(rateSource)
	if rateQuotedAt.Valid {
		at := rateQuotedAt.Time
		f.Rate.QuotedAt = &at
	}
	if postedAt.Valid {
		f.PostedAt = postedAt.Time
	}
	return &f, nil
}

func scanLine(row rowScanner) (fda.LedgerLine, error) {
	var line fda.LedgerLine
	var side, status string
	var rateOverride sql.NullString
	var invoiceNo sql.NullString
	var dueDate, settledAt sql.NullTime

	err := row.Scan(
		&line.FDAID, &line.LineNo, &side, &line.Category, &line.Description, &line.Counterparty,
		&line.AmountUSD, &line.AmountLocal, &rateOverride, &invoiceNo, &dueDate, &status, &settledAt,
	)
	if err != nil {
		return fda.LedgerLine{}, err
	}
	lineSide, ok := fda.NormalizeSide(side)
	if !ok {
		return fda.LedgerLine{}, fda.ErrInvalidSide
	}
	line.Side = lineSide
	lineStatus, ok := fda.NormalizeLineStatus(status)
	if !ok {
		return fda.LedgerLine{}, fda.ErrInvalidStatus
	}
	line.Status = lineStatus
	line.InvoiceNo = invoiceNo.String
	if rateOverride.Valid {
		value, err := decimal.NewFromString(rateOverride.String)
		if err != nil {
			return fda.LedgerLine{}, err
		}
		line.RateOverride = &value
	}
	if dueDate.Valid {
		at := dueDate.Time
		line.DueDate = &at
	}
	if settledAt.Valid {
		at := settledAt.Time
		line.SettledAt = &at
	}
	return line, nil
}

func scanPayment(row rowScanner) (fda.Payment, error) {
	var p fda.Payment
	var reference sql.NullString
	err := row.Scan(
		&p.ID, &p.FDAID, &p.LineNo, &p.PaidAt, &p.AmountUSD, &p.FxAtPayment, &p.AmountLocal,
		&p.Method, &reference, &p.CreatedAt,
	)
	if err != nil {
		return fda.Payment{}, err
	}
	p.Reference = reference.String
	return p, nil
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
	return *value
}

func nullZeroTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value
}

func nullDecimal(value *decimal.Decimal) any {
	if value == nil {
		return nil
	}
	return value.String()
}
