package apihttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"portledger/internal/auth"
)

// StatsHandler serves the tenant dashboard aggregates.
type StatsHandler struct {
	db *sql.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *sql.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type statsResponse struct {
	PDAs struct {
		Draft    int `json:"draft"`
		Approved int `json:"approved"`
	} `json:"pdas"`
	FDAs struct {
		Draft  int `json:"draft"`
		Posted int `json:"posted"`
	} `json:"fdas"`
	Ledger struct {
		Open             int `json:"open"`
		PartiallySettled int `json:"partially_settled"`
		Settled          int `json:"settled"`
	} `json:"ledger"`
	Outstanding struct {
		APUSD string `json:"ap_usd"`
		ARUSD string `json:"ar_usd"`
	} `json:"outstanding"`
	Payments struct {
		Count    int    `json:"count"`
		TotalUSD string `json:"total_usd"`
	} `json:"payments"`
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "tenant required", http.StatusForbidden)
		return
	}

	stats, err := queryStats(r.Context(), h.db, tenantID)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func queryStats(ctx context.Context, db *sql.DB, tenantID string) (*statsResponse, error) {
	var stats statsResponse

	err := db.QueryRowContext(ctx, `
SELECT
	COUNT(*) FILTER (WHERE status = 'draft'),
	COUNT(*) FILTER (WHERE status = 'approved')
FROM pdas
WHERE tenant_id = $1`, tenantID).Scan(&stats.PDAs.Draft, &stats.PDAs.Approved)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
SELECT
	COUNT(*) FILTER (WHERE status = 'draft'),
	COUNT(*) FILTER (WHERE status = 'posted')
FROM fdas
WHERE tenant_id = $1`, tenantID).Scan(&stats.FDAs.Draft, &stats.FDAs.Posted)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
SELECT
	COUNT(*) FILTER (WHERE l.status = 'open'),
	COUNT(*) FILTER (WHERE l.status = 'partially_settled'),
	COUNT(*) FILTER (WHERE l.status = 'settled'),
	COALESCE(SUM(l.amount_usd) FILTER (WHERE l.side = 'AP' AND l.status <> 'settled'), 0),
	COALESCE(SUM(l.amount_usd) FILTER (WHERE l.side = 'AR' AND l.status <> 'settled'), 0)
FROM fda_ledger l
JOIN fdas f ON f.id = l.fda_id
WHERE f.tenant_id = $1`, tenantID).Scan(
		&stats.Ledger.Open, &stats.Ledger.PartiallySettled, &stats.Ledger.Settled,
		&stats.Outstanding.APUSD, &stats.Outstanding.ARUSD)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(p.amount_usd), 0)
FROM fda_ledger_payments p
JOIN fdas f ON f.id = p.fda_id
WHERE f.tenant_id = $1`, tenantID).Scan(&stats.Payments.Count, &stats.Payments.TotalUSD)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
