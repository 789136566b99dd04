package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/audit"
	"portledger/internal/auth"
	"portledger/internal/money"
	"portledger/internal/observability/metrics"
	pdaapp "portledger/internal/pda/application"
	pda "portledger/internal/pda/domain"
	"portledger/internal/pda/infrastructure/pricing"
)

// Handler serves PDA endpoints under /api/v1/pdas.
type Handler struct {
	service     *pdaapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *pdaapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("pda handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes PDA requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/pdas" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/pdas/")
	if path == r.URL.Path || path == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.handleUpdate(w, r, id)
	case len(parts) == 2 && parts[1] == "autoprice" && r.Method == http.MethodPost:
		h.handleAutoPrice(w, r, id)
	case len(parts) == 2 && parts[1] == "approve" && r.Method == http.MethodPost:
		h.handleApprove(w, r, id)
	case len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet:
		h.handleExportPDF(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createRequest struct {
	ClientName  string              `json:"client_name"`
	Ship        pda.ShipParticulars `json:"ship"`
	RateValue   decimal.Decimal     `json:"exchange_rate"`
	UseFeedRate bool                `json:"use_feed_rate"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p, err := h.service.Create(r.Context(), pdaapp.CreateInput{
		ClientName:  req.ClientName,
		Ship:        req.Ship,
		RateValue:   req.RateValue,
		UseFeedRate: req.UseFeedRate,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toPDADTO(p))
	h.logAudit(r, p.ID, "pda.create", map[string]any{"client_name": req.ClientName, "vessel": req.Ship.VesselName})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != pda.StatusDraft && status != pda.StatusApproved {
		http.Error(w, "status must be draft or approved", http.StatusBadRequest)
		return
	}
	pdas, err := h.service.List(r.Context(), status)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]pdaDTO, 0, len(pdas))
	for i := range pdas {
		out = append(out, toPDADTO(&pdas[i]))
	}
	writeJSON(w, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toPDADTO(p))
}

type updateRequest struct {
	Costs             map[string]decimal.Decimal `json:"costs"`
	CustomLines       *[]customLineInput         `json:"custom_lines"`
	RateValue         *decimal.Decimal           `json:"exchange_rate"`
	Remarks           *string                    `json:"remarks"`
	ExpectedUpdatedAt time.Time                  `json:"expected_updated_at"`
}

type customLineInput struct {
	Label     string          `json:"label"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Comment   string          `json:"comment"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	input := pdaapp.UpdateInput{
		RateValue:         req.RateValue,
		Remarks:           req.Remarks,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
	if len(req.Costs) > 0 {
		input.SetCosts = make(map[pda.Category]decimal.Decimal, len(req.Costs))
		for raw, amount := range req.Costs {
			category, ok := pda.NormalizeCategory(raw)
			if !ok {
				http.Error(w, fmt.Sprintf("unknown category %q", raw), http.StatusBadRequest)
				return
			}
			input.SetCosts[category] = amount
		}
	}
	if req.CustomLines != nil {
		lines := make([]pda.CustomLine, 0, len(*req.CustomLines))
		for _, line := range *req.CustomLines {
			lines = append(lines, pda.CustomLine{Label: line.Label, AmountUSD: line.AmountUSD, Comment: line.Comment})
		}
		input.CustomLines = &lines
	}

	p, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toPDADTO(p))
	h.logAudit(r, id, "pda.update", map[string]any{"costs": len(req.Costs)})
}

type concurrencyRequest struct {
	ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
}

func (h *Handler) handleAutoPrice(w http.ResponseWriter, r *http.Request, id string) {
	var req concurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p, err := h.service.AutoPrice(r.Context(), id, req.ExpectedUpdatedAt)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toPDADTO(p))
	h.logAudit(r, id, "pda.autoprice", nil)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request, id string) {
	var req concurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p, err := h.service.Approve(r.Context(), id, req.ExpectedUpdatedAt)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toPDADTO(p))
	h.logAudit(r, id, "pda.approve", nil)
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	data, err := BuildPDAPDF(p)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", p.ID))
	_, _ = w.Write(data)
}

func (h *Handler) logAudit(r *http.Request, pdaID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "pda",
		ResourceID:   pdaID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pda.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pda.ErrStaleUpdate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pda.ErrNotDraft), errors.Is(err, pda.ErrAlreadyApproved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pda.ErrUnknownCategory),
		errors.Is(err, pda.ErrEmptyLabel),
		errors.Is(err, pda.ErrEmptyClientName),
		errors.Is(err, money.ErrInvalidRate),
		errors.Is(err, money.ErrNegativeAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pricing.ErrPortNotCovered):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, auth.ErrTenantMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
