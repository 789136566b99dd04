package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/audit"
	"portledger/internal/auth"
	fdaapp "portledger/internal/fda/application"
	fda "portledger/internal/fda/domain"
	"portledger/internal/money"
	"portledger/internal/observability/metrics"
	pda "portledger/internal/pda/domain"
)

// Handler serves FDA endpoints under /api/v1/fdas and the tenant-wide
// ledger CSV export.
type Handler struct {
	service     *fdaapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *fdaapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("fda handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes FDA requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/exports/ledger.csv" && r.Method == http.MethodGet {
		h.handleExportCSV(w, r)
		return
	}
	if r.URL.Path == "/api/v1/fdas/convert" && r.Method == http.MethodPost {
		h.handleConvert(w, r)
		return
	}
	if r.URL.Path == "/api/v1/fdas" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/fdas/")
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
		h.handleUpdateHeader(w, r, id)
	case len(parts) == 2 && parts[1] == "rebuild" && r.Method == http.MethodPost:
		h.handleRebuild(w, r, id)
	case len(parts) == 2 && parts[1] == "post" && r.Method == http.MethodPost:
		h.handlePost(w, r, id)
	case len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet:
		h.handleExportPDF(w, r, id)
	case len(parts) == 2 && parts[1] == "export.xlsx" && r.Method == http.MethodGet:
		h.handleExportXLSX(w, r, id)
	case len(parts) >= 3 && parts[1] == "ledger":
		h.routeLedger(w, r, id, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) routeLedger(w http.ResponseWriter, r *http.Request, id string, parts []string) {
	lineNo, err := strconv.Atoi(parts[0])
	if err != nil || lineNo < 1 {
		http.Error(w, "line number must be a positive integer", http.StatusBadRequest)
		return
	}
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.handleUpdateLine(w, r, id, lineNo)
	case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodGet:
		h.handleListPayments(w, r, id, lineNo)
	case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodPost:
		h.handleRecordPayment(w, r, id, lineNo)
	case len(parts) == 3 && parts[1] == "payments" && parts[2] == "last" && r.Method == http.MethodDelete:
		h.handleUndoPayment(w, r, id, lineNo)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PDAID          string          `json:"pda_id"`
		ClientSharePct decimal.Decimal `json:"client_share_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.PDAID == "" {
		http.Error(w, "pda_id is required", http.StatusBadRequest)
		return
	}
	view, err := h.service.Convert(r.Context(), req.PDAID, req.ClientSharePct)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toViewDTO(view))
	h.logAudit(r, view.FDA.ID, "fda.convert", map[string]any{"pda_id": req.PDAID})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != fda.StatusDraft && status != fda.StatusPosted {
		http.Error(w, "status must be draft or posted", http.StatusBadRequest)
		return
	}
	fdas, err := h.service.List(r.Context(), status)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]fdaDTO, 0, len(fdas))
	for i := range fdas {
		out = append(out, toFDADTO(&fdas[i]))
	}
	writeJSON(w, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toViewDTO(view))
}

func (h *Handler) handleUpdateHeader(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		ClientSharePct    *decimal.Decimal `json:"client_share_pct"`
		Remarks           *string          `json:"remarks"`
		ExpectedUpdatedAt time.Time        `json:"expected_updated_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	view, err := h.service.UpdateHeader(r.Context(), id, fdaapp.HeaderInput{
		ClientSharePct:    req.ClientSharePct,
		Remarks:           req.Remarks,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toViewDTO(view))
	h.logAudit(r, id, "fda.update", nil)
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Confirm           bool      `json:"confirm"`
		ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	view, err := h.service.Rebuild(r.Context(), id, req.Confirm, req.ExpectedUpdatedAt)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toViewDTO(view))
	h.logAudit(r, id, "fda.rebuild", nil)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	view, err := h.service.Post(r.Context(), id, req.ExpectedUpdatedAt)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, toViewDTO(view))
	h.logAudit(r, id, "fda.post", nil)
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request, id string, lineNo int) {
	var req struct {
		Side         *string          `json:"side"`
		Description  *string          `json:"description"`
		Counterparty *string          `json:"counterparty"`
		AmountUSD    *decimal.Decimal `json:"amount_usd"`
		RateOverride *decimal.Decimal `json:"rate_override"`
		ClearRate    bool             `json:"clear_rate_override"`
		InvoiceNo    *string          `json:"invoice_no"`
		DueDate      *time.Time       `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	line, err := h.service.UpdateLine(r.Context(), id, lineNo, fdaapp.LineInput{
		Side:         req.Side,
		Description:  req.Description,
		Counterparty: req.Counterparty,
		AmountUSD:    req.AmountUSD,
		RateOverride: req.RateOverride,
		ClearRate:    req.ClearRate,
		InvoiceNo:    req.InvoiceNo,
		DueDate:      req.DueDate,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, line)
	h.logAudit(r, id, "fda.line.update", map[string]any{"line_no": lineNo})
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request, id string, lineNo int) {
	payments, err := h.service.Payments(r.Context(), id, lineNo)
	if err != nil {
		respondError(w, err)
		return
	}
	if payments == nil {
		payments = []fda.Payment{}
	}
	writeJSON(w, payments)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request, id string, lineNo int) {
	var req struct {
		AmountUSD   decimal.Decimal `json:"amount_usd"`
		FxAtPayment decimal.Decimal `json:"fx_at_payment"`
		PaidAt      time.Time       `json:"paid_at"`
		Method      string          `json:"method"`
		Reference   string          `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	line, err := h.service.RecordPayment(r.Context(), id, lineNo, fdaapp.PaymentInput{
		AmountUSD:   req.AmountUSD,
		FxAtPayment: req.FxAtPayment,
		PaidAt:      req.PaidAt,
		Method:      req.Method,
		Reference:   req.Reference,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(line)
	h.logAudit(r, id, "fda.payment.record", map[string]any{"line_no": lineNo, "amount_usd": req.AmountUSD.String()})
}

func (h *Handler) handleUndoPayment(w http.ResponseWriter, r *http.Request, id string, lineNo int) {
	line, err := h.service.UndoLastPayment(r.Context(), id, lineNo)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, line)
	h.logAudit(r, id, "fda.payment.undo", map[string]any{"line_no": lineNo})
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	data, err := BuildFDAPDF(view)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", view.FDA.ID))
	_, _ = w.Write(data)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	data, err := BuildFDAXLSX(view)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", view.FDA.ID))
	_, _ = w.Write(data)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	views, err := h.collectViews(r)
	if err != nil {
		metrics.ObserveExport("csv", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.ObserveExport("csv", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=ledger.csv")
	if err := WriteLedgerCSV(w, views); err != nil {
		return
	}
}

func (h *Handler) collectViews(r *http.Request) ([]*fdaapp.View, error) {
	if id := r.URL.Query().Get("fda_id"); id != "" {
		view, err := h.service.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return []*fdaapp.View{view}, nil
	}
	fdas, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		return nil, err
	}
	views := make([]*fdaapp.View, 0, len(fdas))
	for i := range fdas {
		view, err := h.service.Get(r.Context(), fdas[i].ID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (h *Handler) logAudit(r *http.Request, fdaID, action string, meta map[string]any) {
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
		ResourceType: "fda",
		ResourceID:   fdaID,
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
	case errors.Is(err, fda.ErrNotFound), errors.Is(err, fda.ErrLineNotFound), errors.Is(err, pda.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fda.ErrStaleUpdate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fda.ErrNotDraft), errors.Is(err, fda.ErrSourceNotApproved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fda.ErrConfirmRequired):
		http.Error(w, err.Error(), http.StatusPreconditionRequired)
	case errors.Is(err, fda.ErrOverpayment),
		errors.Is(err, fda.ErrNonPositivePayment),
		errors.Is(err, fda.ErrNoPayments),
		errors.Is(err, fda.ErrInvalidSide),
		errors.Is(err, fda.ErrInvalidStatus),
		errors.Is(err, money.ErrInvalidRate),
		errors.Is(err, money.ErrNegativeAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrTenantMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
