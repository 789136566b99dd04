package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"portledger/internal/audit"
	"portledger/internal/auth"
	orgapp "portledger/internal/org/application"
	org "portledger/internal/org/domain"
)

// Handler serves organization and member administration routes.
type Handler struct {
	service     *orgapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *orgapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("org handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles routes under /api/v1/organization.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/organization" && r.Method == http.MethodGet:
		h.handleGet(w, r)
	case path == "/api/v1/organization/members" && r.Method == http.MethodGet:
		h.handleListMembers(w, r)
	case path == "/api/v1/organization/members" && r.Method == http.MethodPost:
		h.handleAddMember(w, r)
	case strings.HasPrefix(path, "/api/v1/organization/members/"):
		memberID := strings.TrimPrefix(path, "/api/v1/organization/members/")
		switch r.Method {
		case http.MethodPut:
			h.handleUpdateRole(w, r, memberID)
		case http.MethodDelete:
			h.handleRemove(w, r, memberID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, o)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, members)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	member, err := h.service.AddMember(r.Context(), req.Email, req.DisplayName, auth.Role(req.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(member)
	h.logAudit(r, member.ID, "org.member.add", map[string]any{"email": req.Email, "role": req.Role})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request, memberID string) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	member, err := h.service.UpdateMemberRole(r.Context(), memberID, auth.Role(req.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, member)
	h.logAudit(r, memberID, "org.member.role", map[string]any{"role": req.Role})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request, memberID string) {
	if err := h.service.RemoveMember(r.Context(), memberID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, memberID, "org.member.remove", nil)
}

func (h *Handler) logAudit(r *http.Request, memberID, action string, meta map[string]any) {
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
		ResourceType: "org_member",
		ResourceID:   memberID,
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
	case errors.Is(err, org.ErrNotFound), errors.Is(err, org.ErrMemberNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, org.ErrDuplicateMember):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, org.ErrLastAdmin):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, org.ErrEmptyEmail), errors.Is(err, org.ErrInvalidRole):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
