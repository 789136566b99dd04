package ptax

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"portledger/internal/fx"
	"portledger/internal/observability/metrics"
)

// Handler serves GET /api/v1/fx/ptax. Without a date parameter it returns
// the most recent published quote; ?date=YYYY-MM-DD returns that day's.
type Handler struct {
	client *Client
}

// NewHandler constructs a handler.
func NewHandler(client *Client) (*Handler, error) {
	if client == nil {
		return nil, errors.New("ptax handler: nil client")
	}
	return &Handler{client: client}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var day time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	start := time.Now()
	result := metrics.ResultSuccess

	var rate fx.Rate
	var err error
	if day.IsZero() {
		rate, err = h.client.Latest(r.Context())
	} else {
		rate, err = h.client.QuoteOn(r.Context(), day)
	}
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObservePTAXLookup(result, time.Since(start))

	if err != nil {
		if errors.Is(err, ErrNoQuote) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "rate feed unavailable", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rate)
}
