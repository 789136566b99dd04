package ptax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portledger/internal/fx"
)

// DefaultBaseURL is the BCB Olinda PTAX service.
const DefaultBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

// ErrNoQuote is returned when the feed has no quote for the requested window.
var ErrNoQuote = errors.New("ptax: no quote available")

// Client is a minimal PTAX REST client for the USD/BRL selling rate.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a PTAX client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("ptax: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type quoteResponse struct {
	Value []struct {
		CotacaoVenda    float64 `json:"cotacaoVenda"`
		DataHoraCotacao string  `json:"dataHoraCotacao"`
	} `json:"value"`
}

// Latest returns the most recent published USD/BRL selling rate, walking
// back over weekends and holidays up to a week.
func (c *Client) Latest(ctx context.Context) (fx.Rate, error) {
	if c == nil || c.client == nil {
		return fx.Rate{}, errors.New("ptax: nil client")
	}
	day := time.Now().UTC()
	for i := 0; i < 7; i++ {
		rate, err := c.QuoteOn(ctx, day)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, ErrNoQuote) {
			return fx.Rate{}, err
		}
		day = day.AddDate(0, 0, -1)
	}
	return fx.Rate{}, ErrNoQuote
}

// QuoteOn returns the published rate for a specific date.
func (c *Client) QuoteOn(ctx context.Context, day time.Time) (fx.Rate, error) {
	query := url.Values{}
	query.Set("@dataCotacao", fmt.Sprintf("'%s'", day.UTC().Format("01-02-2006")))
	query.Set("$top", "1")
	query.Set("$orderby", "dataHoraCotacao desc")
	query.Set("$format", "json")
	endpoint := c.baseURL + "/CotacaoDolarDia(dataCotacao=@dataCotacao)?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fx.Rate{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fx.Rate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fx.Rate{}, fmt.Errorf("ptax: unexpected status %d", resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fx.Rate{}, err
	}
	if len(payload.Value) == 0 {
		return fx.Rate{}, ErrNoQuote
	}
	quote := payload.Value[0]
	quotedAt, err := time.Parse("2006-01-02 15:04:05.999", quote.DataHoraCotacao)
	if err != nil {
		quotedAt = day.UTC()
	}
	return fx.NewFeedRate(decimal.NewFromFloat(quote.CotacaoVenda), quotedAt)
}
