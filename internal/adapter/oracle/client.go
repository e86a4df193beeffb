package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wallet-withdrawal-engine/config"
	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client implements ports.PricingOracle against the pricing service's HTTP
// API. Quote requests are idempotent, so transient failures retry with
// exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger
}

// NewClient creates a pricing oracle client.
func NewClient(cfg config.OracleConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		maxRetries: cfg.MaxRetries,
		log:        log.With().Str("component", "pricing_oracle").Logger(),
	}
}

type quoteRequest struct {
	AssetID  uuid.UUID       `json:"asset_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type quoteResponse struct {
	Rate decimal.Decimal `json:"rate"`
	Fee  decimal.Decimal `json:"fee"`
}

// Quote fetches the conversion rate and network fee for an asset/amount pair.
func (c *Client) Quote(ctx context.Context, assetID uuid.UUID, amount decimal.Decimal, currency string) (*domain.Quote, error) {
	payload, err := json.Marshal(quoteRequest{AssetID: assetID, Amount: amount, Currency: currency})
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 200 * time.Millisecond
			c.log.Info().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Quote request failed, retrying after backoff")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		quote, retryable, err := c.doQuote(ctx, payload)
		if err == nil {
			return quote, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("fetching quote: %w", lastErr)
}

func (c *Client) doQuote(ctx context.Context, payload []byte) (*domain.Quote, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/quotes", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("quote service returned %d: %s", resp.StatusCode, body)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, false, fmt.Errorf("decoding quote response: %w", err)
	}
	// A quote priced without a positive rate cannot convert anything; treat
	// it like the service being unavailable rather than debit against it.
	if !qr.Rate.IsPositive() {
		return nil, false, fmt.Errorf("quote response has non-positive rate %s", qr.Rate)
	}
	if qr.Fee.IsNegative() {
		return nil, false, fmt.Errorf("quote response has negative fee %s", qr.Fee)
	}
	return &domain.Quote{Rate: qr.Rate, Fee: qr.Fee}, false, nil
}
