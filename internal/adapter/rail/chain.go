package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wallet-withdrawal-engine/config"
	"wallet-withdrawal-engine/internal/core/domain"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ChainClient implements ports.ChainBroadcaster against the on-chain
// broadcast service. Idempotency works the same way as the bank rail: the
// transaction id is the provider-side reference.
type ChainClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewChainClient creates an on-chain broadcast client.
func NewChainClient(cfg config.RailConfig, log zerolog.Logger) *ChainClient {
	return &ChainClient{
		baseURL: cfg.ChainBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: log.With().Str("component", "chain_rail").Logger(),
	}
}

type broadcastRequest struct {
	Reference string `json:"reference"`
	AssetID   string `json:"asset_id"`
	Address   string `json:"address"`
	Chain     string `json:"chain"`
	Amount    string `json:"amount"`
}

// Broadcast submits an on-chain transfer. Outcome classification mirrors the
// bank rail: network errors and 5xx are indeterminate, never failures.
func (c *ChainClient) Broadcast(ctx context.Context, transactionID uuid.UUID, dest domain.ExternalWalletData, assetID uuid.UUID, amount decimal.Decimal) (ports.TransferResult, error) {
	payload, err := json.Marshal(broadcastRequest{
		Reference: transactionID.String(),
		AssetID:   assetID.String(),
		Address:   dest.Address,
		Chain:     dest.Chain,
		Amount:    amount.String(),
	})
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("marshal broadcast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/broadcasts", bytes.NewReader(payload))
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", transactionID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("transaction_id", transactionID.String()).Msg("Chain broadcast outcome indeterminate")
		return ports.TransferResult{Outcome: ports.TransferIndeterminate}, nil
	}
	defer resp.Body.Close()

	return classifyResponse(resp, c.log, transactionID)
}
