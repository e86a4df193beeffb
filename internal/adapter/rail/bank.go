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

// BankClient implements ports.BankRail against the payout provider's HTTP
// API. The transaction id doubles as the provider-side idempotency key, so
// replaying a transfer after an indeterminate outcome cannot pay out twice.
type BankClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewBankClient creates a bank payout client.
func NewBankClient(cfg config.RailConfig, log zerolog.Logger) *BankClient {
	return &BankClient{
		baseURL: cfg.BankBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: log.With().Str("component", "bank_rail").Logger(),
	}
}

type bankTransferRequest struct {
	Reference     string `json:"reference"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Narration     string `json:"narration,omitempty"`
}

type transferResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

// Transfer submits a fiat payout. A network error or 5xx answer is
// indeterminate: the provider may or may not have accepted the transfer, and
// only a retry with the same reference can resolve it.
func (c *BankClient) Transfer(ctx context.Context, transactionID uuid.UUID, dest domain.BankTransferData, amount decimal.Decimal, currency, narration string) (ports.TransferResult, error) {
	payload, err := json.Marshal(bankTransferRequest{
		Reference:     transactionID.String(),
		BankCode:      dest.BankCode,
		AccountNumber: dest.AccountNumber,
		AccountName:   dest.AccountName,
		Amount:        amount.String(),
		Currency:      currency,
		Narration:     narration,
	})
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", transactionID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeout or connection failure. The provider's state is unknown.
		c.log.Warn().Err(err).Str("transaction_id", transactionID.String()).Msg("Bank transfer outcome indeterminate")
		return ports.TransferResult{Outcome: ports.TransferIndeterminate}, nil
	}
	defer resp.Body.Close()

	return classifyResponse(resp, c.log, transactionID)
}
