package rail

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"
)

// classifyResponse maps an HTTP answer onto a transfer outcome.
//
//	2xx with status SUCCESS  -> succeeded
//	2xx with status FAILED   -> failed, provider reason attached
//	4xx                      -> failed, the provider rejected the request
//	5xx or unparseable body  -> indeterminate
func classifyResponse(resp *http.Response, log zerolog.Logger, transactionID uuid.UUID) (ports.TransferResult, error) {
	if resp.StatusCode >= 500 {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("transaction_id", transactionID.String()).
			Msg("Rail returned server error, outcome indeterminate")
		return ports.TransferResult{Outcome: ports.TransferIndeterminate}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return ports.TransferResult{Outcome: ports.TransferIndeterminate}, nil
	}

	if resp.StatusCode >= 400 {
		var tr transferResponse
		reason := fmt.Sprintf("rail rejected request with status %d", resp.StatusCode)
		if json.Unmarshal(body, &tr) == nil && tr.Reason != "" {
			reason = tr.Reason
		}
		return ports.TransferResult{Outcome: ports.TransferFailed, Reason: reason}, nil
	}

	var tr transferResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		// Accepted status but unreadable body. Treat as indeterminate so a
		// retry can fetch a definitive answer.
		log.Warn().
			Err(err).
			Str("transaction_id", transactionID.String()).
			Msg("Unparseable rail response, outcome indeterminate")
		return ports.TransferResult{Outcome: ports.TransferIndeterminate}, nil
	}

	switch tr.Status {
	case statusSuccess:
		return ports.TransferResult{Outcome: ports.TransferSucceeded, Reference: tr.Reference}, nil
	case statusFailed:
		return ports.TransferResult{Outcome: ports.TransferFailed, Reference: tr.Reference, Reason: tr.Reason}, nil
	default:
		return ports.TransferResult{Outcome: ports.TransferIndeterminate, Reference: tr.Reference}, nil
	}
}
