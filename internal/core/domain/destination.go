package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Destination event tags. The tag selects the variant; adding a destination
// type means adding one variant case here and in the execution dispatch.
const (
	DestinationBankTransfer   = "withdraw:bank-transfer"
	DestinationExternalWallet = "withdraw:external-wallet"
)

// BankTransferData is the bank-transfer destination variant.
type BankTransferData struct {
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ExternalWalletData is the external-wallet destination variant.
type ExternalWalletData struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

// Destination is a tagged variant describing where funds leave the system.
// Exactly one of Bank or Wallet is set, matching Event.
type Destination struct {
	Event  string              `json:"event"`
	Bank   *BankTransferData   `json:"bank,omitempty"`
	Wallet *ExternalWalletData `json:"wallet,omitempty"`
}

// DestinationError describes why a destination descriptor was rejected.
type DestinationError struct {
	Event  string
	Reason string
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("destination %q: %s", e.Event, e.Reason)
}

// ErrUnsupportedDestination marks an unknown event tag. Callers distinguish
// it from malformed-but-known variants.
type UnsupportedDestinationError struct {
	Event string
}

func (e *UnsupportedDestinationError) Error() string {
	return fmt.Sprintf("unsupported destination type %q", e.Event)
}

// ResolveDestination validates and normalizes a raw destination descriptor.
// It is a pure function: the event tag selects the variant and required
// fields are checked per variant. Account numbers are normalized to digits.
func ResolveDestination(event string, data json.RawMessage) (Destination, error) {
	switch event {
	case DestinationBankTransfer:
		var bank BankTransferData
		if err := json.Unmarshal(data, &bank); err != nil {
			return Destination{}, &DestinationError{Event: event, Reason: "malformed payload"}
		}
		bank.AccountNumber = normalizeAccountNumber(bank.AccountNumber)
		if bank.BankCode == "" {
			return Destination{}, &DestinationError{Event: event, Reason: "bank_code is required"}
		}
		if len(bank.AccountNumber) < 10 || !isDigits(bank.AccountNumber) {
			return Destination{}, &DestinationError{Event: event, Reason: "account_number must be at least 10 digits"}
		}
		if bank.AccountName == "" {
			return Destination{}, &DestinationError{Event: event, Reason: "account_name is required"}
		}
		return Destination{Event: event, Bank: &bank}, nil

	case DestinationExternalWallet:
		var wallet ExternalWalletData
		if err := json.Unmarshal(data, &wallet); err != nil {
			return Destination{}, &DestinationError{Event: event, Reason: "malformed payload"}
		}
		if wallet.Address == "" {
			return Destination{}, &DestinationError{Event: event, Reason: "address is required"}
		}
		if wallet.Chain == "" {
			return Destination{}, &DestinationError{Event: event, Reason: "chain is required"}
		}
		return Destination{Event: event, Wallet: &wallet}, nil

	default:
		return Destination{}, &UnsupportedDestinationError{Event: event}
	}
}

// Summary returns a short human-readable target used in notifications.
// Account numbers and addresses are partially masked.
func (d Destination) Summary() string {
	switch d.Event {
	case DestinationBankTransfer:
		if d.Bank == nil {
			return "bank transfer"
		}
		return fmt.Sprintf("bank %s ****%s", d.Bank.BankCode, tail(d.Bank.AccountNumber, 4))
	case DestinationExternalWallet:
		if d.Wallet == nil {
			return "external wallet"
		}
		return fmt.Sprintf("%s:%s...%s", d.Wallet.Chain, head(d.Wallet.Address, 6), tail(d.Wallet.Address, 4))
	default:
		return d.Event
	}
}

func normalizeAccountNumber(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
