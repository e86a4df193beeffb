package notifier

import (
	"context"

	"wallet-withdrawal-engine/internal/core/ports"
)

// Noop discards notifications. Used when no broker is configured, typically
// in local development.
type Noop struct{}

// NewNoop creates a no-op notifier.
func NewNoop() *Noop {
	return &Noop{}
}

// Notify does nothing.
func (Noop) Notify(_ context.Context, _ ports.TerminalNotification) error {
	return nil
}
