package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset describes a withdrawable asset known to the system.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	Symbol    string    `json:"symbol"`
	Chain     string    `json:"chain"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}
