package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CredentialRepo implements ports.CredentialRepository. The credential rows
// are written by the account-management system; this engine only reads them.
type CredentialRepo struct {
	pool Pool
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(pool Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// GetPINHash fetches the stored Argon2id PIN hash for an owner. Returns an
// empty string when the owner has no credential on file.
func (r *CredentialRepo) GetPINHash(ctx context.Context, ownerID uuid.UUID) (string, error) {
	query := `SELECT pin_hash FROM owner_credentials WHERE owner_id = $1`

	var hash string
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("scan pin hash: %w", err)
	}
	return hash, nil
}
