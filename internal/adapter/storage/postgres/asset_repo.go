package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssetRepo implements ports.AssetRepository.
type AssetRepo struct {
	pool Pool
}

// NewAssetRepo creates a new AssetRepo.
func NewAssetRepo(pool Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

// GetByID fetches an asset by UUID. Returns nil when not found.
func (r *AssetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `SELECT id, symbol, chain, currency, created_at FROM assets WHERE id = $1`

	a := &domain.Asset{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Symbol, &a.Chain, &a.Currency, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return a, nil
}
