package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// ProviderRepository handles provider lookups and counter maintenance.
type ProviderRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProviderRepository {
	return &ProviderRepository{db: db, log: logger}
}

// GetByProviderID retrieves a provider by its SHA provider identification
// number.
func (r *ProviderRepository) GetByProviderID(ctx context.Context, providerID string) (*domain.Provider, error) {
	query := `
		SELECT id, provider_id, name, county, risk_level,
			   total_claims_count, rejected_claims_count, flagged_claims_count,
			   average_claimed_amount, is_active, is_blacklisted
		FROM providers
		WHERE provider_id = $1`

	var provider domain.Provider
	err := r.db.QueryRow(ctx, query, providerID).Scan(
		&provider.ID,
		&provider.ProviderID,
		&provider.Name,
		&provider.County,
		&provider.RiskLevel,
		&provider.TotalClaimsCount,
		&provider.RejectedClaimsCount,
		&provider.FlaggedClaimsCount,
		&provider.AverageClaimedAmount,
		&provider.IsActive,
		&provider.IsBlacklisted,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("provider %s: %w", providerID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"provider_id": providerID,
			"error":       err,
		}).Error("Failed to get provider")
		return nil, fmt.Errorf("getting provider: %w", err)
	}

	return &provider, nil
}

// Upsert creates or refreshes a provider record from a submitted claim.
// Counters are maintained here so the profiler's rates stay current.
func (r *ProviderRepository) Upsert(ctx context.Context, provider *domain.Provider) error {
	query := `
		INSERT INTO providers (id, provider_id, name, county, risk_level, is_active)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'LOW'), TRUE)
		ON CONFLICT (provider_id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name != '' THEN EXCLUDED.name ELSE providers.name END,
			updated_at = now()`

	_, err := r.db.Exec(ctx, query,
		provider.ID,
		provider.ProviderID,
		provider.Name,
		provider.County,
		string(provider.RiskLevel),
	)
	if err != nil {
		return fmt.Errorf("upserting provider: %w", err)
	}
	return nil
}

// IncrementClaimCount bumps the provider's total claim counter after intake.
func (r *ProviderRepository) IncrementClaimCount(ctx context.Context, providerID string) error {
	query := `
		UPDATE providers
		SET total_claims_count = total_claims_count + 1, updated_at = now()
		WHERE provider_id = $1`

	if _, err := r.db.Exec(ctx, query, providerID); err != nil {
		return fmt.Errorf("incrementing provider claim count: %w", err)
	}
	return nil
}
