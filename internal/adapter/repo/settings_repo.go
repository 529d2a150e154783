package repo

import (
	"context"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// SettingsRepositoryPG implements domain.SettingsRepository on PostgreSQL.
type SettingsRepositoryPG struct {
	db infra.TxExecutor
}

// NewSettingsRepository creates a settings repository backed by PostgreSQL.
func NewSettingsRepository(db infra.TxExecutor) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{db: db}
}

// MarketplacePolicies returns the stored policy set for a marketplace, or
// domain.ErrNotConfigured when none exists.
func (r *SettingsRepositoryPG) MarketplacePolicies(ctx context.Context, marketplaceID string) (*domain.MarketplacePolicies, error) {
	query := `
SELECT marketplace_id, fulfillment_policy_id, payment_policy_id, return_policy_id, location_key
FROM marketplace_policies
WHERE marketplace_id = $1;
`
	var p domain.MarketplacePolicies
	row := r.db.QueryRow(ctx, query, marketplaceID)
	if err := row.Scan(
		&p.MarketplaceID,
		&p.FulfillmentPolicyID,
		&p.PaymentPolicyID,
		&p.ReturnPolicyID,
		&p.LocationKey,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotConfigured
		}
		return nil, err
	}
	return &p, nil
}

// UpsertMarketplacePolicies stores or replaces the policy set for a
// marketplace.
func (r *SettingsRepositoryPG) UpsertMarketplacePolicies(ctx context.Context, policies *domain.MarketplacePolicies) error {
	query := `
INSERT INTO marketplace_policies (marketplace_id, fulfillment_policy_id, payment_policy_id, return_policy_id, location_key, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (marketplace_id) DO UPDATE
SET fulfillment_policy_id = EXCLUDED.fulfillment_policy_id,
    payment_policy_id = EXCLUDED.payment_policy_id,
    return_policy_id = EXCLUDED.return_policy_id,
    location_key = EXCLUDED.location_key,
    updated_at = NOW();
`
	_, err := r.db.Exec(ctx, query,
		policies.MarketplaceID,
		policies.FulfillmentPolicyID,
		policies.PaymentPolicyID,
		policies.ReturnPolicyID,
		policies.LocationKey,
	)
	return err
}

var _ domain.SettingsRepository = (*SettingsRepositoryPG)(nil)
