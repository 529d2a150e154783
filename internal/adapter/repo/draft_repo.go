package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// DraftRepositoryPG implements domain.DraftRepository on PostgreSQL. Aspects,
// image URLs, and per-marketplace publish results live in jsonb columns.
type DraftRepositoryPG struct {
	db infra.TxExecutor
}

// NewDraftRepository creates a draft repository backed by PostgreSQL.
func NewDraftRepository(db infra.TxExecutor) *DraftRepositoryPG {
	return &DraftRepositoryPG{db: db}
}

const draftColumns = `id, sku, group_id, item_type, title, description, aspects, condition, category_id, price, image_urls, status, marketplace_results, created_at, updated_at`

func scanDraft(row interface{ Scan(dest ...any) error }) (*domain.Draft, error) {
	var (
		draft      domain.Draft
		aspectsRaw []byte
		urlsRaw    []byte
		resultsRaw []byte
	)
	if err := row.Scan(
		&draft.ID,
		&draft.SKU,
		&draft.GroupID,
		&draft.ItemType,
		&draft.Title,
		&draft.Description,
		&aspectsRaw,
		&draft.Condition,
		&draft.CategoryID,
		&draft.Price,
		&urlsRaw,
		&draft.Status,
		&resultsRaw,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(aspectsRaw) > 0 {
		if err := json.Unmarshal(aspectsRaw, &draft.Aspects); err != nil {
			return nil, fmt.Errorf("decode aspects: %w", err)
		}
	}
	if len(urlsRaw) > 0 {
		if err := json.Unmarshal(urlsRaw, &draft.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image urls: %w", err)
		}
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &draft.MarketplaceResults); err != nil {
			return nil, fmt.Errorf("decode marketplace results: %w", err)
		}
	}
	if draft.MarketplaceResults == nil {
		draft.MarketplaceResults = map[string]domain.PublishResult{}
	}
	return &draft, nil
}

func encodeDraft(draft *domain.Draft) (aspects, urls, results []byte, err error) {
	if aspects, err = json.Marshal(draft.Aspects); err != nil {
		return nil, nil, nil, fmt.Errorf("encode aspects: %w", err)
	}
	if urls, err = json.Marshal(draft.ImageURLs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode image urls: %w", err)
	}
	if draft.MarketplaceResults == nil {
		results = []byte("{}")
		return aspects, urls, results, nil
	}
	if results, err = json.Marshal(draft.MarketplaceResults); err != nil {
		return nil, nil, nil, fmt.Errorf("encode marketplace results: %w", err)
	}
	return aspects, urls, results, nil
}

// Create inserts a new draft.
func (r *DraftRepositoryPG) Create(ctx context.Context, draft *domain.Draft) error {
	aspects, urls, results, err := encodeDraft(draft)
	if err != nil {
		return err
	}
	query := `
INSERT INTO drafts (id, sku, group_id, item_type, title, description, aspects, condition, category_id, price, image_urls, status, marketplace_results, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
`
	_, err = r.db.Exec(ctx, query,
		draft.ID,
		draft.SKU,
		draft.GroupID,
		draft.ItemType,
		draft.Title,
		draft.Description,
		aspects,
		draft.Condition,
		draft.CategoryID,
		draft.Price,
		urls,
		draft.Status,
		results,
		draft.CreatedAt,
		draft.UpdatedAt,
	)
	return err
}

// GetByID fetches a draft by its identifier.
func (r *DraftRepositoryPG) GetByID(ctx context.Context, draftID string) (*domain.Draft, error) {
	query := `
SELECT ` + draftColumns + `
FROM drafts
WHERE id = $1;
`
	return scanDraft(r.db.QueryRow(ctx, query, draftID))
}

// List returns drafts, optionally filtered by status and item type. Empty
// filter values match everything.
func (r *DraftRepositoryPG) List(ctx context.Context, status domain.DraftStatus, itemType domain.ItemType) ([]domain.Draft, error) {
	query := `
SELECT ` + draftColumns + `
FROM drafts
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR item_type = $2)
ORDER BY created_at DESC;
`
	rows, err := r.db.Query(ctx, query, string(status), string(itemType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []domain.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *draft)
	}
	return drafts, rows.Err()
}

// Update replaces the editable content of a draft.
func (r *DraftRepositoryPG) Update(ctx context.Context, draft *domain.Draft) error {
	aspects, urls, results, err := encodeDraft(draft)
	if err != nil {
		return err
	}
	query := `
UPDATE drafts
SET title = $2,
    description = $3,
    aspects = $4,
    condition = $5,
    category_id = $6,
    price = $7,
    image_urls = $8,
    status = $9,
    marketplace_results = $10,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query,
		draft.ID,
		draft.Title,
		draft.Description,
		aspects,
		draft.Condition,
		draft.CategoryID,
		draft.Price,
		urls,
		draft.Status,
		results,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a draft and detaches it from its group so a new draft can be
// generated for the same photos. Both statements run in one transaction.
func (r *DraftRepositoryPG) Delete(ctx context.Context, draftID string) error {
	return r.db.WithTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, `UPDATE groups SET draft_id = NULL WHERE draft_id = $1;`, draftID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM drafts WHERE id = $1;`, draftID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// NextSKU allocates the next sequential SKU for an item type, formatted as
// OSS-<TYPE>-<SEQ>.
func (r *DraftRepositoryPG) NextSKU(ctx context.Context, itemType domain.ItemType) (string, error) {
	query := `
INSERT INTO sku_sequences (item_type, last_seq)
VALUES ($1, 1)
ON CONFLICT (item_type) DO UPDATE
SET last_seq = sku_sequences.last_seq + 1
RETURNING last_seq;
`
	var seq int
	if err := r.db.QueryRow(ctx, query, itemType).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("OSS-%s-%04d", itemType, seq), nil
}

// SetPublishResult records the terminal outcome for one marketplace without
// touching the rest of the results map.
func (r *DraftRepositoryPG) SetPublishResult(ctx context.Context, draftID string, result domain.PublishResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode publish result: %w", err)
	}
	query := `
UPDATE drafts
SET marketplace_results = jsonb_set(COALESCE(marketplace_results, '{}'::jsonb), ARRAY[$2::text], $3::jsonb),
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query, draftID, result.MarketplaceID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByStatus aggregates drafts per status for the stats endpoint.
func (r *DraftRepositoryPG) CountByStatus(ctx context.Context) (map[domain.DraftStatus]int, error) {
	query := `
SELECT status, COUNT(*)
FROM drafts
GROUP BY status;
`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DraftStatus]int)
	for rows.Next() {
		var (
			status domain.DraftStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

var _ domain.DraftRepository = (*DraftRepositoryPG)(nil)
