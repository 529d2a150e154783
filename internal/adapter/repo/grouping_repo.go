package repo

import (
	"context"
	"fmt"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// GroupingRepositoryPG implements domain.GroupingRepository on PostgreSQL.
type GroupingRepositoryPG struct {
	db infra.TxExecutor
}

// NewGroupingRepository creates a grouping repository backed by PostgreSQL.
func NewGroupingRepository(db infra.TxExecutor) *GroupingRepositoryPG {
	return &GroupingRepositoryPG{db: db}
}

// CreateBatch inserts a new batch record.
func (r *GroupingRepositoryPG) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	query := `
INSERT INTO batches (id, name, created_at)
VALUES ($1, $2, $3);
`
	_, err := r.db.Exec(ctx, query, batch.ID, batch.Name, batch.CreatedAt)
	return err
}

// GetBatch fetches a batch by its identifier.
func (r *GroupingRepositoryPG) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	query := `
SELECT id, name, created_at
FROM batches
WHERE id = $1;
`
	var batch domain.Batch
	row := r.db.QueryRow(ctx, query, batchID)
	if err := row.Scan(&batch.ID, &batch.Name, &batch.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// AddImages inserts uploaded images into their batch.
func (r *GroupingRepositoryPG) AddImages(ctx context.Context, images []domain.Image) error {
	if len(images) == 0 {
		return nil
	}
	query := `
INSERT INTO images (id, batch_id, url, group_id, position)
VALUES ($1, $2, $3, NULLIF($4, ''), $5);
`
	return r.db.WithTx(ctx, func(tx infra.SQLExecutor) error {
		for _, img := range images {
			if _, err := tx.Exec(ctx, query, img.ID, img.BatchID, img.URL, img.GroupID, img.Position); err != nil {
				return err
			}
		}
		return nil
	})
}

// BatchState loads the full grouping snapshot for one batch. Image order
// inside a group follows the stored position.
func (r *GroupingRepositoryPG) BatchState(ctx context.Context, batchID string) (*domain.BatchState, error) {
	batch, err := r.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	state := &domain.BatchState{Batch: *batch}

	imageQuery := `
SELECT id, batch_id, url, COALESCE(group_id::text, ''), position
FROM images
WHERE batch_id = $1
ORDER BY position, id;
`
	rows, err := r.db.Query(ctx, imageQuery, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.BatchID, &img.URL, &img.GroupID, &img.Position); err != nil {
			return nil, err
		}
		state.Images = append(state.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groupQuery := `
SELECT id, batch_id, suggested_type, confidence, COALESCE(draft_id::text, ''), created_at
FROM groups
WHERE batch_id = $1
ORDER BY created_at, id;
`
	grows, err := r.db.Query(ctx, groupQuery, batchID)
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	for grows.Next() {
		var g domain.Group
		if err := grows.Scan(&g.ID, &g.BatchID, &g.SuggestedType, &g.Confidence, &g.DraftID, &g.CreatedAt); err != nil {
			return nil, err
		}
		state.Groups = append(state.Groups, g)
	}
	if err := grows.Err(); err != nil {
		return nil, err
	}

	byGroup := make(map[string][]string)
	for _, img := range state.Images {
		if img.Assigned() {
			byGroup[img.GroupID] = append(byGroup[img.GroupID], img.ID)
		}
	}
	for i := range state.Groups {
		state.Groups[i].ImageIDs = byGroup[state.Groups[i].ID]
	}
	return state, nil
}

// BatchIDForGroup resolves the owning batch of a group.
func (r *GroupingRepositoryPG) BatchIDForGroup(ctx context.Context, groupID string) (string, error) {
	query := `
SELECT batch_id
FROM groups
WHERE id = $1;
`
	var batchID string
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&batchID); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return batchID, nil
}

// Apply persists a change set in one transaction: deletions detach their
// images, then group rows are upserted, then image assignments run, and
// membership ordering is written last. Group rows must exist before any
// image row references them; images.group_id carries a foreign key checked
// per statement.
func (r *GroupingRepositoryPG) Apply(ctx context.Context, batchID string, cs domain.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	return r.db.WithTx(ctx, func(tx infra.SQLExecutor) error {
		for _, groupID := range cs.DeleteGroupIDs {
			if _, err := tx.Exec(ctx,
				`UPDATE images SET group_id = NULL, position = 0 WHERE group_id = $1;`, groupID); err != nil {
				return fmt.Errorf("detach images of group %s: %w", groupID, err)
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM groups WHERE id = $1 AND batch_id = $2;`, groupID, batchID); err != nil {
				return fmt.Errorf("delete group %s: %w", groupID, err)
			}
		}
		for _, g := range cs.UpsertGroups {
			if _, err := tx.Exec(ctx, `
INSERT INTO groups (id, batch_id, suggested_type, confidence, draft_id, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
ON CONFLICT (id) DO UPDATE
SET suggested_type = EXCLUDED.suggested_type,
    confidence = EXCLUDED.confidence;
`, g.ID, g.BatchID, g.SuggestedType, g.Confidence, g.DraftID, g.CreatedAt); err != nil {
				return fmt.Errorf("upsert group %s: %w", g.ID, err)
			}
		}
		for imageID, groupID := range cs.AssignImages {
			if _, err := tx.Exec(ctx,
				`UPDATE images SET group_id = NULLIF($2, '')::uuid WHERE id = $1 AND batch_id = $3;`,
				imageID, groupID, batchID); err != nil {
				return fmt.Errorf("assign image %s: %w", imageID, err)
			}
		}
		for _, g := range cs.UpsertGroups {
			for position, imageID := range g.ImageIDs {
				if _, err := tx.Exec(ctx,
					`UPDATE images SET group_id = $2, position = $3 WHERE id = $1 AND batch_id = $4;`,
					imageID, g.ID, position, batchID); err != nil {
					return fmt.Errorf("place image %s: %w", imageID, err)
				}
			}
		}
		return nil
	})
}

// SetGroupDraft links a generated draft to its group.
func (r *GroupingRepositoryPG) SetGroupDraft(ctx context.Context, groupID, draftID string) error {
	query := `
UPDATE groups
SET draft_id = $2
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query, groupID, draftID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.GroupingRepository = (*GroupingRepositoryPG)(nil)
