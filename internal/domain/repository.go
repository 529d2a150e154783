package domain

import "context"

// GroupingRepository persists batches, images, and groups, and applies
// grouping change sets atomically.
type GroupingRepository interface {
	CreateBatch(ctx context.Context, batch *Batch) error
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	AddImages(ctx context.Context, images []Image) error
	// BatchState loads the full grouping snapshot for one batch.
	BatchState(ctx context.Context, batchID string) (*BatchState, error)
	// BatchIDForGroup resolves the owning batch of a group.
	BatchIDForGroup(ctx context.Context, groupID string) (string, error)
	// Apply persists a change set as a single transaction.
	Apply(ctx context.Context, batchID string, cs ChangeSet) error
	// SetGroupDraft links a generated draft to its group.
	SetGroupDraft(ctx context.Context, groupID, draftID string) error
}

// JobRepository defines persistence for job records.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// ClaimNext atomically moves the oldest queued job to RUNNING and returns
	// it, or ErrNotFound when no work is queued.
	ClaimNext(ctx context.Context) (*Job, error)
	// UpdateProgress records forward progress on a running job.
	UpdateProgress(ctx context.Context, jobID string, progress int, message string) error
	Complete(ctx context.Context, jobID string, message string) error
	Fail(ctx context.Context, jobID string, errMsg string) error
	// LatestForTarget returns the most recent job created for an entity.
	LatestForTarget(ctx context.Context, targetID string) (*Job, error)
}

// DraftRepository defines persistence for draft listings.
type DraftRepository interface {
	Create(ctx context.Context, draft *Draft) error
	GetByID(ctx context.Context, draftID string) (*Draft, error)
	List(ctx context.Context, status DraftStatus, itemType ItemType) ([]Draft, error)
	Update(ctx context.Context, draft *Draft) error
	// Delete removes a draft and frees its group for regeneration.
	Delete(ctx context.Context, draftID string) error
	// NextSKU allocates the next sequential SKU for an item type.
	NextSKU(ctx context.Context, itemType ItemType) (string, error)
	// SetPublishResult records the terminal outcome for one marketplace.
	SetPublishResult(ctx context.Context, draftID string, result PublishResult) error
	CountByStatus(ctx context.Context) (map[DraftStatus]int, error)
}

// SettingsRepository stores per-marketplace publishing configuration.
type SettingsRepository interface {
	// MarketplacePolicies returns ErrNotConfigured when no policies are stored
	// for the marketplace.
	MarketplacePolicies(ctx context.Context, marketplaceID string) (*MarketplacePolicies, error)
	UpsertMarketplacePolicies(ctx context.Context, policies *MarketplacePolicies) error
}
