package repo

import (
	"context"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	db infra.TxExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(db infra.TxExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

const jobColumns = `id, type, target_id, status, progress, message, COALESCE(error_message, ''), created_at, updated_at`

func scanJob(row interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Type,
		&job.TargetID,
		&job.Status,
		&job.Progress,
		&job.Message,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, type, target_id, status, progress, message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Type,
		job.TargetID,
		job.Status,
		job.Progress,
		job.Message,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1;
`
	return scanJob(r.db.QueryRow(ctx, query, jobID))
}

// ClaimNext atomically flips the oldest queued job to RUNNING and returns it.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
UPDATE jobs
SET status = $1, updated_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = $2
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING ` + jobColumns + `;
`
	return scanJob(r.db.QueryRow(ctx, query, domain.JobStatusRunning, domain.JobStatusQueued))
}

// UpdateProgress records forward progress on a running job. Progress never
// moves backwards in storage even if updates land out of order.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	query := `
UPDATE jobs
SET progress = GREATEST(progress, $2),
    message = $3,
    updated_at = NOW()
WHERE id = $1 AND status = $4;
`
	_, err := r.db.Exec(ctx, query, jobID, progress, message, domain.JobStatusRunning)
	return err
}

// Complete marks a job COMPLETED with full progress.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, message string) error {
	query := `
UPDATE jobs
SET status = $2, progress = 100, message = $3, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.db.Exec(ctx, query, jobID, domain.JobStatusCompleted, message)
	return err
}

// Fail marks a job ERROR and records the failure message.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID string, errMsg string) error {
	query := `
UPDATE jobs
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.db.Exec(ctx, query, jobID, domain.JobStatusError, errMsg)
	return err
}

// LatestForTarget returns the most recent job created for an entity.
func (r *JobRepositoryPG) LatestForTarget(ctx context.Context, targetID string) (*domain.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE target_id = $1
ORDER BY created_at DESC
LIMIT 1;
`
	return scanJob(r.db.QueryRow(ctx, query, targetID))
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
