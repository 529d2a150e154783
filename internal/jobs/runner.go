// Package jobs executes long-running batch operations out of band. Jobs are
// created synchronously, run on the worker, and are observed by polling.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/grouping"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/classifier"
	"github.com/commtamo10-tech/skatebaypublisher/internal/providers/lister"
)

// Runner executes the job bodies for both supported job types.
type Runner struct {
	jobs       domain.JobRepository
	drafts     domain.DraftRepository
	grouping   *grouping.Service
	classifier classifier.Classifier
	composer   lister.Composer
	logger     infra.Logger
}

// NewRunner wires the job executor with its collaborators.
func NewRunner(
	jobs domain.JobRepository,
	drafts domain.DraftRepository,
	groupingSvc *grouping.Service,
	engine classifier.Classifier,
	composer lister.Composer,
	logger infra.Logger,
) *Runner {
	return &Runner{
		jobs:       jobs,
		drafts:     drafts,
		grouping:   groupingSvc,
		classifier: engine,
		composer:   composer,
		logger:     logger,
	}
}

// Enqueue creates a QUEUED job for the target and returns it immediately; the
// body runs later on the worker.
func (r *Runner) Enqueue(ctx context.Context, jobType domain.JobType, targetID string) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		TargetID:  targetID,
		Status:    domain.JobStatusQueued,
		Progress:  0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	return job, nil
}

// Execute runs a claimed job to its terminal state. Errors are captured into
// the job record, never returned to the worker loop.
func (r *Runner) Execute(ctx context.Context, job *domain.Job) {
	r.logger.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("jobs: picked job")
	var err error
	switch job.Type {
	case domain.JobTypeAutoGroup:
		err = r.runAutoGroup(ctx, job)
	case domain.JobTypeGenerateDrafts:
		err = r.runGenerateDrafts(ctx, job)
	default:
		err = fmt.Errorf("unsupported job type %q", job.Type)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobs: job failed")
		if failErr := r.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			r.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("jobs: record failure failed")
		}
	}
}

// progress reports forward progress, clamped so polled values never decrease.
type progress struct {
	jobs   domain.JobRepository
	jobID  string
	last   int
	logger infra.Logger
}

func (p *progress) report(ctx context.Context, pct int, message string) {
	if pct < p.last {
		pct = p.last
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct
	if err := p.jobs.UpdateProgress(ctx, p.jobID, pct, message); err != nil {
		p.logger.Warn().Err(err).Str("job_id", p.jobID).Msg("jobs: progress update failed")
	}
}

func (r *Runner) runAutoGroup(ctx context.Context, job *domain.Job) error {
	if r.classifier == nil {
		return fmt.Errorf("%w: classifier endpoint not configured", domain.ErrCollaborator)
	}
	state, err := r.grouping.State(ctx, job.TargetID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	if len(state.Images) == 0 {
		return fmt.Errorf("batch %s has no images", job.TargetID)
	}

	prog := &progress{jobs: r.jobs, jobID: job.ID, logger: r.logger}
	prog.report(ctx, 10, fmt.Sprintf("classifying %d images", len(state.Images)))

	proposals, err := r.classifier.Classify(ctx, state.Images)
	if err != nil {
		// No partial groups are persisted on collaborator failure.
		return fmt.Errorf("%w: %v", domain.ErrCollaborator, err)
	}
	prog.report(ctx, 70, "persisting proposed groups")

	mapped := make([]grouping.Proposal, 0, len(proposals))
	for _, p := range proposals {
		mapped = append(mapped, grouping.Proposal{
			ImageIDs:      p.ImageIDs,
			SuggestedType: p.SuggestedType,
			Confidence:    p.Confidence,
		})
	}
	created, err := r.grouping.ApplyProposals(ctx, job.TargetID, mapped)
	if err != nil {
		return fmt.Errorf("persist proposal: %w", err)
	}

	return r.jobs.Complete(ctx, job.ID, fmt.Sprintf("created %d groups", len(created)))
}

func (r *Runner) runGenerateDrafts(ctx context.Context, job *domain.Job) error {
	if r.composer == nil {
		return fmt.Errorf("%w: lister endpoint not configured", domain.ErrCollaborator)
	}
	state, err := r.grouping.State(ctx, job.TargetID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	var pending []domain.Group
	for _, g := range state.Groups {
		if g.DraftID == "" {
			pending = append(pending, g)
		}
	}
	if len(pending) == 0 {
		return r.jobs.Complete(ctx, job.ID, "no groups awaiting drafts")
	}

	prog := &progress{jobs: r.jobs, jobID: job.ID, logger: r.logger}
	var failures []string
	for i, group := range pending {
		if err := r.generateDraftForGroup(ctx, state, group); err != nil {
			r.logger.Warn().Err(err).Str("group_id", group.ID).Msg("jobs: draft generation failed for group")
			failures = append(failures, fmt.Sprintf("group %s: %v", group.ID, err))
		}
		prog.report(ctx, (i+1)*100/len(pending), fmt.Sprintf("processed %d/%d groups", i+1, len(pending)))
	}

	if len(failures) == len(pending) {
		return fmt.Errorf("%w: all %d groups failed: %s", domain.ErrCollaborator, len(pending), strings.Join(failures, "; "))
	}
	message := fmt.Sprintf("generated %d drafts", len(pending)-len(failures))
	if len(failures) > 0 {
		message = fmt.Sprintf("%s (%d groups failed)", message, len(failures))
	}
	return r.jobs.Complete(ctx, job.ID, message)
}

func (r *Runner) generateDraftForGroup(ctx context.Context, state *domain.BatchState, group domain.Group) error {
	images := make([]domain.Image, 0, len(group.ImageIDs))
	for _, imgID := range group.ImageIDs {
		if img, ok := state.ImageByID(imgID); ok {
			images = append(images, img)
		}
	}

	content, err := r.composer.ComposeDraft(ctx, group, images)
	if err != nil {
		return err
	}

	itemType := group.SuggestedType
	if !domain.KnownItemType(itemType) {
		itemType = domain.ItemTypeMisc
	}
	sku, err := r.drafts.NextSKU(ctx, itemType)
	if err != nil {
		return fmt.Errorf("allocate sku: %w", err)
	}

	home, _ := ebay.MarketplaceByID("EBAY_US")
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	now := time.Now().UTC()
	draft := &domain.Draft{
		ID:          uuid.NewString(),
		SKU:         sku,
		GroupID:     group.ID,
		ItemType:    itemType,
		Title:       content.Title,
		Description: content.Description,
		Aspects:     content.Aspects,
		Condition:   content.Condition,
		CategoryID:  ebay.CategoryFor(itemType, home.ID),
		Price:       home.DefaultPrice,
		ImageURLs:   urls,
		Status:      domain.DraftStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.drafts.Create(ctx, draft); err != nil {
		return fmt.Errorf("persist draft: %w", err)
	}
	if err := r.grouping.SetGroupDraft(ctx, group.ID, draft.ID); err != nil {
		return fmt.Errorf("link draft: %w", err)
	}
	return nil
}
