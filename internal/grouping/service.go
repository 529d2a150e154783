package grouping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// Proposal is one suggested group coming out of the auto-grouping engine.
type Proposal struct {
	ImageIDs      []string
	SuggestedType domain.ItemType
	Confidence    float64
}

// Service serializes grouping mutations per batch and persists their change
// sets atomically. The partition invariant is checked-then-written, so two
// concurrent mutations on the same batch must never interleave; the keyed
// mutex enforces that on this single node.
type Service struct {
	repo   domain.GroupingRepository
	logger infra.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService builds a grouping service over the given repository.
func NewService(repo domain.GroupingRepository, logger infra.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) batchLock(batchID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[batchID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[batchID] = lock
	}
	return lock
}

// CreateBatch registers a new batch of uploads.
func (s *Service) CreateBatch(ctx context.Context, name string) (*domain.Batch, error) {
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return batch, nil
}

// AddImages registers uploaded photo URLs against a batch. New images start
// unassigned.
func (s *Service) AddImages(ctx context.Context, batchID string, urls []string) ([]domain.Image, error) {
	if _, err := s.repo.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	images := make([]domain.Image, 0, len(urls))
	for _, url := range urls {
		images = append(images, domain.Image{
			ID:      uuid.NewString(),
			BatchID: batchID,
			URL:     url,
		})
	}
	if err := s.repo.AddImages(ctx, images); err != nil {
		return nil, fmt.Errorf("add images: %w", err)
	}
	return images, nil
}

// State returns the batch's current grouping snapshot.
func (s *Service) State(ctx context.Context, batchID string) (*domain.BatchState, error) {
	return s.repo.BatchState(ctx, batchID)
}

// BatchIDForGroup resolves the batch a group belongs to.
func (s *Service) BatchIDForGroup(ctx context.Context, groupID string) (string, error) {
	return s.repo.BatchIDForGroup(ctx, groupID)
}

// Assign moves images into a group.
func (s *Service) Assign(ctx context.Context, imageIDs []string, groupID string) error {
	_, err := s.mutateByGroup(ctx, groupID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		return PlanAssign(state, imageIDs, groupID)
	})
	return err
}

// CreateGroup forms a group manually from unassigned images.
func (s *Service) CreateGroup(ctx context.Context, batchID string, imageIDs []string, itemType domain.ItemType) (*domain.Group, error) {
	var created domain.Group
	_, err := s.mutate(ctx, batchID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		cs, group, err := PlanCreate(state, imageIDs, itemType)
		created = group
		return cs, err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Split moves a subset of a group's images into a new group and returns it.
func (s *Service) Split(ctx context.Context, groupID string, moveIDs []string) (*domain.Group, error) {
	var next domain.Group
	_, err := s.mutateByGroup(ctx, groupID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		cs, created, err := PlanSplit(state, groupID, moveIDs)
		next = created
		return cs, err
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// Merge combines groups into the highest-confidence one and returns it.
func (s *Service) Merge(ctx context.Context, groupIDs []string) (*domain.Group, error) {
	if len(groupIDs) < 2 {
		return nil, fmt.Errorf("%w: merge requires at least two groups", domain.ErrInvariantViolation)
	}
	batchID, err := s.repo.BatchIDForGroup(ctx, groupIDs[0])
	if err != nil {
		return nil, err
	}
	for _, id := range groupIDs[1:] {
		other, err := s.repo.BatchIDForGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		if other != batchID {
			return nil, fmt.Errorf("%w: groups span batches", domain.ErrInvariantViolation)
		}
	}

	var retained domain.Group
	_, err = s.mutate(ctx, batchID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		cs, kept, err := PlanMerge(state, groupIDs)
		retained = kept
		return cs, err
	})
	if err != nil {
		return nil, err
	}
	return &retained, nil
}

// Delete removes a group; its images become unassigned.
func (s *Service) Delete(ctx context.Context, groupID string) error {
	_, err := s.mutateByGroup(ctx, groupID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		return PlanDelete(state, groupID)
	})
	return err
}

// ChangeType updates a group's suggested item type.
func (s *Service) ChangeType(ctx context.Context, groupID string, newType domain.ItemType) error {
	_, err := s.mutateByGroup(ctx, groupID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		return PlanChangeType(state, groupID, newType)
	})
	return err
}

// ApplyProposals persists an auto-grouping result as groups in one atomic
// step. Images that were assigned while the classification ran are skipped so
// the partition invariant survives; proposals left with no images are dropped.
func (s *Service) ApplyProposals(ctx context.Context, batchID string, proposals []Proposal) ([]domain.Group, error) {
	var created []domain.Group
	_, err := s.mutate(ctx, batchID, func(state *domain.BatchState) (domain.ChangeSet, error) {
		created = created[:0]
		var cs domain.ChangeSet
		cs.AssignImages = make(map[string]string)
		assigned := make(map[string]bool)
		for _, img := range state.Images {
			if img.Assigned() {
				assigned[img.ID] = true
			}
		}
		for _, p := range proposals {
			itemType := p.SuggestedType
			if !domain.KnownItemType(itemType) {
				itemType = domain.ItemTypeMisc
			}
			var members []string
			for _, imgID := range p.ImageIDs {
				if _, ok := state.ImageByID(imgID); !ok {
					continue
				}
				if assigned[imgID] {
					continue
				}
				assigned[imgID] = true
				members = append(members, imgID)
			}
			if len(members) == 0 {
				continue
			}
			group := domain.Group{
				ID:            uuid.NewString(),
				BatchID:       batchID,
				ImageIDs:      members,
				SuggestedType: itemType,
				Confidence:    p.Confidence,
				CreatedAt:     time.Now().UTC(),
			}
			for _, imgID := range members {
				cs.AssignImages[imgID] = group.ID
			}
			cs.UpsertGroups = append(cs.UpsertGroups, group)
			created = append(created, group)
		}
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetGroupDraft links a generated draft to a group.
func (s *Service) SetGroupDraft(ctx context.Context, groupID, draftID string) error {
	return s.repo.SetGroupDraft(ctx, groupID, draftID)
}

type planFunc func(state *domain.BatchState) (domain.ChangeSet, error)

func (s *Service) mutateByGroup(ctx context.Context, groupID string, plan planFunc) (*domain.BatchState, error) {
	batchID, err := s.repo.BatchIDForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, batchID, plan)
}

// mutate loads a snapshot, plans the change under the batch lock, and applies
// it. The lock spans load-plan-apply so the snapshot cannot go stale.
func (s *Service) mutate(ctx context.Context, batchID string, plan planFunc) (*domain.BatchState, error) {
	lock := s.batchLock(batchID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.repo.BatchState(ctx, batchID)
	if err != nil {
		return nil, err
	}
	cs, err := plan(state)
	if err != nil {
		return nil, err
	}
	if cs.Empty() {
		return state, nil
	}
	if err := s.repo.Apply(ctx, batchID, cs); err != nil {
		return nil, fmt.Errorf("apply grouping change: %w", err)
	}
	s.logger.Debug().
		Str("batch_id", batchID).
		Int("upserts", len(cs.UpsertGroups)).
		Int("deletes", len(cs.DeleteGroupIDs)).
		Int("assigns", len(cs.AssignImages)).
		Msg("grouping: change applied")
	return state, nil
}
