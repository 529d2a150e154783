// Package grouping implements the partition model over a batch's images:
// every image belongs to at most one group, persisted groups are never empty,
// and all mutations apply atomically.
package grouping

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

// PlanAssign moves unassigned images into an existing group. Images already
// assigned to a different group are rejected; the caller must detach first.
func PlanAssign(state *domain.BatchState, imageIDs []string, groupID string) (domain.ChangeSet, error) {
	group, ok := state.GroupByID(groupID)
	if !ok {
		return domain.ChangeSet{}, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	if len(imageIDs) == 0 {
		return domain.ChangeSet{}, fmt.Errorf("%w: no images to assign", domain.ErrInvariantViolation)
	}

	members := idSet(group.ImageIDs)
	assigns := make(map[string]string)
	updated := append([]string(nil), group.ImageIDs...)
	for _, id := range imageIDs {
		img, ok := state.ImageByID(id)
		if !ok {
			return domain.ChangeSet{}, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
		}
		if img.GroupID != "" && img.GroupID != groupID {
			return domain.ChangeSet{}, fmt.Errorf("image %s: %w", id, domain.ErrAlreadyAssigned)
		}
		if members[id] {
			continue
		}
		members[id] = true
		assigns[id] = groupID
		updated = append(updated, id)
	}
	if len(assigns) == 0 {
		return domain.ChangeSet{}, nil
	}

	group.ImageIDs = updated
	return domain.ChangeSet{
		UpsertGroups: []domain.Group{group},
		AssignImages: assigns,
	}, nil
}

// PlanCreate forms a new group from unassigned images.
func PlanCreate(state *domain.BatchState, imageIDs []string, itemType domain.ItemType) (domain.ChangeSet, domain.Group, error) {
	if len(imageIDs) == 0 {
		return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: group must contain at least one image", domain.ErrInvariantViolation)
	}
	if !domain.KnownItemType(itemType) {
		return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: unknown item type %q", domain.ErrInvariantViolation, itemType)
	}
	seen := make(map[string]bool, len(imageIDs))
	for _, id := range imageIDs {
		img, ok := state.ImageByID(id)
		if !ok {
			return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
		}
		if img.Assigned() {
			return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("image %s: %w", id, domain.ErrAlreadyAssigned)
		}
		if seen[id] {
			return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: duplicate image %s", domain.ErrInvariantViolation, id)
		}
		seen[id] = true
	}

	group := domain.Group{
		ID:            uuid.NewString(),
		BatchID:       state.Batch.ID,
		ImageIDs:      append([]string(nil), imageIDs...),
		SuggestedType: itemType,
		CreatedAt:     time.Now().UTC(),
	}
	assigns := make(map[string]string, len(imageIDs))
	for _, id := range imageIDs {
		assigns[id] = group.ID
	}
	return domain.ChangeSet{UpsertGroups: []domain.Group{group}, AssignImages: assigns}, group, nil
}

// PlanSplit moves a strict, non-empty subset of a group's images into a new
// group that inherits the source's suggested type and confidence. Moving the
// full set would leave the source empty and is rejected.
func PlanSplit(state *domain.BatchState, groupID string, moveIDs []string) (domain.ChangeSet, domain.Group, error) {
	source, ok := state.GroupByID(groupID)
	if !ok {
		return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	if len(moveIDs) == 0 {
		return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: no images to split off", domain.ErrInvariantViolation)
	}

	members := idSet(source.ImageIDs)
	moving := make(map[string]bool, len(moveIDs))
	for _, id := range moveIDs {
		if !members[id] {
			return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: image %s is not in group %s", domain.ErrInvariantViolation, id, groupID)
		}
		moving[id] = true
	}
	if len(moving) >= len(source.ImageIDs) {
		return domain.ChangeSet{}, domain.Group{}, domain.ErrEmptyGroup
	}

	// Preserve the source ordering in both halves.
	var remaining, moved []string
	for _, id := range source.ImageIDs {
		if moving[id] {
			moved = append(moved, id)
		} else {
			remaining = append(remaining, id)
		}
	}

	next := domain.Group{
		ID:            uuid.NewString(),
		BatchID:       source.BatchID,
		ImageIDs:      moved,
		SuggestedType: source.SuggestedType,
		Confidence:    source.Confidence,
		CreatedAt:     time.Now().UTC(),
	}
	source.ImageIDs = remaining

	assigns := make(map[string]string, len(moved))
	for _, id := range moved {
		assigns[id] = next.ID
	}
	return domain.ChangeSet{
		UpsertGroups: []domain.Group{source, next},
		AssignImages: assigns,
	}, next, nil
}

// PlanMerge combines two or more groups into the one with the highest
// confidence (ties break toward the lowest id). The other groups are deleted;
// any draft link they carried is discarded with them.
func PlanMerge(state *domain.BatchState, groupIDs []string) (domain.ChangeSet, domain.Group, error) {
	unique := make([]string, 0, len(groupIDs))
	seen := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) < 2 {
		return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("%w: merge requires at least two groups", domain.ErrInvariantViolation)
	}

	groups := make([]domain.Group, 0, len(unique))
	for _, id := range unique {
		g, ok := state.GroupByID(id)
		if !ok {
			return domain.ChangeSet{}, domain.Group{}, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		groups = append(groups, g)
	}

	retained := groups[0]
	for _, g := range groups[1:] {
		if g.Confidence > retained.Confidence ||
			(g.Confidence == retained.Confidence && g.ID < retained.ID) {
			retained = g
		}
	}

	merged := append([]string(nil), retained.ImageIDs...)
	assigns := make(map[string]string)
	var deletes []string
	for _, g := range groups {
		if g.ID == retained.ID {
			continue
		}
		for _, imgID := range g.ImageIDs {
			merged = append(merged, imgID)
			assigns[imgID] = retained.ID
		}
		deletes = append(deletes, g.ID)
	}
	sort.Strings(deletes)

	retained.ImageIDs = merged
	return domain.ChangeSet{
		UpsertGroups:   []domain.Group{retained},
		DeleteGroupIDs: deletes,
		AssignImages:   assigns,
	}, retained, nil
}

// PlanDelete removes a group; its images become unassigned. An associated
// draft is left in place.
func PlanDelete(state *domain.BatchState, groupID string) (domain.ChangeSet, error) {
	group, ok := state.GroupByID(groupID)
	if !ok {
		return domain.ChangeSet{}, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	assigns := make(map[string]string, len(group.ImageIDs))
	for _, id := range group.ImageIDs {
		assigns[id] = ""
	}
	return domain.ChangeSet{DeleteGroupIDs: []string{groupID}, AssignImages: assigns}, nil
}

// PlanChangeType updates a group's suggested type without touching the
// partition.
func PlanChangeType(state *domain.BatchState, groupID string, newType domain.ItemType) (domain.ChangeSet, error) {
	group, ok := state.GroupByID(groupID)
	if !ok {
		return domain.ChangeSet{}, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	if !domain.KnownItemType(newType) {
		return domain.ChangeSet{}, fmt.Errorf("%w: unknown item type %q", domain.ErrInvariantViolation, newType)
	}
	group.SuggestedType = newType
	return domain.ChangeSet{UpsertGroups: []domain.Group{group}}, nil
}

// Validate checks the partition invariant over a batch snapshot: group image
// sets are pairwise disjoint, non-empty, and agree with each image's group id.
func Validate(state *domain.BatchState) error {
	owner := make(map[string]string)
	for _, g := range state.Groups {
		if len(g.ImageIDs) == 0 {
			return fmt.Errorf("%w: group %s is empty", domain.ErrInvariantViolation, g.ID)
		}
		for _, imgID := range g.ImageIDs {
			if prev, ok := owner[imgID]; ok {
				return fmt.Errorf("%w: image %s in groups %s and %s", domain.ErrInvariantViolation, imgID, prev, g.ID)
			}
			owner[imgID] = g.ID
		}
	}
	for _, img := range state.Images {
		if img.GroupID != owner[img.ID] {
			return fmt.Errorf("%w: image %s group id %q does not match membership %q",
				domain.ErrInvariantViolation, img.ID, img.GroupID, owner[img.ID])
		}
	}
	return nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
