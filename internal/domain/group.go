package domain

import "time"

// ItemType enumerates supported product categories.
type ItemType string

const (
	ItemTypeWheels  ItemType = "WHL"
	ItemTypeTrucks  ItemType = "TRK"
	ItemTypeDeck    ItemType = "DCK"
	ItemTypeApparel ItemType = "APP"
	ItemTypeMisc    ItemType = "MISC"
)

// KnownItemType reports whether t is one of the supported categories.
func KnownItemType(t ItemType) bool {
	switch t {
	case ItemTypeWheels, ItemTypeTrucks, ItemTypeDeck, ItemTypeApparel, ItemTypeMisc:
		return true
	}
	return false
}

// Group is a proposed or confirmed partition of a batch's images representing
// one future listing. ImageIDs is an ordered set; a persisted group is never
// empty, and within a batch the groups' image sets are pairwise disjoint.
type Group struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	ImageIDs      []string  `json:"image_ids"`
	SuggestedType ItemType  `json:"suggested_type"`
	Confidence    float64   `json:"confidence"`
	DraftID       string    `json:"draft_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// BatchState is a consistent snapshot of one batch's grouping state.
type BatchState struct {
	Batch  Batch   `json:"batch"`
	Images []Image `json:"images"`
	Groups []Group `json:"groups"`
}

// ImageByID returns the image with the given id, if present.
func (s *BatchState) ImageByID(id string) (Image, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return Image{}, false
}

// GroupByID returns the group with the given id, if present.
func (s *BatchState) GroupByID(id string) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// ChangeSet is the persistable outcome of one grouping mutation. Either the
// whole set applies atomically or none of it does.
type ChangeSet struct {
	// UpsertGroups are groups to insert or fully replace.
	UpsertGroups []Group
	// DeleteGroupIDs are groups to remove.
	DeleteGroupIDs []string
	// AssignImages maps image ids to their new group id; an empty group id
	// detaches the image.
	AssignImages map[string]string
}

// Empty reports whether the change set carries no work.
func (c ChangeSet) Empty() bool {
	return len(c.UpsertGroups) == 0 && len(c.DeleteGroupIDs) == 0 && len(c.AssignImages) == 0
}
