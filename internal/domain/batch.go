package domain

import "time"

// Batch is a user-initiated set of uploaded photographs that will be grouped
// into listings. Batches are immutable after creation except for cascading
// deletes of their images and groups.
type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Image is a single uploaded photograph. GroupID is empty until the image is
// assigned to a group; when set it must reference a group in the same batch.
type Image struct {
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`
	URL     string `json:"url"`
	GroupID string `json:"group_id,omitempty"`
	// Position orders images inside their group.
	Position int `json:"position"`
}

// Assigned reports whether the image belongs to a group.
func (i Image) Assigned() bool {
	return i.GroupID != ""
}
