package domain

import "time"

// DraftStatus enumerates the editing lifecycle of a draft listing.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusReady     DraftStatus = "READY"
	DraftStatusPublished DraftStatus = "PUBLISHED"
	DraftStatusError     DraftStatus = "ERROR"
)

// Draft is an editable, not-yet-published listing tied to a group. The
// publishing pipeline owns MarketplaceResults; the editing surface owns the
// content fields.
type Draft struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	GroupID     string            `json:"group_id"`
	ItemType    ItemType          `json:"item_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Aspects     map[string]string `json:"aspects"`
	Condition   string            `json:"condition"`
	CategoryID  string            `json:"category_id"`
	Price       float64           `json:"price"`
	ImageURLs   []string          `json:"image_urls"`
	Status      DraftStatus       `json:"status"`
	// MarketplaceResults records the terminal publish outcome per marketplace.
	MarketplaceResults map[string]PublishResult `json:"marketplace_results"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// PublishResult is the once-written outcome of publishing one draft to one
// marketplace. A populated ListingID short-circuits later publish requests for
// the same (SKU, marketplace) pair.
type PublishResult struct {
	MarketplaceID string `json:"marketplace_id"`
	Success       bool   `json:"success"`
	ListingID     string `json:"listing_id,omitempty"`
	OfferID       string `json:"offer_id,omitempty"`
	Retries       int    `json:"retries"`
	Note          string `json:"note,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Published reports whether the result represents a successful listing.
func (r PublishResult) Published() bool {
	return r.Success && r.ListingID != ""
}

// MarketplacePolicies holds the per-marketplace business policy identifiers
// required before an offer can be published there.
type MarketplacePolicies struct {
	MarketplaceID       string `json:"marketplace_id"`
	FulfillmentPolicyID string `json:"fulfillment_policy_id"`
	PaymentPolicyID     string `json:"payment_policy_id"`
	ReturnPolicyID      string `json:"return_policy_id"`
	LocationKey         string `json:"location_key"`
}

// Complete reports whether every identifier needed for publishing is present.
func (p MarketplacePolicies) Complete() bool {
	return p.FulfillmentPolicyID != "" && p.PaymentPolicyID != "" && p.ReturnPolicyID != "" && p.LocationKey != ""
}
