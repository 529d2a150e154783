package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

// InventoryItem is the product payload stored against a SKU.
type InventoryItem struct {
	SKU         string
	Title       string
	Description string
	Aspects     map[string]string
	ImageURLs   []string
	Condition   string
	Quantity    int
}

// Offer binds a SKU to one marketplace with price and policy configuration.
type Offer struct {
	SKU        string
	CategoryID string
	PriceValue string
	Currency   string
	Quantity   int
	Policies   domain.MarketplacePolicies
}

type offerPayload struct {
	SKU               string         `json:"sku"`
	MarketplaceID     string         `json:"marketplaceId"`
	Format            string         `json:"format"`
	PricingSummary    pricingSummary `json:"pricingSummary"`
	AvailableQuantity int            `json:"availableQuantity"`
	CategoryID        string         `json:"categoryId"`
	ListingPolicies   listingPolicy  `json:"listingPolicies"`
	MerchantLocation  string         `json:"merchantLocationKey,omitempty"`
}

type pricingSummary struct {
	Price priceValue `json:"price"`
}

type priceValue struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type listingPolicy struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
	ReturnPolicyID      string `json:"returnPolicyId"`
	PaymentPolicyID     string `json:"paymentPolicyId"`
}

type inventoryPayload struct {
	Product      inventoryProduct `json:"product"`
	Condition    string           `json:"condition"`
	Availability itemAvailability `json:"availability"`
}

type inventoryProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Aspects     map[string][]string `json:"aspects"`
	ImageURLs   []string            `json:"imageUrls"`
}

type itemAvailability struct {
	ShipToLocationAvailability shipToLocation `json:"shipToLocationAvailability"`
}

type shipToLocation struct {
	Quantity int `json:"quantity"`
}

// marketplaceHeaders builds the per-call headers; Content-Language must match
// the marketplace or non-US sites silently keep their previous listing text.
func marketplaceHeaders(mp Marketplace) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Content-Language", mp.Language)
	h.Set("Accept-Language", mp.Language)
	return h
}

// CreateOrReplaceInventoryItem upserts the inventory item for a SKU.
func (c *Client) CreateOrReplaceInventoryItem(ctx context.Context, mp Marketplace, item InventoryItem) (int, error) {
	aspects := make(map[string][]string, len(item.Aspects))
	for k, v := range item.Aspects {
		aspects[k] = []string{v}
	}
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	payload := inventoryPayload{
		Product: inventoryProduct{
			Title:       item.Title,
			Description: item.Description,
			Aspects:     aspects,
			ImageURLs:   item.ImageURLs,
		},
		Condition:    item.Condition,
		Availability: itemAvailability{ShipToLocationAvailability: shipToLocation{Quantity: quantity}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("ebay: encode inventory item: %w", err)
	}
	path := "/sell/inventory/v1/inventory_item/" + url.PathEscape(item.SKU)
	resp, retries, err := c.RequestWithRetry(ctx, http.MethodPut, path, marketplaceHeaders(mp), body)
	if err != nil {
		return retries, err
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return retries, &APIError{Status: resp.Status, Body: string(resp.Body)}
	}
	return retries, nil
}

// CreateOffer creates an offer binding the SKU to one marketplace and returns
// the offer id.
func (c *Client) CreateOffer(ctx context.Context, mp Marketplace, offer Offer) (string, int, error) {
	payload := offerPayload{
		SKU:               offer.SKU,
		MarketplaceID:     mp.ID,
		Format:            "FIXED_PRICE",
		PricingSummary:    pricingSummary{Price: priceValue{Value: offer.PriceValue, Currency: offer.Currency}},
		AvailableQuantity: offer.Quantity,
		CategoryID:        offer.CategoryID,
		ListingPolicies: listingPolicy{
			FulfillmentPolicyID: offer.Policies.FulfillmentPolicyID,
			ReturnPolicyID:      offer.Policies.ReturnPolicyID,
			PaymentPolicyID:     offer.Policies.PaymentPolicyID,
		},
		MerchantLocation: offer.Policies.LocationKey,
	}
	if payload.AvailableQuantity <= 0 {
		payload.AvailableQuantity = 1
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("ebay: encode offer: %w", err)
	}
	resp, retries, err := c.RequestWithRetry(ctx, http.MethodPost, "/sell/inventory/v1/offer", marketplaceHeaders(mp), body)
	if err != nil {
		return "", retries, err
	}
	if resp.Status != http.StatusCreated {
		return "", retries, &APIError{Status: resp.Status, Body: string(resp.Body)}
	}
	var decoded struct {
		OfferID string `json:"offerId"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", retries, fmt.Errorf("ebay: decode offer response: %w", err)
	}
	if decoded.OfferID == "" {
		return "", retries, fmt.Errorf("ebay: offer response missing offerId")
	}
	return decoded.OfferID, retries, nil
}

// PublishOffer publishes a previously created offer and returns the listing id.
func (c *Client) PublishOffer(ctx context.Context, mp Marketplace, offerID string) (string, int, error) {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/publish"
	resp, retries, err := c.RequestWithRetry(ctx, http.MethodPost, path, marketplaceHeaders(mp), nil)
	if err != nil {
		return "", retries, err
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return "", retries, &APIError{Status: resp.Status, Body: string(resp.Body)}
	}
	var decoded struct {
		ListingID string `json:"listingId"`
	}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return "", retries, fmt.Errorf("ebay: decode publish response: %w", err)
		}
	}
	return decoded.ListingID, retries, nil
}
