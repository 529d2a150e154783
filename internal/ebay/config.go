package ebay

import (
	"sort"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

// Marketplace describes one eBay storefront the same draft can be published to.
type Marketplace struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	SiteID                  string  `json:"site_id"`
	Currency                string  `json:"currency"`
	Language                string  `json:"language"`
	CountryCode             string  `json:"country_code"`
	DefaultPrice            float64 `json:"default_price"`
	DefaultShippingCost     float64 `json:"default_shipping_cost"`
	FallbackShippingService string  `json:"-"`
	DefaultLocationKey      string  `json:"-"`
}

var marketplaces = map[string]Marketplace{
	"EBAY_US": {
		ID: "EBAY_US", Name: "United States", SiteID: "0",
		Currency: "USD", Language: "en-US", CountryCode: "US",
		DefaultPrice: 25.00, DefaultShippingCost: 25.00,
		FallbackShippingService: "USPSPriority",
		DefaultLocationKey:      "location_us",
	},
	"EBAY_DE": {
		ID: "EBAY_DE", Name: "Germany", SiteID: "77",
		Currency: "EUR", Language: "de-DE", CountryCode: "DE",
		DefaultPrice: 12.00, DefaultShippingCost: 12.00,
		FallbackShippingService: "DE_DHLPaket",
		DefaultLocationKey:      "location_de",
	},
	"EBAY_ES": {
		ID: "EBAY_ES", Name: "Spain", SiteID: "186",
		Currency: "EUR", Language: "es-ES", CountryCode: "ES",
		DefaultPrice: 12.00, DefaultShippingCost: 12.00,
		FallbackShippingService: "ES_CorreosSpainInternationalEconomyMail",
		DefaultLocationKey:      "location_es",
	},
	"EBAY_AU": {
		ID: "EBAY_AU", Name: "Australia", SiteID: "15",
		Currency: "AUD", Language: "en-AU", CountryCode: "AU",
		DefaultPrice: 100.00, DefaultShippingCost: 100.00,
		FallbackShippingService: "AU_StandardDelivery",
		DefaultLocationKey:      "location_au",
	},
}

// categoryByItemType maps item types to eBay category ids per marketplace.
var categoryByItemType = map[domain.ItemType]map[string]string{
	domain.ItemTypeWheels:  {"EBAY_US": "36632", "EBAY_DE": "36632", "EBAY_ES": "36632", "EBAY_AU": "36632"},
	domain.ItemTypeTrucks:  {"EBAY_US": "36631", "EBAY_DE": "36631", "EBAY_ES": "36631", "EBAY_AU": "36631"},
	domain.ItemTypeDeck:    {"EBAY_US": "16263", "EBAY_DE": "16263", "EBAY_ES": "16263", "EBAY_AU": "16263"},
	domain.ItemTypeApparel: {"EBAY_US": "36642", "EBAY_DE": "36642", "EBAY_ES": "36642", "EBAY_AU": "36642"},
	domain.ItemTypeMisc:    {"EBAY_US": "16265", "EBAY_DE": "16265", "EBAY_ES": "16265", "EBAY_AU": "16265"},
}

const fallbackCategoryID = "16265"

// MarketplaceByID looks up a supported marketplace.
func MarketplaceByID(id string) (Marketplace, bool) {
	mp, ok := marketplaces[id]
	return mp, ok
}

// AllMarketplaces returns the supported marketplaces ordered by id.
func AllMarketplaces() []Marketplace {
	out := make([]Marketplace, 0, len(marketplaces))
	for _, mp := range marketplaces {
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CategoryFor resolves the eBay category id for an item type on a marketplace.
func CategoryFor(itemType domain.ItemType, marketplaceID string) string {
	if byMarketplace, ok := categoryByItemType[itemType]; ok {
		if id, ok := byMarketplace[marketplaceID]; ok {
			return id
		}
	}
	return fallbackCategoryID
}

// MarketplaceForCountry suggests a default marketplace for an operator's ISO
// country code.
func MarketplaceForCountry(iso string) string {
	for _, mp := range marketplaces {
		if mp.CountryCode == iso {
			return mp.ID
		}
	}
	return "EBAY_US"
}
