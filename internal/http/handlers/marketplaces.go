package handlers

import (
	"net/http"

	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/middleware"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
)

type marketplaceView struct {
	ebay.Marketplace
	// DisplayPrice renders the default price with the marketplace's own
	// currency symbol and locale.
	DisplayPrice   string `json:"display_price"`
	SuggestedPrice string `json:"suggested_price"`
}

// ListMarketplaces returns the supported marketplaces plus a GeoIP-based
// suggestion for the caller.
func (a *App) ListMarketplaces(w http.ResponseWriter, r *http.Request) {
	all := ebay.AllMarketplaces()
	views := make([]marketplaceView, 0, len(all))
	for _, mp := range all {
		views = append(views, marketplaceView{
			Marketplace:    mp,
			DisplayPrice:   pricing.FormatPrice(mp.DefaultPrice, mp.Currency, mp.Language),
			SuggestedPrice: pricing.PsychologicalPrice(mp.DefaultPrice),
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"marketplaces": views,
		"suggested":    middleware.MarketplaceHintFrom(r.Context()),
	})
}

// GetRates returns the cached EUR-based exchange rates plus the seller's
// shipping charges converted to each marketplace currency.
func (a *App) GetRates(w http.ResponseWriter, r *http.Request) {
	rates := a.Rates.Rates(r.Context())

	shipping := make(map[string]pricing.ShippingRates)
	for _, mp := range ebay.AllMarketplaces() {
		if _, ok := shipping[mp.Currency]; ok {
			continue
		}
		shipping[mp.Currency] = a.Rates.ShippingRatesFor(r.Context(), mp.Currency)
	}

	a.json(w, http.StatusOK, map[string]any{
		"base":       "EUR",
		"rates":      rates,
		"shipping":   shipping,
		"fetched_at": a.Rates.FetchedAt(),
	})
}
