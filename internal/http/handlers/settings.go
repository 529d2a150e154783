package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
)

// GetMarketplacePolicies returns the stored policy set for a marketplace.
func (a *App) GetMarketplacePolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := a.Settings.MarketplacePolicies(r.Context(), chi.URLParam(r, "marketplaceID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, policies)
}

// UpsertMarketplacePolicies stores the business policy identifiers required to
// publish to a marketplace.
func (a *App) UpsertMarketplacePolicies(w http.ResponseWriter, r *http.Request) {
	marketplaceID := chi.URLParam(r, "marketplaceID")
	if _, ok := ebay.MarketplaceByID(marketplaceID); !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported marketplace")
		return
	}
	var policies domain.MarketplacePolicies
	if err := json.NewDecoder(r.Body).Decode(&policies); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	policies.MarketplaceID = marketplaceID
	if err := a.Settings.UpsertMarketplacePolicies(r.Context(), &policies); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, policies)
}
