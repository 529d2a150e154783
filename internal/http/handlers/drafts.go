package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

// ListDrafts returns drafts, optionally filtered by status and item type.
func (a *App) ListDrafts(w http.ResponseWriter, r *http.Request) {
	status := domain.DraftStatus(r.URL.Query().Get("status"))
	itemType := domain.ItemType(r.URL.Query().Get("item_type"))
	drafts, err := a.Drafts.List(r.Context(), status, itemType)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if drafts == nil {
		drafts = []domain.Draft{}
	}
	a.json(w, http.StatusOK, map[string]any{"drafts": drafts})
}

// GetDraft returns one draft.
func (a *App) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := a.Drafts.GetByID(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, draft)
}

type updateDraftRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Aspects     *map[string]string `json:"aspects"`
	Condition   *string            `json:"condition"`
	CategoryID  *string            `json:"category_id"`
	Price       *float64           `json:"price"`
	Status      *string            `json:"status"`
}

// UpdateDraft applies a partial edit to a draft's content fields.
func (a *App) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	draft, err := a.Drafts.GetByID(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if req.Title != nil {
		if len(*req.Title) > 80 {
			a.error(w, http.StatusBadRequest, "bad_request", "title must be 80 characters or fewer")
			return
		}
		draft.Title = *req.Title
	}
	if req.Description != nil {
		draft.Description = *req.Description
	}
	if req.Aspects != nil {
		draft.Aspects = *req.Aspects
	}
	if req.Condition != nil {
		draft.Condition = *req.Condition
	}
	if req.CategoryID != nil {
		draft.CategoryID = *req.CategoryID
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "price must be positive")
			return
		}
		draft.Price = *req.Price
	}
	if req.Status != nil {
		switch domain.DraftStatus(*req.Status) {
		case domain.DraftStatusDraft, domain.DraftStatusReady:
			draft.Status = domain.DraftStatus(*req.Status)
		default:
			a.error(w, http.StatusBadRequest, "bad_request", "status must be DRAFT or READY")
			return
		}
	}
	if err := a.Drafts.Update(r.Context(), draft); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, draft)
}

// DeleteDraft removes a draft. The owning group keeps its photos and can
// regenerate content afterwards.
func (a *App) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := a.Drafts.Delete(r.Context(), chi.URLParam(r, "draftID")); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type publishRequest struct {
	MarketplaceIDs []string `json:"marketplace_ids"`
}

// PublishDraft runs the publishing workflow for a draft against the requested
// marketplaces and returns the per-marketplace outcomes.
func (a *App) PublishDraft(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	outcome, err := a.Publisher.Publish(r.Context(), chi.URLParam(r, "draftID"), req.MarketplaceIDs)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, outcome)
}
