package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/pkg/zip"
)

type createGroupRequest struct {
	ImageIDs []string `json:"image_ids"`
	ItemType string   `json:"item_type"`
}

// CreateGroup forms a group manually from unassigned images in a batch.
func (a *App) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	group, err := a.Grouping.CreateGroup(r.Context(), chi.URLParam(r, "batchID"), req.ImageIDs, domain.ItemType(req.ItemType))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, group)
}

type assignRequest struct {
	ImageIDs []string `json:"image_ids"`
}

// AssignImages moves unassigned images into an existing group.
func (a *App) AssignImages(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.ImageIDs) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image_ids required")
		return
	}
	if err := a.Grouping.Assign(r.Context(), req.ImageIDs, chi.URLParam(r, "groupID")); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type splitRequest struct {
	ImageIDs []string `json:"image_ids"`
}

// SplitGroup moves a subset of a group's images into a new group.
func (a *App) SplitGroup(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	group, err := a.Grouping.Split(r.Context(), chi.URLParam(r, "groupID"), req.ImageIDs)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, group)
}

type mergeRequest struct {
	GroupIDs []string `json:"group_ids"`
}

// MergeGroups combines two or more groups into the highest-confidence one.
func (a *App) MergeGroups(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	group, err := a.Grouping.Merge(r.Context(), req.GroupIDs)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, group)
}

// DeleteGroup removes a group; its images become unassigned again.
func (a *App) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.Grouping.Delete(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeTypeRequest struct {
	ItemType string `json:"item_type"`
}

// ChangeGroupType updates a group's suggested item type.
func (a *App) ChangeGroupType(w http.ResponseWriter, r *http.Request) {
	var req changeTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !domain.KnownItemType(domain.ItemType(req.ItemType)) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown item_type")
		return
	}
	if err := a.Grouping.ChangeType(r.Context(), chi.URLParam(r, "groupID"), domain.ItemType(req.ItemType)); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DownloadGroupPhotos streams a zip archive of the group's photos.
func (a *App) DownloadGroupPhotos(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	batchID, err := a.Grouping.BatchIDForGroup(r.Context(), groupID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	state, err := a.Grouping.State(r.Context(), batchID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	group, ok := state.GroupByID(groupID)
	if !ok {
		a.domainError(w, domain.ErrNotFound)
		return
	}

	photos := make([]zip.Photo, 0, len(group.ImageIDs))
	for i, imageID := range group.ImageIDs {
		img, ok := state.ImageByID(imageID)
		if !ok {
			continue
		}
		key, ok := a.Photos.KeyFromURL(img.URL)
		if !ok {
			continue
		}
		data, err := a.Photos.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("image_id", imageID).Msg("zip: photo unreadable")
			continue
		}
		photos = append(photos, zip.Photo{
			Filename: fmt.Sprintf("%02d%s", i+1, path.Ext(key)),
			Data:     data,
		})
	}
	if len(photos) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no local photos for group")
		return
	}
	archive, err := zip.ArchivePhotos(photos)
	if err != nil {
		a.domainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "group_"+groupID+".zip"))
	_, _ = w.Write(archive)
}
