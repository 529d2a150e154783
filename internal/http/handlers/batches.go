package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/storage"
)

const maxUploadBytes = 32 << 20

type createBatchRequest struct {
	Name string `json:"name"`
}

// CreateBatch registers a new upload batch.
func (a *App) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	batch, err := a.Grouping.CreateBatch(r.Context(), req.Name)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, batch)
}

// GetBatchState returns the full grouping snapshot for a batch.
func (a *App) GetBatchState(w http.ResponseWriter, r *http.Request) {
	state, err := a.Grouping.State(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, state)
}

// UploadPhotos accepts multipart photo uploads for a batch and registers them
// as unassigned images.
func (a *App) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one photo is required")
		return
	}

	urls := make([]string, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
			return
		}
		key, err := a.Photos.SavePhoto(r.Context(), batchID, header.Filename, data)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedFormat) {
				a.error(w, http.StatusBadRequest, "unsupported_format", err.Error())
				return
			}
			a.domainError(w, err)
			return
		}
		urls = append(urls, a.Photos.URL(key))
	}

	images, err := a.Grouping.AddImages(r.Context(), batchID, urls)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"images": images})
}

// AutoGroup enqueues an auto-grouping job for the batch. Clients poll the
// returned job id.
func (a *App) AutoGroup(w http.ResponseWriter, r *http.Request) {
	a.enqueueBatchJob(w, r, domain.JobTypeAutoGroup)
}

// GenerateDrafts enqueues draft generation for the batch's groups.
func (a *App) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	a.enqueueBatchJob(w, r, domain.JobTypeGenerateDrafts)
}

func (a *App) enqueueBatchJob(w http.ResponseWriter, r *http.Request, jobType domain.JobType) {
	batchID := chi.URLParam(r, "batchID")
	if _, err := a.Grouping.State(r.Context(), batchID); err != nil {
		a.domainError(w, err)
		return
	}
	job, err := a.Runner.Enqueue(r.Context(), jobType, batchID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
