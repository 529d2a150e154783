package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetJob returns the polled state of an asynchronous job.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// LatestBatchJob returns the most recent job enqueued for a batch, so clients
// can resume polling after a reload without holding on to the job id.
func (a *App) LatestBatchJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.LatestForTarget(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}
