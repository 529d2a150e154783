package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/grouping"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
	"github.com/commtamo10-tech/skatebaypublisher/internal/jobs"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
	"github.com/commtamo10-tech/skatebaypublisher/internal/publish"
	"github.com/commtamo10-tech/skatebaypublisher/internal/storage"
)

// App bundles the services the HTTP surface exposes.
type App struct {
	Logger    infra.Logger
	Grouping  *grouping.Service
	Jobs      domain.JobRepository
	Runner    *jobs.Runner
	Drafts    domain.DraftRepository
	Settings  domain.SettingsRepository
	Publisher *publish.Workflow
	Photos    *storage.PhotoStore
	Rates     *pricing.Store
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// domainError translates service errors to HTTP statuses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	var validation *publish.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrAlreadyAssigned),
		errors.Is(err, domain.ErrEmptyGroup),
		errors.Is(err, domain.ErrInvariantViolation):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		a.error(w, http.StatusBadRequest, "not_configured", err.Error())
	case errors.As(err, &validation):
		a.error(w, http.StatusBadRequest, "invalid_draft", validation.Error())
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
