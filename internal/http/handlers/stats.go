package handlers

import (
	"net/http"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

// Stats summarizes the draft pipeline for the dashboard.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Drafts.CountByStatus(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	a.json(w, http.StatusOK, map[string]any{
		"total":     total,
		"draft":     counts[domain.DraftStatusDraft],
		"ready":     counts[domain.DraftStatusReady],
		"published": counts[domain.DraftStatusPublished],
		"error":     counts[domain.DraftStatusError],
	})
}
