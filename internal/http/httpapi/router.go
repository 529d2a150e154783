package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/commtamo10-tech/skatebaypublisher/internal/http/handlers"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra/geoip"
	"github.com/commtamo10-tech/skatebaypublisher/internal/middleware"
)

// NewRouter wires the HTTP surface.
func NewRouter(app *handlers.App, resolver geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.MarketplaceHint(resolver),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/batches", func(r chi.Router) {
		r.Post("/", app.CreateBatch)
		r.Get("/{batchID}", app.GetBatchState)
		r.Post("/{batchID}/photos", app.UploadPhotos)
		r.Post("/{batchID}/groups", app.CreateGroup)
		r.Post("/{batchID}/autogroup", app.AutoGroup)
		r.Post("/{batchID}/drafts", app.GenerateDrafts)
		r.Get("/{batchID}/jobs/latest", app.LatestBatchJob)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Post("/merge", app.MergeGroups)
		r.Post("/{groupID}/assign", app.AssignImages)
		r.Post("/{groupID}/split", app.SplitGroup)
		r.Patch("/{groupID}/type", app.ChangeGroupType)
		r.Delete("/{groupID}", app.DeleteGroup)
		r.Get("/{groupID}/photos.zip", app.DownloadGroupPhotos)
	})

	r.Get("/jobs/{jobID}", app.GetJob)

	r.Route("/drafts", func(r chi.Router) {
		r.Get("/", app.ListDrafts)
		r.Get("/{draftID}", app.GetDraft)
		r.Patch("/{draftID}", app.UpdateDraft)
		r.Delete("/{draftID}", app.DeleteDraft)
		r.Post("/{draftID}/publish", app.PublishDraft)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/policies/{marketplaceID}", app.GetMarketplacePolicies)
		r.Put("/policies/{marketplaceID}", app.UpsertMarketplacePolicies)
	})

	r.Get("/marketplaces", app.ListMarketplaces)
	r.Get("/rates", app.GetRates)
	r.Get("/stats", app.Stats)

	if app.Photos != nil {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.Photos.BasePath())))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	return r
}
