package handlers

import (
	"net/http"
)

// Health reports liveness. The service name lets shared load balancers tell
// this backend apart from its siblings on the same host.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "skatebay-publisher",
	})
}
