package handlers

import (
	"net/http"
)

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Projects int    `json:"projects"`
}

// Health reports whether the store answers and how many projects are loaded.
// An empty catalogue is reported but still healthy.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	n, err := a.Projects.Count(r.Context())
	if err != nil {
		a.logger(r).Error().Err(err).Msg("health check failed")
		a.json(w, http.StatusServiceUnavailable, healthStatus{Status: "unavailable", Database: "error"})
		return
	}
	a.json(w, http.StatusOK, healthStatus{Status: "ok", Database: "ok", Projects: n})
}
