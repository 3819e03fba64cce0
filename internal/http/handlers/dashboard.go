package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"budget/internal/domain"
	"budget/internal/middleware"
)

type dashboardView struct {
	Summary domain.Summary
}

func (a *App) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	summary, err := a.Allocator.Summary(r.Context(), sess.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "dashboard", pageData{Title: "Dashboard", Data: dashboardView{Summary: summary}})
}

func (a *App) ExportCSV(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	var buf bytes.Buffer
	if err := a.Allocator.Export(r.Context(), sess.UserID, &buf); err != nil {
		a.fail(w, r, err)
		return
	}
	a.download(w, "text/csv; charset=utf-8", "allocations.csv", buf.Bytes())
}

func (a *App) ExportZip(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	data, err := a.Allocator.ExportBundle(r.Context(), sess.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.download(w, "application/zip", "allocations.zip", data)
}

func (a *App) download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
