package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"budget/internal/domain"
	"budget/internal/middleware"
)

type explorerView struct {
	Filter      domain.ProjectFilter
	Projects    []domain.Project
	Categories  []string
	Statuses    []string
	Total       int
	Allocations map[string]int64
}

// Explorer lists projects. Filter parameters in the query replace the filter
// remembered in the session; without them the remembered filter applies.
func (a *App) Explorer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFromContext(ctx)
	if filter, ok := filterFromQuery(r.URL.Query()); ok {
		sess.Filter = filter
	}

	projects, err := a.Projects.List(ctx, sess.Filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	categories, err := a.Projects.Categories(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	statuses, err := a.Projects.Statuses(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	total, err := a.Projects.Count(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view := explorerView{
		Filter:     sess.Filter,
		Projects:   projects,
		Categories: categories,
		Statuses:   statuses,
		Total:      total,
	}
	if sess.Authenticated() {
		if view.Allocations, err = a.Allocator.Allocations(ctx, sess.UserID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	a.render(w, r, http.StatusOK, "explorer", pageData{Title: "Projects", Data: view})
}

// RandomProject sends the browser to a random project among those matching
// the remembered filter.
func (a *App) RandomProject(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	projects, err := a.Projects.List(r.Context(), sess.Filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(projects) == 0 {
		a.render(w, r, http.StatusNotFound, "error", pageData{Title: "No projects", Error: "No projects match the current filter."})
		return
	}
	p := projects[a.pick(len(projects))]
	a.redirect(w, r, "/allocate#project-"+url.PathEscape(p.ID))
}

func filterFromQuery(q url.Values) (domain.ProjectFilter, bool) {
	if q.Get("clear") != "" {
		return domain.ProjectFilter{}, true
	}
	_, hasQ := q["q"]
	_, hasCat := q["category"]
	_, hasStatus := q["status"]
	if !hasQ && !hasCat && !hasStatus {
		return domain.ProjectFilter{}, false
	}
	return domain.ProjectFilter{
		Query:      strings.TrimSpace(q.Get("q")),
		Categories: nonEmpty(q["category"]),
		Statuses:   nonEmpty(q["status"]),
	}, true
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
