package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/allocation"
	"budget/internal/domain"
	"budget/internal/middleware"
)

const amountFieldPrefix = "amount_"

type allocateView struct {
	Filter      domain.ProjectFilter
	Projects    []domain.Project
	Summary     domain.Summary
	Values      map[string]string
	FieldErrors map[string]string
}

func (a *App) AllocatePage(w http.ResponseWriter, r *http.Request) {
	a.renderAllocate(w, r, http.StatusOK, "", nil, nil)
}

// AllocateSubmit accepts either a single project_id/amount pair or one
// amount_<project_id> field per project. All amounts in one submission are
// saved together or not at all.
func (a *App) AllocateSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderAllocate(w, r, http.StatusBadRequest, "Could not read the form.", nil, nil)
		return
	}
	sess := middleware.SessionFromContext(r.Context())

	raw := map[string]string{}
	if id := strings.TrimSpace(r.PostForm.Get("project_id")); id != "" {
		raw[id] = r.PostForm.Get("amount")
	}
	for key, vals := range r.PostForm {
		if id, ok := strings.CutPrefix(key, amountFieldPrefix); ok && id != "" && len(vals) > 0 {
			raw[id] = vals[0]
		}
	}
	if len(raw) == 0 {
		a.renderAllocate(w, r, http.StatusBadRequest, "No amounts were submitted.", nil, nil)
		return
	}

	amounts := make(map[string]int64, len(raw))
	fieldErrors := map[string]string{}
	for id, v := range raw {
		amount, err := allocation.ParseAmount(v)
		if err != nil {
			fieldErrors[id] = "Enter a whole number of pounds."
			continue
		}
		amounts[id] = amount
	}
	if len(fieldErrors) > 0 {
		_, msg := statusFor(domain.ErrInvalidAmount)
		a.renderAllocate(w, r, http.StatusUnprocessableEntity, msg, raw, fieldErrors)
		return
	}

	var err error
	if len(amounts) == 1 {
		for id, amount := range amounts {
			err = a.Allocator.Allocate(r.Context(), sess.UserID, id, amount)
		}
	} else {
		err = a.Allocator.AllocateAll(r.Context(), sess.UserID, amounts)
	}
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			a.logger(r).Error().Err(err).Msg("save allocations")
		}
		if errors.Is(err, domain.ErrUnknownProject) {
			a.render(w, r, code, "error", pageData{Title: "Unknown project", Error: msg})
			return
		}
		a.renderAllocate(w, r, code, msg, raw, nil)
		return
	}
	sess.SetFlash("Allocations saved.")
	a.redirect(w, r, "/allocate")
}

// renderAllocate shows the allocation form. Submitted values override the
// stored amounts so a rejected form keeps what the user typed.
func (a *App) renderAllocate(w http.ResponseWriter, r *http.Request, code int, errMsg string, submitted, fieldErrors map[string]string) {
	ctx := r.Context()
	sess := middleware.SessionFromContext(ctx)
	projects, err := a.Projects.List(ctx, sess.Filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	current, err := a.Allocator.Allocations(ctx, sess.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	summary, err := a.Allocator.Summary(ctx, sess.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	values := make(map[string]string, len(current)+len(submitted))
	for id, amount := range current {
		values[id] = strconv.FormatInt(amount, 10)
	}
	for id, v := range submitted {
		values[id] = v
	}
	a.render(w, r, code, "allocate", pageData{
		Title: "Allocate",
		Error: errMsg,
		Data: allocateView{
			Filter:      sess.Filter,
			Projects:    projects,
			Summary:     summary,
			Values:      values,
			FieldErrors: fieldErrors,
		},
	})
}
