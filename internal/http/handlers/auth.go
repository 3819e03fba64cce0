package handlers

import (
	"net/http"
	"strings"
	"time"

	"budget/internal/middleware"
)

type loginView struct {
	Email     string
	Sent      bool
	ExpiresAt time.Time
	DevLink   string
}

func (a *App) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromContext(r.Context()).Authenticated() {
		a.redirect(w, r, "/")
		return
	}
	a.render(w, r, http.StatusOK, "login", pageData{Title: "Sign in", Data: loginView{}})
}

func (a *App) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Sign in", Error: "Could not read the form.", Data: loginView{}})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	issued, err := a.Verifier.RequestVerification(r.Context(), email)
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			a.logger(r).Error().Err(err).Msg("request verification")
			msg = "We could not send a sign-in link right now. Please try again."
		}
		a.render(w, r, code, "login", pageData{Title: "Sign in", Error: msg, Data: loginView{Email: email}})
		return
	}
	a.render(w, r, http.StatusOK, "login", pageData{Title: "Check your email", Data: loginView{
		Email:     issued.Email,
		Sent:      true,
		ExpiresAt: issued.ExpiresAt,
		DevLink:   issued.Link,
	}})
}

func (a *App) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := a.Verifier.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			a.logger(r).Error().Err(err).Msg("verify token")
		}
		a.render(w, r, code, "login", pageData{Title: "Sign in", Error: msg, Data: loginView{}})
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.SignIn(user)
	sess.SetFlash("Signed in as " + user.Email + ".")
	a.redirect(w, r, "/")
}

func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.SessionFromContext(r.Context()).SignOut()
	a.redirect(w, r, "/login")
}
