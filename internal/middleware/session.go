package middleware

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"budget/internal/domain"
)

// DefaultSessionName is the cookie name used for the browser session.
const DefaultSessionName = "budget_session"

const (
	keyUserID   = "user_id"
	keyEmail    = "email"
	keyQuery    = "filter_q"
	keyCategory = "filter_category"
	keyStatus   = "filter_status"
	keyFlash    = "flash"
)

type sessionKey struct{}

// Session is the per-request view of the browser session. Handlers mutate it
// and call Save before writing the response.
type Session struct {
	UserID string
	Email  string
	Filter domain.ProjectFilter
	Flash  string

	raw *sessions.Session
}

// Authenticated reports whether a verified user is signed in.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// SignIn binds the session to u.
func (s *Session) SignIn(u *domain.User) {
	s.UserID = u.ID
	s.Email = u.Email
}

// SignOut forgets the user and every remembered view setting.
func (s *Session) SignOut() {
	s.UserID = ""
	s.Email = ""
	s.Filter = domain.ProjectFilter{}
	s.Flash = ""
	if s.raw != nil {
		s.raw.Options.MaxAge = -1
	}
}

// SetFlash stores a one-shot message for the next page render.
func (s *Session) SetFlash(msg string) { s.Flash = msg }

// TakeFlash returns the pending flash message and clears it.
func (s *Session) TakeFlash() string {
	msg := s.Flash
	s.Flash = ""
	return msg
}

// Save writes the session cookie. It must run before the response body.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	if s.raw == nil {
		return nil
	}
	if s.raw.Options != nil && s.raw.Options.MaxAge < 0 {
		s.raw.Values = map[interface{}]interface{}{}
		return s.raw.Save(r, w)
	}
	set := func(key, val string) {
		if val == "" {
			delete(s.raw.Values, key)
			return
		}
		s.raw.Values[key] = val
	}
	setList := func(key string, vals []string) {
		if len(vals) == 0 {
			delete(s.raw.Values, key)
			return
		}
		s.raw.Values[key] = slices.Clone(vals)
	}
	set(keyUserID, s.UserID)
	set(keyEmail, s.Email)
	set(keyQuery, s.Filter.Query)
	setList(keyCategory, s.Filter.Categories)
	setList(keyStatus, s.Filter.Statuses)
	set(keyFlash, s.Flash)
	return s.raw.Save(r, w)
}

// NewCookieStore returns the cookie store used for sessions.
func NewCookieStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Sessions decodes the session cookie into a Session stored in the request
// context. An unreadable cookie yields a fresh anonymous session.
func Sessions(store sessions.Store, name string) func(http.Handler) http.Handler {
	if name == "" {
		name = DefaultSessionName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := store.Get(r, name)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("discarding unreadable session")
			}
			sess := &Session{raw: raw}
			if raw != nil {
				sess.UserID = stringValue(raw.Values[keyUserID])
				sess.Email = stringValue(raw.Values[keyEmail])
				sess.Flash = stringValue(raw.Values[keyFlash])
				sess.Filter = domain.ProjectFilter{
					Query:      stringValue(raw.Values[keyQuery]),
					Categories: stringList(raw.Values[keyCategory]),
					Statuses:   stringList(raw.Values[keyStatus]),
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// RequireUser lets only signed-in sessions through. Page requests are
// redirected to the login page; other methods get 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()).Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}

// ContextWithSession stores sess in ctx.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request's session, or an empty detached
// one when the middleware did not run.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringList(v interface{}) []string {
	l, _ := v.([]string)
	return l
}
