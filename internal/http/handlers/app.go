package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"budget/internal/allocation"
	"budget/internal/domain"
	"budget/internal/middleware"
	"budget/internal/verification"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"login", "explorer", "allocate", "dashboard", "error"}

// Verifier is the part of the verification service the handlers use.
type Verifier interface {
	RequestVerification(ctx context.Context, email string) (verification.Issued, error)
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// Allocator is the part of the allocation engine the handlers use.
type Allocator interface {
	Budget() int64
	Allocate(ctx context.Context, userID, projectID string, amount int64) error
	AllocateAll(ctx context.Context, userID string, amounts map[string]int64) error
	Allocations(ctx context.Context, userID string) (map[string]int64, error)
	Summary(ctx context.Context, userID string) (domain.Summary, error)
	Export(ctx context.Context, userID string, w io.Writer) error
	ExportBundle(ctx context.Context, userID string) ([]byte, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Projects  domain.ProjectRepository
	Verifier  Verifier
	Allocator Allocator
	Logger    zerolog.Logger

	templates map[string]*template.Template
	pick      func(n int) int
}

// NewApp parses the page templates and returns a ready App.
func NewApp(projects domain.ProjectRepository, verifier Verifier, allocator Allocator, logger zerolog.Logger) (*App, error) {
	funcs := template.FuncMap{
		"gbp":     allocation.FormatGBP,
		"percent": percent,
		"has":     slices.Contains[[]string],
	}
	tpls := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		tpls[name] = t
	}
	return &App{
		Projects:  projects,
		Verifier:  verifier,
		Allocator: allocator,
		Logger:    logger,
		templates: tpls,
		pick:      rand.Intn,
	}, nil
}

type pageData struct {
	Title   string
	Session *middleware.Session
	Flash   string
	Error   string
	Data    any
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// render saves the session, then writes the named page with status code.
func (a *App) render(w http.ResponseWriter, r *http.Request, code int, name string, p pageData) {
	sess := middleware.SessionFromContext(r.Context())
	p.Session = sess
	if p.Flash == "" {
		p.Flash = sess.TakeFlash()
	}
	t, ok := a.templates[name]
	if !ok {
		a.logger(r).Error().Str("page", name).Msg("unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		a.logger(r).Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.saveSession(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// fail renders the error page for err with the status it maps to.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger(r).Error().Err(err).Msg("request failed")
	}
	a.render(w, r, code, "error", pageData{Title: http.StatusText(code), Error: msg})
}

func (a *App) redirect(w http.ResponseWriter, r *http.Request, to string) {
	a.saveSession(w, r)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (a *App) saveSession(w http.ResponseWriter, r *http.Request) {
	if err := middleware.SessionFromContext(r.Context()).Save(r, w); err != nil {
		a.logger(r).Error().Err(err).Msg("save session")
	}
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func percent(amount, total int64) string {
	if total <= 0 || amount <= 0 {
		return "0"
	}
	p := float64(amount) * 100 / float64(total)
	if p > 100 {
		p = 100
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}
