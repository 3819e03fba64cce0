package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/adapter/repo/repotest"
	"budget/internal/allocation"
	"budget/internal/domain"
	"budget/internal/middleware"
	"budget/internal/verification"
)

type fakeVerifier struct {
	requestErr error
	verifyErr  error
	user       *domain.User
	requested  []string
}

func (f *fakeVerifier) RequestVerification(_ context.Context, email string) (verification.Issued, error) {
	f.requested = append(f.requested, email)
	if f.requestErr != nil {
		return verification.Issued{}, f.requestErr
	}
	return verification.Issued{Email: email, ExpiresAt: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), Link: "http://test/verify?token=abc"}, nil
}

func (f *fakeVerifier) Verify(context.Context, string) (*domain.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.user, nil
}

type failingAllocator struct {
	*allocation.Engine
	err error
}

func (f failingAllocator) Summary(context.Context, string) (domain.Summary, error) {
	return domain.Summary{}, f.err
}

type failingProjects struct {
	domain.ProjectRepository
	err error
}

func (f failingProjects) Count(context.Context) (int, error) {
	return 0, f.err
}

type fixture struct {
	app      *App
	store    domain.Store
	verifier *fakeVerifier
	userID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore(t)
	repotest.SeedProjects(t, store, repotest.SampleProjects()...)
	user, err := store.Users().Create(context.Background(), "a@b.com")
	require.NoError(t, err)
	verifier := &fakeVerifier{user: user}
	engine := allocation.NewEngine(store, allocation.Options{Logger: zerolog.Nop()})
	app, err := NewApp(store.Projects(), verifier, engine, zerolog.Nop())
	require.NoError(t, err)
	return &fixture{app: app, store: store, verifier: verifier, userID: user.ID}
}

func (f *fixture) do(h http.HandlerFunc, method, target string, form url.Values, sess *middleware.Session) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sess == nil {
		sess = &middleware.Session{}
	}
	req = req.WithContext(middleware.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func (f *fixture) signedIn() *middleware.Session {
	return &middleware.Session{UserID: f.userID, Email: "a@b.com"}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(f.app.Health, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","projects":4}`, rec.Body.String())

	f.app.Projects = failingProjects{ProjectRepository: f.app.Projects, err: errors.New("database is locked")}
	rec = f.do(f.app.Health, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","database":"error","projects":0}`, rec.Body.String())
}

func TestLoginSubmit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(f.app.LoginSubmit, http.MethodPost, "/login", url.Values{"email": {" a@b.com "}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://test/verify?token=abc")
	assert.Equal(t, []string{"a@b.com"}, f.verifier.requested)

	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidEmail, http.StatusBadRequest},
		{domain.ErrNotAllowed, http.StatusForbidden},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("smtp down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f.verifier.requestErr = tc.err
		rec := f.do(f.app.LoginSubmit, http.MethodPost, "/login", url.Values{"email": {"a@b.com"}}, nil)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), `class="error"`)
		assert.NotContains(t, rec.Body.String(), "smtp down")
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)

	sess := &middleware.Session{}
	rec := f.do(f.app.Verify, http.MethodGet, "/verify?token=abc", nil, sess)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "a@b.com", sess.Email)

	cases := map[error]int{
		domain.ErrInvalidToken:     http.StatusBadRequest,
		domain.ErrTokenExpired:     http.StatusUnauthorized,
		domain.ErrTokenAlreadyUsed: http.StatusConflict,
	}
	for err, code := range cases {
		f.verifier.verifyErr = err
		sess := &middleware.Session{}
		rec := f.do(f.app.Verify, http.MethodGet, "/verify?token=abc", nil, sess)
		assert.Equal(t, code, rec.Code, err.Error())
		assert.False(t, sess.Authenticated())
	}
}

func TestExplorerFilterRememberedInSession(t *testing.T) {
	f := newFixture(t)
	sess := &middleware.Session{}

	rec := f.do(f.app.Explorer, http.MethodGet, "/?q=vote&category=Elections", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Vote Finder")
	assert.NotContains(t, body, "Open Council Data")
	assert.Equal(t, domain.ProjectFilter{Query: "vote", Categories: []string{"Elections"}}, sess.Filter)

	// No filter parameters: the remembered filter applies.
	rec = f.do(f.app.Explorer, http.MethodGet, "/", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Open Council Data")

	rec = f.do(f.app.Explorer, http.MethodGet, "/?clear=1", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Open Council Data")
	assert.True(t, sess.Filter.IsZero())
}

func TestExplorerShowsAllocationsWhenSignedIn(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Allocator.Allocate(context.Background(), f.userID, "P1", 1_250_000))

	rec := f.do(f.app.Explorer, http.MethodGet, "/", nil, f.signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "£1,250,000")
}

func TestRandomProject(t *testing.T) {
	f := newFixture(t)
	f.app.pick = func(n int) int { return n - 1 }

	rec := f.do(f.app.RandomProject, http.MethodGet, "/projects/random", nil, &middleware.Session{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/allocate#project-P4", rec.Header().Get("Location"))

	sess := &middleware.Session{Filter: domain.ProjectFilter{Query: "nothing matches this"}}
	rec = f.do(f.app.RandomProject, http.MethodGet, "/projects/random", nil, sess)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllocateSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"project_id": {"P1"}, "amount": {"£2,000,000"}}, f.signedIn())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/allocate", rec.Header().Get("Location"))

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"project_id": {"P2"}, "amount": {"3500000"}}, f.signedIn())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "£3,000,000 left")

	got, err := f.app.Allocator.Allocations(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 2_000_000}, got)

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"amount_P2": {"12.5"}, "amount_P3": {"10"}}, f.signedIn())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="12.5"`)

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"amount_P2": {"9223372036854775807"}, "amount_P3": {"2"}}, f.signedIn())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got, err = f.app.Allocator.Allocations(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 2_000_000}, got)

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"project_id": {"NOPE"}, "amount": {"10"}}, f.signedIn())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{"amount_P1": {"1000000"}, "amount_P2": {"1,000,000"}, "amount_P3": {""}, "amount_P4": {"0"}}, f.signedIn())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	got, err = f.app.Allocator.Allocations(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 1_000_000, "P2": 1_000_000}, got)

	rec = f.do(f.app.AllocateSubmit, http.MethodPost, "/allocate", url.Values{}, f.signedIn())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllocatePageAndDashboard(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Allocator.Allocate(context.Background(), f.userID, "P2", 500_000))

	rec := f.do(f.app.AllocatePage, http.MethodGet, "/allocate", nil, f.signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="project-P2"`)
	assert.Contains(t, body, `name="amount_P2" value="500000"`)
	assert.Contains(t, body, "£4,500,000")

	rec = f.do(f.app.Dashboard, http.MethodGet, "/dashboard", nil, f.signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Elections")
	assert.Contains(t, body, "1 / 293")
	assert.Contains(t, body, "width: 10.0%")
}

func TestDashboardStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.app.Allocator = failingAllocator{
		Engine: f.app.Allocator.(*allocation.Engine),
		err:    &domain.StorageError{Op: "sum", Err: errors.New("disk I/O error")},
	}
	rec := f.do(f.app.Dashboard, http.MethodGet, "/dashboard", nil, f.signedIn())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please try again")
	assert.NotContains(t, rec.Body.String(), "disk I/O")
}

func TestExports(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Allocator.Allocate(context.Background(), f.userID, "P1", 42))

	rec := f.do(f.app.ExportCSV, http.MethodGet, "/dashboard/export.csv", nil, f.signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "allocations.csv")
	assert.Equal(t, "project_id,name,category,status,amount\nP1,Open Council Data,Transparency,active,42\n", rec.Body.String())

	rec = f.do(f.app.ExportZip, http.MethodGet, "/dashboard/export.zip", nil, f.signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestStatusFor(t *testing.T) {
	code, msg := statusFor(&domain.BudgetExceededError{Budget: 5_000_000, Requested: 10, Remaining: 5})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, msg, "£5 left")

	code, _ = statusFor(&domain.StorageError{Op: "allocate", Err: domain.ErrUnknownProject})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = statusFor(domain.ErrInvalidAmount)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0", percent(0, 100))
	assert.Equal(t, "0", percent(10, 0))
	assert.Equal(t, "40.0", percent(2_000_000, 5_000_000))
	assert.Equal(t, "100.0", percent(200, 100))
}
