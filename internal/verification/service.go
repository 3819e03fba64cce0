// Package verification issues and redeems single-use email verification
// tokens with a per-email issuance rate limit.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"budget/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Mailer delivers a verification link to an address.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// Config controls issuance policy.
type Config struct {
	// BaseURL is the absolute URL of the verify endpoint; the token is
	// appended as the "token" query parameter.
	BaseURL   string
	TokenTTL  time.Duration
	Limit     int
	Window    time.Duration
	Allowlist []string
	// DevMode returns the link to the caller in addition to mailing it.
	DevMode bool
}

// Issued describes a token handed to the mailer.
type Issued struct {
	Email     string
	ExpiresAt time.Time
	// Link is only set in development mode.
	Link string
}

// Service implements the verification flow.
type Service struct {
	store     domain.Store
	mailer    Mailer
	cfg       Config
	allowlist map[string]struct{}
	logger    zerolog.Logger
	now       func() time.Time
	newToken  func() (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

// NewService wires a Service. Zero policy values fall back to 5 requests per
// hour and a 24 hour token lifetime.
func NewService(store domain.Store, mailer Mailer, cfg Config, logger zerolog.Logger, opts ...Option) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	s := &Service{
		store:    store,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newToken: generateToken,
	}
	if len(cfg.Allowlist) > 0 {
		s.allowlist = make(map[string]struct{}, len(cfg.Allowlist))
		for _, e := range cfg.Allowlist {
			s.allowlist[NormalizeEmail(e)] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestVerification issues a token for email and hands the link to the
// mailer. It fails with ErrRateLimited once Limit tokens were issued for the
// address inside the trailing Window.
func (s *Service) RequestVerification(ctx context.Context, email string) (Issued, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return Issued{}, domain.ErrInvalidEmail
	}
	if s.allowlist != nil {
		if _, ok := s.allowlist[email]; !ok {
			return Issued{}, domain.ErrNotAllowed
		}
	}

	token, err := s.newToken()
	if err != nil {
		return Issued{}, fmt.Errorf("generate token: %w", err)
	}
	now := s.now().UTC()
	record := domain.VerificationToken{
		Token:     token,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		recent, err := tx.Tokens().CountIssuedSince(ctx, email, now.Add(-s.cfg.Window))
		if err != nil {
			return err
		}
		if recent >= s.cfg.Limit {
			return domain.ErrRateLimited
		}
		return tx.Tokens().Save(ctx, record)
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.logger.Warn().Str("email", email).Msg("verification rate limited")
		}
		return Issued{}, err
	}

	link := s.link(token)
	if err := s.mailer.SendVerification(ctx, email, link); err != nil {
		return Issued{}, fmt.Errorf("deliver verification: %w", err)
	}
	s.logger.Info().Str("email", email).Time("expires_at", record.ExpiresAt).Msg("verification issued")

	issued := Issued{Email: email, ExpiresAt: record.ExpiresAt}
	if s.cfg.DevMode {
		issued.Link = link
	}
	return issued, nil
}

// Verify redeems token. It returns ErrInvalidToken for unknown tokens,
// ErrTokenAlreadyUsed once consumed and ErrTokenExpired past expiry. On
// success the token is consumed and the user created or marked verified in
// the same transaction.
func (s *Service) Verify(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	now := s.now().UTC()

	var user *domain.User
	err := s.store.WithTx(ctx, func(tx domain.Repositories) error {
		t, err := tx.Tokens().Get(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		if t.Consumed() {
			return domain.ErrTokenAlreadyUsed
		}
		if t.Expired(now) {
			return domain.ErrTokenExpired
		}
		if err := tx.Tokens().Consume(ctx, token, now); err != nil {
			return err
		}
		u, err := tx.Users().Create(ctx, t.Email)
		if err != nil {
			return err
		}
		if err := tx.Users().MarkVerified(ctx, u.ID, now); err != nil {
			return err
		}
		if u.VerifiedAt == nil {
			u.VerifiedAt = &now
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("email verified")
	return user, nil
}

// PurgeExpired deletes expired tokens that no longer count towards the
// issuance rate limit.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	return s.store.Tokens().DeleteExpired(ctx, now, now.Add(-s.cfg.Window))
}

func (s *Service) link(token string) string {
	sep := "?"
	if strings.Contains(s.cfg.BaseURL, "?") {
		sep = "&"
	}
	return s.cfg.BaseURL + sep + "token=" + url.QueryEscape(token)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
