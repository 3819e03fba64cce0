package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"budget/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseURL        string
	ProjectsPath       string
	BaseURL            string
	SessionSecret      string
	TokenTTL           time.Duration
	VerifyLimit        int
	VerifyWindow       time.Duration
	AllowedEmails      []string
	SMTPAddr           string
	SMTPUser           string
	SMTPPassword       string
	EmailFrom          string
	EmailSubject       string
	TotalBudget        int64
	MaxProjects        int
	HTTPReadTimeout    time.Duration
	HTTPHeaderTimeout  time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	SessionMaxAgeHours int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:       getEnv("DATABASE_PATH", "data/db.sqlite3"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ProjectsPath:       getEnv("PROJECTS_PATH", "data/projects.csv"),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		TokenTTL:           time.Hour * time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)),
		VerifyLimit:        getEnvInt("VERIFY_LIMIT", 5),
		VerifyWindow:       time.Minute * time.Duration(getEnvInt("VERIFY_WINDOW_MINUTES", 60)),
		AllowedEmails:      getEnvList("ALLOWED_EMAILS"),
		SMTPAddr:           os.Getenv("SMTP_ADDR"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		EmailFrom:          getEnv("EMAIL_FROM", "noreply@budget-allocation.local"),
		EmailSubject:       getEnv("EMAIL_SUBJECT", "Verify your budget allocation account"),
		TotalBudget:        int64(getEnvInt("TOTAL_BUDGET", int(domain.TotalBudget))),
		MaxProjects:        getEnvInt("MAX_PROJECTS", domain.DefaultMaxProjects),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPHeaderTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SessionMaxAgeHours: getEnvInt("SESSION_MAX_AGE_HOURS", 24*7),
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
	case DriverPgx:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=%s", DriverPgx)
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.VerifyLimit <= 0 {
		return nil, fmt.Errorf("VERIFY_LIMIT must be positive")
	}
	if cfg.TokenTTL <= 0 || cfg.VerifyWindow <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_HOURS and VERIFY_WINDOW_MINUTES must be positive")
	}
	if cfg.TotalBudget <= 0 || cfg.TotalBudget > domain.MaxAmount {
		return nil, fmt.Errorf("TOTAL_BUDGET must be between 1 and %d", domain.MaxAmount)
	}

	return cfg, nil
}

// IsDevelopment reports whether verification links are surfaced to the
// browser instead of being emailed.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("SESSION_SECRET is required")
		}
		c.SessionSecret = "development-session-secret-change-me"
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if !c.IsDevelopment() && c.SMTPAddr == "" {
		return fmt.Errorf("SMTP_ADDR is required outside development")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
