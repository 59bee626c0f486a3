package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	httpapi "github.com/aussiebroadwan/tokenward/internal/session/http"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
	LedgerSQLite = "sqlite"
)

type Config struct {
	SigningSecret string        `yaml:"signing_secret"`  // Required: HMAC secret, at least 32 bytes
	Algorithm     string        `yaml:"algorithm"`       // Optional: HS256, HS384 or HS512 (default: HS256)
	AccessTTL     time.Duration `yaml:"access_ttl"`      // Optional: access token lifetime (default: 30m)
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`     // Optional: refresh token lifetime (default: 7d)
	RememberMeTTL time.Duration `yaml:"remember_me_ttl"` // Optional: remember-me refresh lifetime (default: 30d)
	ClockSkew     time.Duration `yaml:"clock_skew"`      // Optional: tolerated clock skew (default: 0)
	Issuer        string        `yaml:"issuer"`          // Optional: iss claim, checked when set
	Audience      string        `yaml:"audience"`        // Optional: aud claim, checked when set

	Ledger        string        `yaml:"ledger"`         // Optional: memory, redis or sqlite (default: sqlite)
	RedisURL      string        `yaml:"redis_url"`      // Required for the redis ledger
	RedisPrefix   string        `yaml:"redis_prefix"`   // Optional: key prefix (default: tokenward)
	LedgerTimeout time.Duration `yaml:"ledger_timeout"` // Optional: per-call ledger deadline (default: 2s)

	DatabaseFile string `yaml:"database_file"` // Optional: SQLite file (default: tokenward.db)
	PepperFile   string `yaml:"pepper_file"`   // Optional: pepper for password hashing (default: pepper)

	Env                 string        `yaml:"env"`                   // dev, staging, prod (default: dev)
	LogLevel            string        `yaml:"log_level"`             // debug, info, warn, error (default: info)
	LogFormat           string        `yaml:"log_format"`            // json, text (default: json)
	Port                int           `yaml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	PruneInterval       time.Duration `yaml:"prune_interval"`        // Ledger pruning interval (default: 1h)

	Cookies        bool   `yaml:"cookies"`         // Optional: also deliver tokens as HttpOnly cookies (default: false)
	CookieSecure   bool   `yaml:"cookie_secure"`   // Optional: HTTPS-only cookies (default: false)
	CookieDomain   string `yaml:"cookie_domain"`   // Optional: cookie Domain attribute (default: host only)
	CookieSameSite string `yaml:"cookie_samesite"` // Optional: lax, strict or none (default: lax)

	RateLimits httpx.RateLimitProfiles `yaml:"-"`

	// invalid lists environment values that did not parse.
	invalid []string
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Algorithm:           jwtx.DefaultAlgorithm,
		AccessTTL:           jwtx.DefaultAccessTokenTTL,
		RefreshTTL:          jwtx.DefaultRefreshTokenTTL,
		RememberMeTTL:       jwtx.DefaultRememberMeTTL,
		Issuer:              "tokenward",
		Ledger:              LedgerSQLite,
		LedgerTimeout:       2 * time.Second,
		DatabaseFile:        "tokenward.db",
		PepperFile:          "pepper",
		Env:                 "dev",
		LogLevel:            "info",
		LogFormat:           "json",
		Port:                8080,
		ShutdownGracePeriod: 10 * time.Second,
		PruneInterval:       time.Hour,
		CookieSameSite:      "lax",
		RateLimits:          httpx.DefaultProfiles(),
	}
}

// LoadConfig loads .env if present, then the YAML file at path (optional),
// then the process environment. Later sources win.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return loadConfig(path, os.Getenv)
}

func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	env := &lookup{get: getenv}
	cfg.SigningSecret = env.getOrDefault("TOKENWARD_SIGNING_SECRET", cfg.SigningSecret)
	cfg.Algorithm = env.getOrDefault("TOKENWARD_ALGORITHM", cfg.Algorithm)
	cfg.AccessTTL = env.getDurationOrDefault("TOKENWARD_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = env.getDurationOrDefault("TOKENWARD_REFRESH_TTL", cfg.RefreshTTL)
	cfg.RememberMeTTL = env.getDurationOrDefault("TOKENWARD_REMEMBER_ME_TTL", cfg.RememberMeTTL)
	cfg.ClockSkew = env.getDurationOrDefault("TOKENWARD_CLOCK_SKEW", cfg.ClockSkew)
	cfg.Issuer = env.getOrDefault("TOKENWARD_ISSUER", cfg.Issuer)
	cfg.Audience = env.getOrDefault("TOKENWARD_AUDIENCE", cfg.Audience)

	cfg.Ledger = strings.ToLower(env.getOrDefault("TOKENWARD_LEDGER", cfg.Ledger))
	cfg.RedisURL = env.getOrDefault("TOKENWARD_REDIS_URL", cfg.RedisURL)
	cfg.RedisPrefix = env.getOrDefault("TOKENWARD_REDIS_PREFIX", cfg.RedisPrefix)
	cfg.LedgerTimeout = env.getDurationOrDefault("TOKENWARD_LEDGER_TIMEOUT", cfg.LedgerTimeout)

	cfg.DatabaseFile = env.getOrDefault("TOKENWARD_DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = env.getOrDefault("TOKENWARD_PEPPER_FILE", cfg.PepperFile)

	cfg.Env = env.getOrDefault("ENV", cfg.Env)
	cfg.LogLevel = env.getOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.getOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = env.getIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = env.getDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.PruneInterval = env.getDurationOrDefault("PRUNE_INTERVAL", cfg.PruneInterval)

	cfg.Cookies = env.getBoolOrDefault("TOKENWARD_COOKIES", cfg.Cookies)
	cfg.CookieSecure = env.getBoolOrDefault("TOKENWARD_COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieDomain = env.getOrDefault("TOKENWARD_COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.CookieSameSite = env.getOrDefault("TOKENWARD_COOKIE_SAMESITE", cfg.CookieSameSite)

	cfg.RateLimits = httpx.ProfilesFromEnv(getenv)
	cfg.invalid = env.invalid

	return cfg, nil
}

// Validate rejects settings the service must not start with. Every error
// wraps jwtx.ErrConfiguration.
func (c Config) Validate() error {
	problems := append([]string(nil), c.invalid...)

	if len(c.SigningSecret) < jwtx.MinSecretBytes {
		problems = append(problems, fmt.Sprintf("signing secret must be at least %d bytes", jwtx.MinSecretBytes))
	}
	switch strings.ToUpper(c.Algorithm) {
	case jwtx.AlgHS256, jwtx.AlgHS384, jwtx.AlgHS512:
	default:
		problems = append(problems, fmt.Sprintf("unsupported algorithm %q", c.Algorithm))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.RememberMeTTL <= 0 {
		problems = append(problems, "token lifetimes must be positive")
	}
	if c.ClockSkew < 0 {
		problems = append(problems, "clock skew must not be negative")
	}

	switch c.Ledger {
	case LedgerMemory, LedgerSQLite:
	case LedgerRedis:
		if c.RedisURL == "" {
			problems = append(problems, "redis ledger needs TOKENWARD_REDIS_URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger backend %q", c.Ledger))
	}

	if sameSite, err := httpapi.ParseSameSite(c.CookieSameSite); err != nil {
		problems = append(problems, err.Error())
	} else if c.Cookies && sameSite == http.SameSiteNoneMode && !c.CookieSecure {
		problems = append(problems, "SameSite=None cookies need TOKENWARD_COOKIE_SECURE")
	}

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d", c.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", jwtx.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// CookieConfig is the HTTP cookie transport described by c. Call it on a
// validated config.
func (c Config) CookieConfig() httpapi.CookieConfig {
	sameSite, _ := httpapi.ParseSameSite(c.CookieSameSite)
	return httpapi.CookieConfig{
		Enabled:  c.Cookies,
		Secure:   c.CookieSecure,
		Domain:   c.CookieDomain,
		SameSite: sameSite,
	}
}

// lookup reads environment overrides and remembers the ones that did not
// parse, so Validate can refuse to start instead of running on defaults.
type lookup struct {
	get     func(string) string
	invalid []string
}

func (env *lookup) reject(key, value, want string) {
	env.invalid = append(env.invalid, fmt.Sprintf("%s=%q is not %s", key, value, want))
}

func (env *lookup) getOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(env.get(key)); value != "" {
		return value
	}
	return defaultValue
}

func (env *lookup) getIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(env.get(key))
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	env.reject(key, value, "an integer")
	return defaultValue
}

func (env *lookup) getBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(env.get(key))
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	env.reject(key, value, "a boolean")
	return defaultValue
}

func (env *lookup) getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(env.get(key))
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	env.reject(key, value, "a duration")
	return defaultValue
}
