package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names understood by FEEMINTON_ENV.
const (
	EnvLocal       = "local"
	EnvDevelopment = "development"
	EnvDev         = "dev"
	EnvProduction  = "production"
)

// DefaultAPITimeout bounds every upstream REST call.
const DefaultAPITimeout = 15 * time.Second

// Config holds the runtime configuration for the web front end and the
// development backend.
type Config struct {
	Addr string
	Env  string

	// APIBase is the explicit REST base; empty means "pick by Env".
	APIBase string
	// APIAllowed lists extra bases the `api` query parameter may select.
	APIAllowed []string
	APITimeout time.Duration

	// OrganizerHash is a bcrypt hash; empty leaves mutations open.
	OrganizerHash string

	ResendKey  string
	DigestFrom string
	DigestTo   []string

	DevAPIAddr string
	DevAPIDB   string
	DevAPISeed bool
}

// Load reads the configuration from the process environment.
// PRE: none
// POST: Returns a validated Config or the first invalid variable
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv so tests can supply values.
// PRE: getenv is non-nil
// POST: Returns a validated Config or the first invalid variable
func LoadFrom(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:          get("FEEMINTON_ADDR", ":8080"),
		Env:           strings.ToLower(get("FEEMINTON_ENV", EnvDevelopment)),
		APIBase:       get("FEEMINTON_API_BASE", ""),
		APIAllowed:    splitList(getenv("FEEMINTON_API_ALLOWED")),
		APITimeout:    DefaultAPITimeout,
		OrganizerHash: get("FEEMINTON_ORGANIZER_HASH", ""),
		ResendKey:     get("FEEMINTON_RESEND_KEY", ""),
		DigestFrom:    get("FEEMINTON_DIGEST_FROM", "Feeminton <noreply@feeminton.app>"),
		DigestTo:      splitList(getenv("FEEMINTON_DIGEST_TO")),
		DevAPIAddr:    get("FEEMINTON_DEVAPI_ADDR", ":5000"),
		DevAPIDB:      get("FEEMINTON_DEVAPI_DB", "feeminton.db"),
	}

	if v := get("FEEMINTON_API_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEEMINTON_API_TIMEOUT value: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("FEEMINTON_API_TIMEOUT must be positive, got %s", v)
		}
		cfg.APITimeout = d
	}

	if v := get("FEEMINTON_DEVAPI_SEED", ""); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEEMINTON_DEVAPI_SEED value: %w", err)
		}
		cfg.DevAPISeed = seed
	}

	if cfg.OrganizerHash != "" && !strings.HasPrefix(cfg.OrganizerHash, "$2") {
		return Config{}, fmt.Errorf("FEEMINTON_ORGANIZER_HASH must be a bcrypt hash")
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// OrganizerGateEnabled reports whether mutating actions require an unlock.
func (c Config) OrganizerGateEnabled() bool {
	return c.OrganizerHash != ""
}

// DigestEnabled reports whether schedule digests should be emailed.
func (c Config) DigestEnabled() bool {
	return len(c.DigestTo) > 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
