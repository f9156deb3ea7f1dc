// Package config loads the authclient server configuration from
// AUTHCLIENT_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Prefix is prepended to every environment key.
const Prefix = "AUTHCLIENT_"

// Token store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

const redacted = "********"

// Provider holds the OAuth client credentials of a provider.
type Provider struct {
	ClientID     string `env:"CLIENT_ID" json:"client_id"`
	ClientSecret string `env:"CLIENT_SECRET" json:"client_secret"`
	CallbackURL  string `env:"CALLBACK_URL" json:"callback_url"`
}

// Enabled reports whether the provider has credentials.
func (p Provider) Enabled() bool {
	return p.ClientID != ""
}

// GenericProvider configures the endpoint driven provider.
type GenericProvider struct {
	Provider
	Name       string   `env:"NAME" json:"name"`
	AuthURL    string   `env:"AUTH_URL" json:"auth_url"`
	TokenURL   string   `env:"TOKEN_URL" json:"token_url"`
	ProfileURL string   `env:"PROFILE_URL" json:"profile_url"`
	Scopes     []string `env:"SCOPES" envSeparator:"," json:"scopes"`
	PKCE       bool     `env:"PKCE" json:"pkce"`
}

// Config is the complete server configuration.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8572" json:"addr"`
	// MetricsAddr serves the prometheus scrape endpoint, "" disables it.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9572" json:"metrics_addr"`

	BackendURL     string        `env:"BACKEND_URL" json:"backend_url"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s" json:"backend_timeout"`
	BackendRPS     float64       `env:"BACKEND_RPS" envDefault:"0" json:"backend_rps"`
	BackendBurst   int           `env:"BACKEND_BURST" envDefault:"1" json:"backend_burst"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s" json:"sweep_interval"`

	TokenStore string        `env:"TOKEN_STORE" envDefault:"file" json:"token_store"`
	TokenFile  string        `env:"TOKEN_FILE" envDefault:".authclient/token.json" json:"token_file"`
	RedisAddr  string        `env:"REDIS_ADDR" json:"redis_addr"`
	RedisKey   string        `env:"REDIS_KEY" envDefault:"authclient:session:token" json:"redis_key"`
	RedisTTL   time.Duration `env:"REDIS_TTL" json:"redis_ttl"`
	SQLiteDSN  string        `env:"SQLITE_DSN" envDefault:"file:authclient.db?cache=shared" json:"sqlite_dsn"`
	SQLiteSlot string        `env:"SQLITE_SLOT" envDefault:"default" json:"sqlite_slot"`

	TrustedOrigin  string   `env:"TRUSTED_ORIGIN" json:"trusted_origin"`
	LoginPath      string   `env:"LOGIN_PATH" envDefault:"/login" json:"login_path"`
	PublicPrefixes []string `env:"PUBLIC_PREFIXES" envSeparator:"," envDefault:"/login,/auth/social" json:"public_prefixes"`
	AdminGroup     string   `env:"ADMIN_GROUP" envDefault:"admin" json:"admin_group"`
	DefaultGroup   string   `env:"DEFAULT_GROUP" envDefault:"default" json:"default_group"`

	StateKey     string        `env:"STATE_KEY" json:"state_key"`
	StateHMACKey string        `env:"STATE_HMAC_KEY" json:"state_hmac_key"`
	StateTTL     time.Duration `env:"STATE_TTL" envDefault:"10m" json:"state_ttl"`

	// CSRFKey signs login and logout form tokens, random per process when empty.
	CSRFKey string `env:"CSRF_KEY" json:"csrf_key"`

	Instagram Provider        `envPrefix:"INSTAGRAM_" json:"instagram"`
	Naver     Provider        `envPrefix:"NAVER_" json:"naver"`
	Generic   GenericProvider `envPrefix:"GENERIC_" json:"generic"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads environ instead of the process environment. Keys carry
// the AUTHCLIENT_ prefix.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "parse environment")
	}

	cfg.TokenStore = strings.ToLower(strings.TrimSpace(cfg.TokenStore))
	cfg.TrustedOrigin = strings.TrimRight(cfg.TrustedOrigin, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.BackendURL, validation.Required, is.URL),
		validation.Field(&c.BackendTimeout, validation.Required),
		validation.Field(&c.BackendRPS, validation.Min(0.0)),
		validation.Field(&c.SweepInterval, validation.Required),
		validation.Field(&c.TokenStore, validation.Required, validation.In(StoreMemory, StoreFile, StoreRedis, StoreSQLite)),
		validation.Field(&c.TokenFile, requiredIf(c.TokenStore == StoreFile)...),
		validation.Field(&c.RedisAddr, requiredIf(c.TokenStore == StoreRedis)...),
		validation.Field(&c.SQLiteDSN, requiredIf(c.TokenStore == StoreSQLite)...),
		validation.Field(&c.TrustedOrigin, validation.Required, is.URL),
		validation.Field(&c.LoginPath, validation.Required),
		validation.Field(&c.StateKey, validation.Length(32, 32)),
		validation.Field(&c.StateHMACKey, append(requiredIf(c.StateKey != ""), validation.Length(32, 0))...),
		validation.Field(&c.CSRFKey, validation.Length(32, 0)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}

	if c.Naver.Enabled() && c.StateKey == "" {
		return goerrors.New("naver requires AUTHCLIENT_STATE_KEY", goerrors.CategoryValidation)
	}
	if c.Generic.Enabled() {
		g := c.Generic
		if err := validation.ValidateStruct(&g,
			validation.Field(&g.Name, validation.Required),
			validation.Field(&g.AuthURL, validation.Required, is.URL),
			validation.Field(&g.TokenURL, validation.Required, is.URL),
			validation.Field(&g.ProfileURL, validation.Required, is.URL),
		); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid generic provider")
		}
	}

	return nil
}

// HasState reports whether sealed OAuth state is configured.
func (c *Config) HasState() bool {
	return c.StateKey != ""
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	for _, s := range []*string{
		&out.StateKey,
		&out.StateHMACKey,
		&out.CSRFKey,
		&out.Instagram.ClientSecret,
		&out.Naver.ClientSecret,
		&out.Generic.ClientSecret,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return out
}

func requiredIf(cond bool) []validation.Rule {
	if cond {
		return []validation.Rule{validation.Required}
	}
	return nil
}
