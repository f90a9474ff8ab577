// internal/config/model.go
//
// Typed configuration model for the storefront.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                              – dotenv values,
//   • `conf/global.yaml`                           – primary static file,
//   • `STOREFRONT_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through a SecretResolver *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import "time"

//
// App section
//

// App identifies the deployment.  Environment feeds environment-scoped
// feature gates, so it must be one of the known deployment names.
type App struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment" validate:"required,oneof=development test staging production"`
}

//
// HTTP section
//

// HTTP holds web-server tunables.  TrustProxy honours X-Forwarded-For
// from internal peers; leave it off unless a proxy fronts the server.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

//
// Log section
//

// Log controls the zap sinks.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The DSN usually carries a
// `vault:` reference so credentials stay out of flat files.
type Database struct {
	ControlDSN string `koanf:"control_dsn" validate:"required"`
}

//
// Session section
//

// Session configures the session cookie and its Redis-backed store.
type Session struct {
	RedisAddr     string `koanf:"redis_addr"     validate:"required"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"       validate:"gte=0"`
	CookieName    string `koanf:"cookie_name"    validate:"required"`
	CookieKey     string `koanf:"cookie_key"     validate:"required,min=32"`
}

//
// Auth section
//

// Auth configures bearer-token verification.
type Auth struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=32"`
	Issuer    string `koanf:"issuer"`
}

//
// Tenancy section
//

// Tenancy controls how the tenant is derived from a request.  Precedence
// lists source names in the order they are consulted.  Sources that
// disagree fail resolution unless Lenient is set, in which case the first
// source in precedence order wins.
type Tenancy struct {
	Header     string   `koanf:"header"      validate:"required"`
	BaseDomain string   `koanf:"base_domain"`
	Precedence []string `koanf:"precedence"  validate:"tenancyorder,dive,oneof=token header subdomain"`
	Lenient    bool     `koanf:"lenient"`
}

//
// Flags section
//

// Flags locates the base flag definitions and tunes the per-tenant
// override cache.
type Flags struct {
	File     string        `koanf:"file"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// RateLimit section
//

// RateLimit holds the per-client token-bucket settings.  Zero RPS
// disables the limiter.
type RateLimit struct {
	RPS   float64 `koanf:"rps"   validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // STOREFRONT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	App       App       `koanf:"app"`
	HTTP      HTTP      `koanf:"http"`
	Log       Log       `koanf:"log"`
	Database  Database  `koanf:"database"`
	Session   Session   `koanf:"session"`
	Auth      Auth      `koanf:"auth"`
	Tenancy   Tenancy   `koanf:"tenancy"`
	Flags     Flags     `koanf:"flags"`
	Geo       Geo       `koanf:"geo"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// applyDefaults fills optional knobs that YAML may omit.
func (c *Config) applyDefaults() {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Tenancy.Precedence) == 0 {
		c.Tenancy.Precedence = []string{"token", "header", "subdomain"}
	}
	if c.Flags.CacheTTL == 0 {
		c.Flags.CacheTTL = 30 * time.Second
	}
}
