// cmd/web/main.go
//
// Storefront – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Bootstrap logger (info level) so config loading can log.
//
//  2. Vault client when VAULT_ADDR is set; config references such as
//     `vault:secret/storefront#jwt_secret` resolve through it.
//
//  3. Load config, then rebuild the logger at the configured level.
//
//  4. Open the control-plane DB and load the tenant directory snapshot.
//
//  5. Dial Redis for sessions.
//
//  6. Flags: conf/flags.yaml (static base) layered under the
//     feature_flag table (cached per tenant, eventual consistency).
//
//  7. Identity and tenant resolvers, the assembler, and the router.
//
//  8. Serve until SIGINT/SIGTERM, then drain.
//
// Large comment blocks are framed by blank "//" lines; inline comments use
// a single "//".
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/acl"
	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/config"
	"github.com/yanizio/storefront/internal/database"
	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/middleware"
	"github.com/yanizio/storefront/internal/reqctx"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/server"
	"github.com/yanizio/storefront/internal/session"
	"github.com/yanizio/storefront/internal/tenant"
	"github.com/yanizio/storefront/internal/vault"
)

const shutdownGrace = 20 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.L().Error("storefront exited", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootDir, _ := os.Getwd()
	tty := runningInTTY()

	//
	// ── 1.  Bootstrap logger ────────────────────────────────────────────
	//
	zl, err := logger.New(rootDir, "info", tty)
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 2.  Vault (optional) ────────────────────────────────────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, zl)
		if err != nil {
			return err
		}
		secrets = vc
	}

	//
	// ── 3.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return err
	}
	if zl, err = logger.New(cfg.Paths.Root, cfg.Log.Level, tty); err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	//
	// ── 4.  Control-plane DB and tenant directory ───────────────────────
	//
	zl.Info("connecting to control-plane DB")
	db, err := database.Open(ctx, cfg.Database.ControlDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	dir, err := tenant.Load(ctx, db)
	if err != nil {
		return err
	}
	zl.Info("tenant directory loaded", zap.Int("sites", dir.Len()))

	precedence, err := tenant.ParsePrecedence(cfg.Tenancy.Precedence)
	if err != nil {
		return err
	}
	tenants := tenant.NewResolver(dir, tenant.Options{
		Precedence: precedence,
		Lenient:    cfg.Tenancy.Lenient,
		BaseDomain: cfg.Tenancy.BaseDomain,
	}, zl)

	//
	// ── 5.  Sessions ────────────────────────────────────────────────────
	//
	rdb, err := session.Dial(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()
	sessions := session.NewRedisStore(rdb)

	cookies, err := session.NewCodec(cfg.Session.CookieName, []byte(cfg.Session.CookieKey))
	if err != nil {
		return err
	}

	//
	// ── 6.  Feature flags ───────────────────────────────────────────────
	//
	base := &flags.Static{}
	if cfg.Flags.File != "" {
		path := cfg.Flags.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Paths.Root, path)
		}
		if base, err = flags.LoadFile(path); err != nil {
			return err
		}
	}
	overrides := flags.NewCachedStore(flags.NewSQLSource(db, zl), cfg.Flags.CacheTTL, 0, 0, zl)
	go overrides.Run(ctx, flags.EvictInterval)
	evaluator := flags.NewEvaluator(flags.Layered{Layers: []flags.Source{base, overrides}}, cfg.App.Environment, zl)

	//
	// ── 7.  Identity, assembler, router ─────────────────────────────────
	//
	tokens, err := identity.NewTokenVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	ids := identity.NewResolver(tokens, cookies, sessions, zl)

	infoOpts := requestinfo.Options{TrustProxy: cfg.HTTP.TrustProxy}
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			zl.Warn("geo lookups disabled", zap.Error(err))
		}
	}

	asm := reqctx.NewAssembler(reqctx.Config{
		Identity:     ids,
		Tenants:      tenants,
		Flags:        evaluator,
		CookieName:   cfg.Session.CookieName,
		TenantHeader: cfg.Tenancy.Header,
		Info:         infoOpts,
		Logger:       zl,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RPS,
		Burst:             cfg.RateLimit.Burst,
	})
	go limiter.Run(ctx, 5*time.Minute)

	handler := buildRouter(component.Env{
		Assembler: asm,
		ACL:       acl.NewSQLStore(db),
		Identity:  ids,
		Sessions:  sessions,
		Cookies:   cookies,
		Log:       zl,
	}, routerOptions{
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
		KnownHost:  tenants.KnownHost,
		Info:       infoOpts,
		Limiter:    limiter,
	})

	//
	// ── 8.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP, handler), shutdownGrace, zl)
}
