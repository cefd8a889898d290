package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/auth"
	"github.com/geocoder89/speakup/internal/cache"
	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/db"
	"github.com/geocoder89/speakup/internal/http/handlers"
	"github.com/geocoder89/speakup/internal/notifications"
	"github.com/geocoder89/speakup/internal/observability"
	"github.com/geocoder89/speakup/internal/repo/cached"
	"github.com/geocoder89/speakup/internal/repo/memory"
	"github.com/geocoder89/speakup/internal/repo/postgres"
	"github.com/geocoder89/speakup/internal/security"
	"github.com/geocoder89/speakup/internal/storage"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	accounts *account.Service
	registry *prometheus.Registry
	prom     *observability.Prom
	health   *handlers.HealthHandler

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// buildApp wires stores, mail, storage and the account service from cfg.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.JWT.Ephemeral {
		log.Warn("JWT_SECRET_KEY not set; using a random per-process secret, tokens are invalidated on restart")
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.prom = observability.NewProm(a.registry)

	checks := map[string]handlers.PingFunc{}

	store, storePing, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	checks["store"] = storePing.Ping

	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis)
		rc := cache.NewRedisCache(rdb, "speakup:")
		a.closers = append(a.closers, func() { _ = rc.Close() })
		checks["cache"] = rc.Ping

		store = cached.NewUsersRepo(store, rc, cfg.Auth.UserCacheTTL, log, a.prom)
		log.Info("user cache enabled", "backend", "redis", "addr", cfg.Redis.Addr)
	} else if cfg.StoreDriver == "postgres" && cfg.Auth.UserCacheTTL > 0 {
		// per-process; run a single replica or configure REDIS_ADDR
		store = cached.NewUsersRepo(store, cache.New(cfg.Auth.UserCacheTTL), cfg.Auth.UserCacheTTL, log, a.prom)
		log.Info("user cache enabled", "backend", "memory")
	}

	objects, err := a.buildStorage(ctx)
	if err != nil {
		return nil, err
	}

	mailSender := a.buildSender()
	protected := notifications.NewProtectedSender(mailSender, notifications.ProtectedSenderConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}, observability.NewMailStats())

	mailer := notifications.NewAccountMailer(notifications.LinkBuilder{
		APIBaseURL:  cfg.AppBaseURL,
		FrontendURL: cfg.FrontendURL,
	}, protected, a.prom)

	tokens, err := auth.NewManager(cfg.JWT, nil)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	a.accounts, err = account.NewService(account.Deps{
		Store:   store,
		Hasher:  security.NewBcryptHasher(cfg.BcryptCost),
		Tokens:  tokens,
		Mailer:  mailer,
		Storage: objects,
		Metrics: a.prom,
		Logger:  log,
	}, account.SettingsFrom(cfg))
	if err != nil {
		return nil, oops.Code("STARTUP_FAILED").With("operation", "build account service").Wrap(err)
	}

	a.health = handlers.NewHealthHandler(checks, protected)

	return a, nil
}

func (a *app) buildStore(ctx context.Context) (cached.Store, pinger, error) {
	switch a.cfg.StoreDriver {
	case "memory":
		a.log.Warn("using in-memory user store; data is lost on restart")
		repo := memory.NewUsersRepo()
		return repo, repo, nil
	default:
		pool, err := db.NewPool(ctx, a.cfg.DBURL)
		if err != nil {
			return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		a.closers = append(a.closers, pool.Close)

		repo := postgres.NewUsersRepo(pool, a.prom)
		return repo, repo, nil
	}
}

func (a *app) buildStorage(ctx context.Context) (account.ObjectStorage, error) {
	if a.cfg.S3.Endpoint == "" {
		a.log.Warn("MINIO_INTERNAL_ENDPOINT not set; avatars are kept in memory")
		return storage.NewMemoryStorage(a.cfg.S3.PublicEndpoint), nil
	}

	client, err := storage.NewS3Client(ctx, a.cfg.S3)
	if err != nil {
		return nil, oops.Code("STORAGE_CONNECT_FAILED").With("operation", "build s3 client").Wrap(err)
	}

	s3s := storage.NewS3Storage(client, a.cfg.S3.PublicEndpoint)

	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// uploads fail later with a storage error if this did not work
	if err := s3s.EnsureBucket(bucketCtx, a.cfg.S3.AvatarBucket); err != nil {
		a.log.Warn("avatar bucket not ready", "bucket", a.cfg.S3.AvatarBucket, "err", err)
	}

	return s3s, nil
}

func (a *app) buildSender() notifications.Sender {
	if a.cfg.MailDriver == "smtp" {
		a.log.Info("mail driver: smtp", "host", a.cfg.SMTP.Host, "port", a.cfg.SMTP.Port)
		return notifications.NewSMTPSender(a.cfg.SMTP)
	}

	a.log.Info("mail driver: log")
	return notifications.NewLogSender(a.log)
}

// connectPool is used by commands that only need the database.
func connectPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.StoreDriver != "postgres" {
		return nil, oops.Code("CONFIG_INVALID").Wrap(errors.New("STORE_DRIVER must be postgres"))
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return pool, nil
}
