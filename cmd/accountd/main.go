package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/accountd/modules/billing"
	"github.com/dmitrymomot/accountd/pkg/config"
	"github.com/dmitrymomot/accountd/pkg/httpserver"
	"github.com/dmitrymomot/accountd/pkg/logger"
	"github.com/dmitrymomot/accountd/pkg/pg"
	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
	"github.com/dmitrymomot/accountd/svc/pricing"
	"github.com/dmitrymomot/accountd/svc/subscription"
	"github.com/dmitrymomot/accountd/svc/token"
	"github.com/dmitrymomot/accountd/svc/userstore"
)

type appConfig struct {
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat logger.Format `env:"LOG_FORMAT" envDefault:"json"`

	PricingTablesPath string        `env:"PRICING_TABLES_PATH" envDefault:"config/pricing.yml"`
	PricingCacheTTL   time.Duration `env:"PRICING_CACHE_TTL" envDefault:"1h"`
	RatesCacheTTL     time.Duration `env:"RATES_CACHE_TTL" envDefault:"1h"`

	// The relational mirror and the operator email channel are optional in
	// non-production environments.
	MirrorEnabled      bool `env:"MIRROR_ENABLED" envDefault:"false"`
	EmailReportEnabled bool `env:"EMAIL_REPORT_ENABLED" envDefault:"false"`

	HTTP         httpserver.Config
	Paddle       paddle.Config
	PayPro       paypro.Config
	Userstore    userstore.Config
	Lookup       pricing.LookupConfig
	Subscription subscription.Config
	Token        token.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
		logger.WithService("accountd"),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()
	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	reporter := buildReporter(cfg, log)

	// User store: identity provider fronted by retry, optionally mirrored.
	storeClient := userstore.NewClient(cfg.Userstore)
	facadeOpts := []userstore.Option{
		userstore.WithReporter(reporter),
		userstore.WithLogger(log),
	}
	var readiness []func(context.Context) error
	if cfg.MirrorEnabled {
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		facadeOpts = append(facadeOpts, userstore.WithMirror(userstore.NewPGMirror(pool)))
		readiness = append(readiness, pg.Healthcheck(pool))
	}
	store := userstore.NewFacade(storeClient, facadeOpts...)

	// Payment providers.
	paddleVerifier, err := paddle.NewVerifier(cfg.Paddle.PublicKey)
	if err != nil {
		return err
	}
	paddleClient := paddle.NewClient(cfg.Paddle, paddle.WithLogger(log))
	payproValidator := paypro.NewValidator(cfg.PayPro.IPNSecret)
	payproClient := paypro.NewClient(cfg.PayPro, paypro.WithLogger(log))

	// Regional pricing.
	tables, err := pricing.LoadTables(cfg.PricingTablesPath)
	if err != nil {
		return err
	}
	lookups := pricing.NewLookupClient(cfg.Lookup)
	resolver := pricing.NewResolver(tables, lookups, cfg.PricingCacheTTL, pricing.WithLogger(log))
	rates := pricing.NewCachedRates(lookups, cfg.RatesCacheTTL)

	payproCheckout, err := paypro.NewCheckoutBuilder(cfg.PayPro, rates, reporter, log)
	if err != nil {
		return err
	}

	subs := subscription.NewService(store, cfg.Subscription,
		subscription.WithPaddleAPI(paddleClient),
		subscription.WithPayProAPI(payproClient),
		subscription.WithReporter(reporter),
		subscription.WithLogger(log),
	)

	tokens, err := token.NewIssuer(cfg.Token)
	if err != nil {
		return err
	}

	mod := billing.New(billing.Deps{
		Subscriptions:  subs,
		Store:          store,
		Pricing:        resolver,
		PaddleVerifier: paddleVerifier,
		PayProVerifier: payproValidator,
		PayProCheckout: payproCheckout,
		Tokens:         tokens,
		Auth:           storeClient,
	}, billing.WithReporter(reporter), billing.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/ready", httpserver.HealthCheckHandler(ctx, log, readiness...))
	r.Mount("/", mod.Handler())

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("billing API listening", "addr", cfg.HTTP.Addr)
		}),
	)
	return srv.Run(ctx, r)
}

// buildReporter assembles the operator channel: structured logs always,
// email for errors when enabled.
func buildReporter(cfg appConfig, log *slog.Logger) report.Reporter {
	reporters := report.MultiReporter{report.NewLogReporter(log)}
	if cfg.EmailReportEnabled {
		var emailCfg report.EmailConfig
		config.MustLoad(&emailCfg)
		emailReporter, err := report.NewEmailReporter(emailCfg, log)
		if err != nil {
			log.Error("email reporter disabled", "error", err)
		} else {
			reporters = append(reporters, emailReporter)
		}
	}
	return reporters
}
