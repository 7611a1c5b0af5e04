// Command sniper is SeatSniper's entry point: it wires configuration,
// logging, durable storage, the marketplace adapter fleet, subscription
// and dispatch state, the polling scheduler, and the admin HTTP surface
// together, then runs until an OS signal asks it to stop.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/adminserver"
	"github.com/seatsniper/engine/comparator"
	"github.com/seatsniper/engine/config"
	"github.com/seatsniper/engine/dispatch"
	"github.com/seatsniper/engine/logging"
	"github.com/seatsniper/engine/notifier"
	"github.com/seatsniper/engine/observability"
	"github.com/seatsniper/engine/ratelimiter"
	"github.com/seatsniper/engine/resilience"
	"github.com/seatsniper/engine/scheduler"
	"github.com/seatsniper/engine/scoring"
	"github.com/seatsniper/engine/seatmap"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
	"github.com/seatsniper/engine/wizard"

	"github.com/seatsniper/engine/redisclient"

	"github.com/seatsniper/engine/model"
)

func main() {
	cfg, report := config.Load()
	log := logging.New(cfg)

	log.Info().Str("env", cfg.Env).Strs("cities", cfg.Cities).Msg("seatsniper starting")
	for _, a := range report.SkippedAdapters {
		log.Warn().Str("adapter", a).Msg("skipping adapter: missing credentials")
	}
	for _, n := range report.SkippedNotifiers {
		log.Warn().Str("notifier", n).Msg("skipping notifier: missing credentials")
	}
	if report.FatalError != "" {
		log.Fatal().Str("reason", report.FatalError).Msg("refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := connectStore(ctx, cfg, log)
	defer st.Close()

	registry := buildAdapters(cfg, log)
	if initErrs := registry.InitializeAll(ctx); len(initErrs) > 0 {
		for name, err := range initErrs {
			log.Warn().Err(err).Str("adapter", name).Msg("adapter initialize failed, disabled")
		}
	}
	if len(registry.Active()) == 0 {
		log.Fatal().Msg("zero adapters survived initialization; refusing to start")
	}

	subs := subscription.New(st, log)
	if err := subs.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to hydrate subscriptions from store, starting empty")
	}

	metrics := observability.New(prometheus.DefaultRegisterer)

	ring := dispatch.NewAlertRing()
	notifiers := buildNotifiers(cfg, log)
	seatMaps := seatmap.NewAdapterLookup(registry)

	// The scheduler and dispatcher are mutually referential: the
	// scheduler drives dispatch, and the comparator needs the scheduler's
	// match index to enrich a dispatch payload. Build the scheduler
	// without a dispatcher first, then attach one once it exists.
	sched := scheduler.New(scheduler.Config{
		Cities:             cfg.Cities,
		DiscoveryInterval:  cfg.DiscoveryIntervalOverride,
		HighTierInterval:   cfg.HighTierIntervalOverride,
		MediumTierInterval: cfg.MediumTierIntervalOverride,
		LowTierInterval:    cfg.LowTierIntervalOverride,
	}, registry, subs, st, scoring.MustNewEngine(scoring.DefaultWeights()), nil, ring, log)

	cmp := comparator.NewLive(registry, sched)
	disp := dispatch.New(subs, st, ring, notifiers, seatMaps, cmp, log)
	sched.SetDispatcher(disp)
	sched.SetMetrics(metrics)
	disp.SetMetrics(metrics)

	rc, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis client init failed, wizard sessions will run on in-memory fallback only")
		rc = nil
	} else if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis ping failed, wizard sessions will run on in-memory fallback only")
		rc = nil
	}
	wizardStore := wizard.NewStore(rc, log)
	go wizardStore.RunPruner(ctx)

	admin := adminserver.New(registry, sched, log)
	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      admin.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("admin server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin server failed")
		}
	}()

	go sched.Run(ctx)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server graceful shutdown failed")
	}
	if rc != nil {
		_ = rc.Close()
	}
	log.Info().Msg("seatsniper stopped")
}

func connectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) store.Store {
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("postgres connect failed, running on in-memory fallback only")
		mem := store.NewMemory()
		return store.NewFallback(mem, log)
	}
	if err := pg.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("postgres migration failed, running on in-memory fallback only")
		return store.NewFallback(store.NewMemory(), log)
	}
	log.Info().Msg("postgres connected")
	return store.NewFallback(pg, log)
}

func buildAdapters(cfg *config.Config, log zerolog.Logger) *adapter.Registry {
	registry := adapter.NewRegistry()
	envCfg := resilience.DefaultConfig()

	if cfg.Ticketmaster.APIKey != "" {
		// Ticketmaster bills per calendar day; smooth the daily quota
		// into per-minute buckets instead of a flat per-second rate.
		limiter := ratelimiter.NewDaily(5000)
		registry.Register(adapter.NewTicketmasterAdapter(adapter.FeedDiscovery, cfg.Ticketmaster.APIKey,
			"https://app.ticketmaster.com/discovery/v2", limiter, envCfg, log))
		registry.Register(adapter.NewTicketmasterAdapter(adapter.FeedTopPicks, cfg.Ticketmaster.APIKey,
			"https://app.ticketmaster.com/discovery/v2", limiter, envCfg, log))
	}
	if cfg.StubHub.ClientID != "" && cfg.StubHub.ClientSecret != "" {
		limiter := ratelimiter.New(ratelimiter.Config{TokensPerInterval: 10, Interval: ratelimiter.IntervalSecond, MaxTokens: 10})
		registry.Register(adapter.NewStubHubAdapter(cfg.StubHub.ClientID, cfg.StubHub.ClientSecret,
			cfg.StubHub.AuthURL, cfg.StubHub.BaseURL, limiter, envCfg, log))
	}
	if cfg.SeatGeek.ClientID != "" && cfg.SeatGeek.ClientSecret != "" {
		limiter := ratelimiter.New(ratelimiter.Config{TokensPerInterval: 10, Interval: ratelimiter.IntervalSecond, MaxTokens: 10})
		registry.Register(adapter.NewSeatGeekAdapter(cfg.SeatGeek.ClientID, cfg.SeatGeek.ClientSecret,
			cfg.SeatGeek.BaseURL, limiter, envCfg, log))
	}
	if cfg.Apify.Token != "" && cfg.Apify.ActorID != "" {
		limiter := ratelimiter.New(ratelimiter.Config{TokensPerInterval: 2, Interval: ratelimiter.IntervalSecond, MaxTokens: 2})
		registry.Register(adapter.NewApifyGoogleEventsAdapter(cfg.Apify.Token, cfg.Apify.ActorID, cfg.Apify.BaseURL,
			limiter, envCfg, log, func(reason string) { registry.Disable("apify-google-events", reason) }))
	}
	return registry
}

func buildNotifiers(cfg *config.Config, log zerolog.Logger) map[model.Channel]notifier.Notifier {
	notifiers := make(map[model.Channel]notifier.Notifier)
	if cfg.Telegram.BotToken != "" {
		tg, err := notifier.NewTelegram(cfg.Telegram.BotToken)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier init failed")
		} else {
			notifiers[model.ChannelTelegram] = tg
		}
	}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.FromNumber != "" {
		notifiers[model.ChannelSMS] = notifier.NewTwilioSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		notifiers[model.ChannelWhatsApp] = notifier.NewTwilioWhatsApp(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	}
	return notifiers
}
