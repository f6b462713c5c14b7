// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	pg "telegram-vpn-storefront/internal/infra/db/postgres"
	"telegram-vpn-storefront/internal/infra/logging"
	"telegram-vpn-storefront/internal/infra/metrics"
	"telegram-vpn-storefront/internal/infra/payment/yookassa"
	"telegram-vpn-storefront/internal/infra/provider/remnawave"
	red "telegram-vpn-storefront/internal/infra/redis"
	"telegram-vpn-storefront/internal/infra/sched"
	tele "telegram-vpn-storefront/internal/infra/telegram"
	"telegram-vpn-storefront/internal/infra/web"
	"telegram-vpn-storefront/internal/infra/worker"
	"telegram-vpn-storefront/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema setup failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)
	trialRepo := pg.NewTrialRepo(pool)
	referralRepo := pg.NewReferralRepo(pool)
	blockRepo := pg.NewBlockRepo(pool)
	statsRepo := pg.NewStatsRepo(pool)

	// ---- Adapters ----
	provider := remnawave.NewClient(&cfg.Provider.Remnawave, logger)
	gateway := yookassa.NewGateway(&cfg.Payment.Yookassa, logger)

	var notifier adapter.Notifier
	var realBot *tele.RealBotNotifier
	if cfg.Bot.Token != "" {
		realBot, err = tele.NewRealBotNotifier(&cfg.Bot, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram bot init failed")
		}
		notifier = realBot
	} else {
		logger.Warn().Msg("no bot token configured, notifications go to the log only")
		notifier = tele.NewNoopNotifier(logger)
	}

	// ---- Worker pool ----
	pool8 := worker.NewPool(8, logger)
	pool8.Start(ctx)
	defer pool8.Stop()

	// ---- Use cases ----
	subBase := cfg.Provider.Remnawave.SubscriptionBaseURL
	reconcileUC := usecase.NewReconcileUseCase(
		orderRepo, referralRepo, cfg, provider, notifier, locker, pool8,
		subBase, cfg.Referral.BonusDays, cfg.Payment.Yookassa.Currency, logger,
	)
	checkoutUC := usecase.NewCheckoutUseCase(
		orderRepo, blockRepo, cfg, gateway, limiter, cfg.Webhook.ReturnURL, logger,
	)
	trialUC := usecase.NewTrialUseCase(
		trialRepo, blockRepo, provider, cfg.Trial.Days, cfg.Trial.DataLimitGB, subBase, logger,
	)
	subUC := usecase.NewSubscriptionUseCase(orderRepo, provider, subBase, logger)
	statsUC := usecase.NewStatsUseCase(statsRepo)
	txm := pg.NewTxManager(pool)
	adminUC := usecase.NewAdminUseCase(blockRepo, orderRepo, provider, provider, txm, logger)

	// ---- Telegram update handling ----
	if realBot != nil {
		handler := tele.NewHandler(&cfg.Bot, realBot.API(), checkoutUC, trialUC, subUC, statsUC, cfg, 8, logger)
		go func() {
			if err := handler.StartPolling(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("bot polling stopped")
			}
		}()
	}

	// ---- Web server ----
	var auth *web.AuthManager
	if cfg.Admin.Enabled {
		auth = web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.Password, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	}
	srv := web.NewServer(&cfg.Webhook, reconcileUC, subUC, statsUC, adminUC, auth, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("web server failed")
			cancel()
		}
	}()

	// ---- Cleanup worker ----
	cleanup := sched.NewCleanupWorker(cfg.Cleanup.Interval, cfg.Cleanup.ExpiredDays, provider, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("web server shutdown failed")
	}
}
