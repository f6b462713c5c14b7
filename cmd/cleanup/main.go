// File: cmd/cleanup/main.go
// One-shot purge of long-expired panel accounts, for cron or manual runs.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/infra/logging"
	"telegram-vpn-storefront/internal/infra/provider/remnawave"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	days := flag.Int("days", 0, "override cleanup.expired_days from config")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	threshold := cfg.Cleanup.ExpiredDays
	if *days > 0 {
		threshold = *days
	}
	if threshold <= 0 {
		logger.Info().Msg("cleanup disabled (threshold is zero), nothing to do")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	client := remnawave.NewClient(&cfg.Provider.Remnawave, logger)
	n, err := client.PurgeExpired(ctx, threshold)
	if err != nil {
		logger.Fatal().Err(err).Int("deleted", n).Msg("purge failed")
	}
	logger.Info().Int("deleted", n).Int("threshold_days", threshold).Msg("purge complete")
}
