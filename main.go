package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"divar-notifier/config"
	"divar-notifier/fetcher"
	"divar-notifier/logger"
	"divar-notifier/parser"
	"divar-notifier/pipeline"
	"divar-notifier/scheduler"
	"divar-notifier/scraper"
	"divar-notifier/telegram"
)

func main() {
	// Config problems are the only reason to exit non-zero
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n", err)
	}

	logg, closeLog, err := logger.New(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor := fetcher.NewLinkExtractor(
		fetcher.NewCollyFetcher(cfg.Source.UserAgent, cfg.Source.Timeout, logg),
		parser.NewParser(cfg.Source.Origin, cfg.Source.PathPrefix),
		logg,
	)

	capturer := scraper.Detect(cfg.Browser, cfg.Source.UserAgent, logg)
	defer func() {
		if err := capturer.Close(); err != nil {
			logg.Warn("Failed to close browser", "error", err)
		}
	}()

	notifier := telegram.NewClient(cfg.Telegram, logg)
	if !notifier.Configured() {
		logg.Warn("Telegram credentials missing, deliveries will be skipped",
			"token_env", config.EnvTelegramToken, "chat_env", config.EnvTelegramChat)
	}

	p := pipeline.New(cfg, extractor, capturer, notifier, logg)

	s := scheduler.NewScheduler(ctx, p, cfg.Run.Interval, logg)
	s.Start()
	<-s.Done()
}
